package profile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"gohar/domain/core"
	"gohar/domain/table"
	"gohar/internal/logging"
	"gohar/ports"
)

// topLevelCount bounds how many categorical levels a profile reports
const topLevelCount = 5

// StatsProfiler computes per-column summary statistics for ingested tables.
// It runs on raw tables, before preparation, so columns that are entirely
// missing still profile cleanly: they report counts and rates with no moments.
type StatsProfiler struct {
	logger *logging.Logger
}

// NewStatsProfiler creates a profiler with the given logger
func NewStatsProfiler(logger *logging.Logger) ports.ProfilerPort {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &StatsProfiler{logger: logger}
}

// ProfileTable summarizes every column of the table in column order
func (p *StatsProfiler) ProfileTable(ctx context.Context, t *table.Table) (*ports.TableProfile, error) {
	if t == nil {
		return nil, core.NewValidationError("profile", "table cannot be nil")
	}

	start := time.Now()
	profile := &ports.TableProfile{
		Table:   t.Name(),
		Rows:    t.NumRows(),
		Columns: make([]ports.ColumnProfile, 0, t.NumCols()),
	}

	for i := 0; i < t.NumCols(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		col := t.ColumnAt(i)
		cp, err := profileColumn(col, t.NumRows())
		if err != nil {
			return nil, fmt.Errorf("failed to profile column %s: %w", col.Name, err)
		}
		profile.Columns = append(profile.Columns, cp)
	}

	profile.DurationMs = time.Since(start).Milliseconds()
	p.logger.Info("[Profiler] %s profiled in %.2fms (%d rows, %d columns)",
		t.Name(), float64(time.Since(start).Microseconds())/1000.0, t.NumRows(), t.NumCols())
	return profile, nil
}

func profileColumn(col *table.Column, rows int) (ports.ColumnProfile, error) {
	cp := ports.ColumnProfile{
		Name:         col.Name,
		Kind:         string(col.Kind),
		MissingCount: col.MissingCount(),
	}
	if rows > 0 {
		cp.MissingRate = float64(cp.MissingCount) / float64(rows)
	}

	if col.Kind == table.KindCategorical {
		profileLevels(col, &cp)
		return cp, nil
	}
	if err := profileMoments(col, &cp); err != nil {
		return cp, err
	}
	return cp, nil
}

// profileMoments fills the numeric summary from observed payloads
func profileMoments(col *table.Column, cp *ports.ColumnProfile) error {
	observed := col.Observed()
	cp.DistinctCount = distinctFloats(observed)
	if len(observed) == 0 {
		return nil
	}

	min, err := stats.Min(observed)
	if err != nil {
		return err
	}
	max, err := stats.Max(observed)
	if err != nil {
		return err
	}
	mean, err := stats.Mean(observed)
	if err != nil {
		return err
	}
	stdDev, err := stats.StandardDeviation(observed)
	if err != nil {
		return err
	}
	median, err := stats.Median(observed)
	if err != nil {
		return err
	}

	cp.Min = min
	cp.Max = max
	cp.Mean = mean
	cp.StdDev = stdDev
	cp.Median = median
	return nil
}

// profileLevels counts level frequencies and keeps the most common ones.
// Ties break on token order so profiles of equal tables are equal.
func profileLevels(col *table.Column, cp *ports.ColumnProfile) {
	counts := make([]int, len(col.Levels))
	for i := 0; i < col.Len(); i++ {
		if tok, ok := col.TokenAt(i); ok {
			counts[col.LevelCode(tok)]++
		}
	}

	tops := make([]ports.LevelTop, 0, len(counts))
	for code, n := range counts {
		if n > 0 {
			tops = append(tops, ports.LevelTop{Token: col.Levels[code], Count: n})
		}
	}
	cp.DistinctCount = len(tops)

	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count != tops[j].Count {
			return tops[i].Count > tops[j].Count
		}
		return tops[i].Token < tops[j].Token
	})
	if len(tops) > topLevelCount {
		tops = tops[:topLevelCount]
	}
	cp.TopLevels = tops
}

func distinctFloats(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

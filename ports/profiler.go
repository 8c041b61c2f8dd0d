package ports

import (
	"context"

	"gohar/domain/table"
)

// ColumnProfile summarizes one column of an ingested table
type ColumnProfile struct {
	Name          string     `json:"name"`
	Kind          string     `json:"kind"`
	MissingCount  int        `json:"missing_count"`
	MissingRate   float64    `json:"missing_rate"`
	DistinctCount int        `json:"distinct_count"`
	Min           float64    `json:"min,omitempty"`
	Max           float64    `json:"max,omitempty"`
	Mean          float64    `json:"mean,omitempty"`
	StdDev        float64    `json:"std_dev,omitempty"`
	Median        float64    `json:"median,omitempty"`
	TopLevels     []LevelTop `json:"top_levels,omitempty"`
}

// LevelTop is one categorical level with its frequency
type LevelTop struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// TableProfile is the per-column statistical profile of a table
type TableProfile struct {
	Table      string          `json:"table"`
	Rows       int             `json:"rows"`
	Columns    []ColumnProfile `json:"columns"`
	DurationMs int64           `json:"duration_ms"`
}

// ProfilerPort analyzes a table to extract its statistical profile
type ProfilerPort interface {
	ProfileTable(ctx context.Context, t *table.Table) (*TableProfile, error)
}

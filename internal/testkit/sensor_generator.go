package testkit

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"gohar/domain/core"
	"gohar/domain/table"
)

// Sensor feature names follow the on-body measurement naming of the source
// data: axis readings per body segment, with summary aggregates layered on
// top that are only observed on window-boundary rows.
var (
	sensorAxes        = []string{"roll", "pitch", "yaw", "total_accel"}
	sensorSegments    = []string{"belt", "arm", "dumbbell", "forearm"}
	aggregatePrefixes = []string{"kurtosis", "skewness", "max", "min", "var", "amplitude"}
)

// GeneratorConfig configures the sensor data generator
type GeneratorConfig struct {
	Rows        int      `json:"rows"`
	QueryRows   int      `json:"query_rows"`
	Features    int      `json:"features"`
	NoiseCols   int      `json:"noise_cols"`
	Subjects    []string `json:"subjects"`
	Classes     []string `json:"classes"`
	MissingRate float64  `json:"missing_rate"`
	Spread      float64  `json:"spread"`
	Seed        int64    `json:"seed"`
}

// DefaultGeneratorConfig returns defaults that keep tests fast while staying
// separable enough for a bagged ensemble to clear a high held-out accuracy.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Rows:        300,
		QueryRows:   20,
		Features:    8,
		NoiseCols:   4,
		Subjects:    []string{"carlitos", "pedro", "jeremy"},
		Classes:     []string{"A", "B", "C", "D", "E"},
		MissingRate: 0.02,
		Spread:      2.0,
		Seed:        42,
	}
}

// SensorData is one generated reference/query table pair
type SensorData struct {
	Reference *table.Table
	Query     *table.Table
}

// SensorDataGenerator builds deterministic activity-classification fixtures
type SensorDataGenerator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewSensorDataGenerator creates a generator seeded from the config
func NewSensorDataGenerator(config GeneratorConfig) *SensorDataGenerator {
	return &SensorDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds a reference table with labels and a query table without.
// Rows cycle through classes so every class is represented; each feature
// separates the classes with rotated means so no single feature is decisive.
// Aggregate columns are observed only on window-boundary reference rows and
// never in the query, which is what gets them excluded from the schema.
func (g *SensorDataGenerator) Generate() (*SensorData, error) {
	cfg := g.config
	if len(cfg.Classes) < 2 {
		return nil, core.NewValidationError("generator", "at least two classes required")
	}
	if len(cfg.Subjects) == 0 {
		return nil, core.NewValidationError("generator", "at least one subject required")
	}
	if cfg.Rows < len(cfg.Classes) || cfg.QueryRows < 1 {
		return nil, core.NewValidationError("generator", "row counts too small")
	}
	if cfg.Features < 1 {
		return nil, core.NewValidationError("generator", "at least one feature required")
	}
	if cfg.MissingRate < 0 || cfg.MissingRate >= 1 {
		return nil, core.NewValidationError("generator", "missing rate must be in [0, 1)")
	}

	reference, err := g.buildTable("reference", cfg.Rows, true)
	if err != nil {
		return nil, err
	}
	query, err := g.buildTable("query", cfg.QueryRows, false)
	if err != nil {
		return nil, err
	}
	return &SensorData{Reference: reference, Query: query}, nil
}

func (g *SensorDataGenerator) buildTable(name string, rows int, labeled bool) (*table.Table, error) {
	cfg := g.config

	ids := make([]int64, rows)
	timestamps := make([]int64, rows)
	windows := make([]string, rows)
	windowNums := make([]int64, rows)
	subjects := make([]string, rows)
	classes := make([]string, rows)
	boundary := make([]bool, rows)

	for i := 0; i < rows; i++ {
		ids[i] = int64(i + 1)
		timestamps[i] = 1322489605 + int64(i)
		boundary[i] = i%24 == 23
		if boundary[i] {
			windows[i] = "yes"
		} else {
			windows[i] = "no"
		}
		windowNums[i] = int64(i/24 + 1)
		subjects[i] = cfg.Subjects[g.rng.Intn(len(cfg.Subjects))]
		classes[i] = cfg.Classes[i%len(cfg.Classes)]
	}

	columns := []*table.Column{
		table.NewIntegerColumn("X", ids, nil),
		table.NewCategoricalColumn("user_name", subjects, nil),
		table.NewIntegerColumn("raw_timestamp_part_1", timestamps, nil),
		table.NewCategoricalColumn("new_window", windows, nil),
		table.NewIntegerColumn("num_window", windowNums, nil),
	}

	for j := 0; j < cfg.Features; j++ {
		values := make([]float64, rows)
		missing := make([]bool, rows)
		for i := 0; i < rows; i++ {
			classIdx := i % len(cfg.Classes)
			center := cfg.Spread * float64((classIdx+j)%len(cfg.Classes))
			values[i] = center + g.rng.NormFloat64()
			if labeled && cfg.MissingRate > 0 && g.rng.Float64() < cfg.MissingRate {
				missing[i] = true
			}
		}
		// Imputation needs at least one observed cell per feature.
		if allTrue(missing) {
			missing[0] = false
		}
		columns = append(columns, table.NewNumericColumn(featureName(j), values, missing))
	}

	for n := 0; n < cfg.NoiseCols; n++ {
		values := make([]float64, rows)
		missing := make([]bool, rows)
		for i := 0; i < rows; i++ {
			if labeled && boundary[i] {
				values[i] = g.rng.NormFloat64() * 10
			} else {
				missing[i] = true
			}
		}
		columns = append(columns, table.NewNumericColumn(aggregateName(n, cfg.Features), values, missing))
	}

	if labeled {
		columns = append(columns, table.NewCategoricalColumn("classe", classes, nil))
	} else {
		problems := make([]int64, rows)
		for i := range problems {
			problems[i] = int64(i + 1)
		}
		columns = append(columns, table.NewIntegerColumn("problem_id", problems, nil))
	}

	return table.NewTable(name, columns)
}

// featureName maps a feature index onto the axis-by-segment grid
func featureName(j int) string {
	grid := len(sensorAxes) * len(sensorSegments)
	if j < grid {
		return sensorAxes[j%len(sensorAxes)] + "_" + sensorSegments[(j/len(sensorAxes))%len(sensorSegments)]
	}
	return fmt.Sprintf("gyros_%02d", j)
}

// aggregateName decorates a feature name with a summary-statistic prefix
func aggregateName(n, features int) string {
	prefix := aggregatePrefixes[n%len(aggregatePrefixes)]
	base := featureName((n / len(aggregatePrefixes)) % features)
	return prefix + "_" + base
}

func allTrue(mask []bool) bool {
	for _, m := range mask {
		if !m {
			return false
		}
	}
	return len(mask) > 0
}

// csvSentinels are cycled across missing cells so written fixtures exercise
// every missing-value token the reader maps.
var csvSentinels = []string{"", "NA", "#DIV/0!"}

// WriteCSV renders a table to a CSV fixture file. Missing cells cycle through
// the sentinel tokens deterministically.
func WriteCSV(t *table.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create fixture %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j := 0; j < t.NumCols(); j++ {
			record[j] = renderCell(t.ColumnAt(j), i, (i+j)%len(csvSentinels))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush fixture %s: %w", path, err)
	}
	return nil
}

func renderCell(col *table.Column, row, sentinel int) string {
	if col.Missing[row] {
		return csvSentinels[sentinel]
	}
	switch col.Kind {
	case table.KindNumeric:
		return strconv.FormatFloat(col.Floats[row], 'g', -1, 64)
	case table.KindInteger:
		return strconv.FormatInt(col.Ints[row], 10)
	default:
		tok, _ := col.TokenAt(row)
		return tok
	}
}

package testkit

import (
	"context"
	"path/filepath"
	"testing"

	"gohar/adapters/ingest"
	"gohar/domain/table"
	"gohar/internal/logging"
)

func mustGenerate(t *testing.T, cfg GeneratorConfig) *SensorData {
	t.Helper()
	data, err := NewSensorDataGenerator(cfg).Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return data
}

func mustColumn(t *testing.T, tab *table.Table, name string) *table.Column {
	t.Helper()
	col, err := tab.Column(name)
	if err != nil {
		t.Fatalf("column %s: %v", name, err)
	}
	return col
}

func TestGenerateSensorDataShapes(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	data := mustGenerate(t, cfg)

	// 5 bookkeeping + features + aggregates + outcome or problem_id
	wantCols := 5 + cfg.Features + cfg.NoiseCols + 1
	if data.Reference.NumRows() != cfg.Rows || data.Reference.NumCols() != wantCols {
		t.Fatalf("reference %dx%d, want %dx%d",
			data.Reference.NumRows(), data.Reference.NumCols(), cfg.Rows, wantCols)
	}
	if data.Query.NumRows() != cfg.QueryRows || data.Query.NumCols() != wantCols {
		t.Fatalf("query %dx%d, want %dx%d",
			data.Query.NumRows(), data.Query.NumCols(), cfg.QueryRows, wantCols)
	}

	if !data.Reference.HasColumn("classe") || data.Reference.HasColumn("problem_id") {
		t.Error("reference must carry classe and no problem_id")
	}
	if !data.Query.HasColumn("problem_id") || data.Query.HasColumn("classe") {
		t.Error("query must carry problem_id and no classe")
	}
	if data.Reference.Name() != "reference" || data.Query.Name() != "query" {
		t.Errorf("table names %q/%q", data.Reference.Name(), data.Query.Name())
	}

	first := mustColumn(t, data.Reference, featureName(0))
	if first.Name != "roll_belt" || first.Kind != table.KindNumeric {
		t.Errorf("first feature %s kind %s", first.Name, first.Kind)
	}
}

func TestGenerateSensorDataDeterminism(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	a := mustGenerate(t, cfg)
	b := mustGenerate(t, cfg)

	if a.Reference.Fingerprint() != b.Reference.Fingerprint() {
		t.Error("same seed produced different reference tables")
	}
	if a.Query.Fingerprint() != b.Query.Fingerprint() {
		t.Error("same seed produced different query tables")
	}

	cfg.Seed = 7
	c := mustGenerate(t, cfg)
	if a.Reference.Fingerprint() == c.Reference.Fingerprint() {
		t.Error("different seeds produced identical reference tables")
	}
}

func TestGenerateSensorDataClassBalance(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	data := mustGenerate(t, cfg)

	counts := map[string]int{}
	classe := mustColumn(t, data.Reference, "classe")
	for i := 0; i < classe.Len(); i++ {
		tok, ok := classe.TokenAt(i)
		if !ok {
			t.Fatalf("missing label at row %d", i)
		}
		counts[tok]++
	}
	want := cfg.Rows / len(cfg.Classes)
	for _, class := range cfg.Classes {
		if counts[class] != want {
			t.Errorf("class %s count %d, want %d", class, counts[class], want)
		}
	}
}

func TestGenerateSensorDataMissingPattern(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	data := mustGenerate(t, cfg)

	for j := 0; j < cfg.Features; j++ {
		if col := mustColumn(t, data.Query, featureName(j)); col.MissingCount() != 0 {
			t.Errorf("query feature %s has %d missing cells", col.Name, col.MissingCount())
		}
		refCol := mustColumn(t, data.Reference, featureName(j))
		if refCol.AllMissing() {
			t.Errorf("reference feature %s is entirely missing", refCol.Name)
		}
		if rate := float64(refCol.MissingCount()) / float64(cfg.Rows); rate > 0.1 {
			t.Errorf("reference feature %s missing rate %.3f", refCol.Name, rate)
		}
	}

	// Aggregates never appear in the query, which is what drops them from
	// the declared schema.
	newWindow := mustColumn(t, data.Reference, "new_window")
	for n := 0; n < cfg.NoiseCols; n++ {
		name := aggregateName(n, cfg.Features)
		if col := mustColumn(t, data.Query, name); !col.AllMissing() {
			t.Errorf("query aggregate %s has observed cells", name)
		}
		refCol := mustColumn(t, data.Reference, name)
		for i := 0; i < refCol.Len(); i++ {
			tok, _ := newWindow.TokenAt(i)
			boundary := tok == "yes"
			if refCol.Missing[i] == boundary {
				t.Fatalf("aggregate %s row %d: missing=%v on new_window=%s",
					name, i, refCol.Missing[i], tok)
			}
		}
	}
}

func TestGenerateSensorDataValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*GeneratorConfig)
	}{
		{"one class", func(c *GeneratorConfig) { c.Classes = []string{"A"} }},
		{"no subjects", func(c *GeneratorConfig) { c.Subjects = nil }},
		{"too few rows", func(c *GeneratorConfig) { c.Rows = 3 }},
		{"no query rows", func(c *GeneratorConfig) { c.QueryRows = 0 }},
		{"no features", func(c *GeneratorConfig) { c.Features = 0 }},
		{"missing rate too high", func(c *GeneratorConfig) { c.MissingRate = 1.0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultGeneratorConfig()
			tc.mutate(&cfg)
			if _, err := NewSensorDataGenerator(cfg).Generate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	data := mustGenerate(t, cfg)

	dir := t.TempDir()
	path := filepath.Join(dir, "reference.csv")
	if err := WriteCSV(data.Reference, path); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	reader := ingest.NewDataReader(ingest.DefaultReaderConfig(), logging.NewLogger(logging.LogLevelError))
	got, err := reader.ReadTable(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	// Fingerprints ignore the table name, so the written and re-read
	// tables must hash identically cell for cell.
	if got.Fingerprint() != data.Reference.Fingerprint() {
		t.Fatalf("round trip changed the table: %dx%d -> %dx%d, %d -> %d missing",
			data.Reference.NumRows(), data.Reference.NumCols(),
			got.NumRows(), got.NumCols(),
			data.Reference.MissingCells(), got.MissingCells())
	}
}

package prep

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gohar/domain/core"
	"gohar/domain/table"
)

// buildReference assembles a small lifting-style reference table: clean
// numerics, an integer column, a sensor column with gaps, a derived column
// polluted with sentinels, a subject column, and the outcome.
func buildReference(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.NewTable("reference", []*table.Column{
		table.NewIntegerColumn("X", []int64{1, 2, 3, 4, 5, 6}, nil),
		table.NewCategoricalColumn("user_name", []string{"carlitos", "pedro", "carlitos", "jeremy", "pedro", "jeremy"}, nil),
		table.NewIntegerColumn("raw_timestamp_part_1", []int64{1323084231, 1323084231, 1323084232, 1323084232, 1323084233, 1323084233}, nil),
		table.NewCategoricalColumn("new_window", []string{"no", "no", "yes", "no", "no", "no"}, nil),
		table.NewIntegerColumn("num_window", []int64{11, 11, 12, 12, 12, 13}, nil),
		table.NewNumericColumn("roll_belt", []float64{1.41, 1.41, 1.42, 1.48, 1.48, 1.45}, nil),
		table.NewNumericColumn("pitch_belt", []float64{8.07, 1, 8.07, 3, 8.07, 8.05},
			[]bool{false, true, false, true, false, false}),
		table.NewIntegerColumn("total_accel_belt", []int64{3, 3, 3, 4, 4, 4}, nil),
		table.NewCategoricalColumn("kurtosis_roll_belt", []string{"#DIV/0!", "NA", "#DIV/0!", "1.3004", "NA", "#DIV/0!"}, nil),
		table.NewCategoricalColumn("classe", []string{"A", "A", "B", "C", "D", "E"}, nil),
	})
	if err != nil {
		t.Fatalf("build reference: %v", err)
	}
	return tbl
}

// buildQuery assembles the matching query table: same instrumentation, no
// outcome, problem_id instead, and the derived column entirely missing.
func buildQuery(t *testing.T) *table.Table {
	t.Helper()
	kurtosis := table.NewColumn("kurtosis_roll_belt", table.KindCategorical)
	for i := 0; i < 2; i++ {
		_ = kurtosis.Append(table.MissingValue(table.KindCategorical))
	}
	tbl, err := table.NewTable("query", []*table.Column{
		table.NewIntegerColumn("X", []int64{1, 2}, nil),
		table.NewCategoricalColumn("user_name", []string{"pedro", "jeremy"}, nil),
		table.NewIntegerColumn("raw_timestamp_part_1", []int64{1323095002, 1322673067}, nil),
		table.NewCategoricalColumn("new_window", []string{"no", "no"}, nil),
		table.NewIntegerColumn("num_window", []int64{74, 431}, nil),
		table.NewNumericColumn("roll_belt", []float64{123.0, 1.02}, nil),
		table.NewNumericColumn("pitch_belt", []float64{27.0, 4.87}, nil),
		table.NewIntegerColumn("total_accel_belt", []int64{20, 4}, nil),
		kurtosis,
		table.NewIntegerColumn("problem_id", []int64{1, 2}, nil),
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	return tbl
}

func TestInferSchemaKeepsObservableQueryColumns(t *testing.T) {
	query, _ := NormalizeMissing(buildQuery(t), DefaultOptions().MissingTokens)
	schema, err := InferSchema(query, DefaultInferOptions())
	if err != nil {
		t.Fatalf("infer: %v", err)
	}

	want := []string{"user_name", "roll_belt", "pitch_belt", "total_accel_belt"}
	got := schema.FeatureNames()
	if len(got) != len(want) {
		t.Fatalf("expected features %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("feature %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// Entirely-missing and bookkeeping columns land in the dropped list
	droppedSet := make(map[string]bool)
	for _, d := range schema.Dropped {
		droppedSet[d] = true
	}
	for _, name := range []string{"X", "num_window", "problem_id", "kurtosis_roll_belt"} {
		if !droppedSet[name] {
			t.Errorf("expected %s in dropped list, got %v", name, schema.Dropped)
		}
	}

	// Integer sensor columns are declared numeric because widening follows
	if kind, _ := schema.FeatureKind("total_accel_belt"); kind != table.KindNumeric {
		t.Errorf("integer feature should be declared numeric, got %s", kind)
	}
	if schema.Outcome != "classe" || schema.Subject != "user_name" {
		t.Errorf("unexpected roles: outcome=%s subject=%s", schema.Outcome, schema.Subject)
	}
}

func TestNormalizeMissingMapsSentinels(t *testing.T) {
	ref := buildReference(t)
	out, mapped := NormalizeMissing(ref, DefaultOptions().MissingTokens)

	if mapped != 5 {
		t.Errorf("expected 5 sentinel cells mapped, got %d", mapped)
	}
	col, _ := out.Column("kurtosis_roll_belt")
	if col.MissingCount() != 5 {
		t.Errorf("expected 5 missing after normalization, got %d", col.MissingCount())
	}
	if tok, ok := col.TokenAt(3); !ok || tok != "1.3004" {
		t.Errorf("observed token should survive normalization, got %q ok=%v", tok, ok)
	}

	// Second pass changes nothing
	again, mapped2 := NormalizeMissing(out, DefaultOptions().MissingTokens)
	if mapped2 != 0 {
		t.Errorf("second normalization should map nothing, mapped %d", mapped2)
	}
	if again.Fingerprint() != out.Fingerprint() {
		t.Errorf("second normalization should be a no-op")
	}
}

func TestPrepareEndToEnd(t *testing.T) {
	res, err := Prepare(buildReference(t), buildQuery(t), DefaultOptions())
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	// No missing cells remain anywhere the schema can see
	for _, f := range res.Schema.Features {
		refCol, _ := res.Reference.Column(f.Name)
		if refCol.MissingCount() != 0 {
			t.Errorf("reference %s still has %d missing cells", f.Name, refCol.MissingCount())
		}
		queryCol, _ := res.Query.Column(f.Name)
		if queryCol.MissingCount() != 0 {
			t.Errorf("query %s still has %d missing cells", f.Name, queryCol.MissingCount())
		}
	}

	// Both outputs validate against the declared schema
	if err := res.Schema.Validate(res.Reference, true); err != nil {
		t.Errorf("prepared reference: %v", err)
	}
	if err := res.Schema.Validate(res.Query, false); err != nil {
		t.Errorf("prepared query: %v", err)
	}

	// Integer sensor columns were widened to float storage
	col, _ := res.Reference.Column("total_accel_belt")
	if col.Kind != table.KindNumeric {
		t.Errorf("expected widened numeric storage, got %s", col.Kind)
	}

	// pitch_belt gaps filled with the observed reference mean
	pitch, _ := res.Reference.Column("pitch_belt")
	wantMean := (8.07 + 8.07 + 8.07 + 8.05) / 4
	if v, _ := pitch.FloatAt(1); math.Abs(v-wantMean) > 1e-9 {
		t.Errorf("expected imputed %f at row 1, got %f", wantMean, v)
	}
	if res.RefImputation.Filled != 2 {
		t.Errorf("expected 2 reference fills, got %d", res.RefImputation.Filled)
	}

	// Outcome reattached with labels intact
	outcome, err := res.Reference.Column("classe")
	if err != nil {
		t.Fatalf("outcome column missing after preparation: %v", err)
	}
	if tok, _ := outcome.TokenAt(2); tok != "B" {
		t.Errorf("outcome order disturbed: row 2 = %q", tok)
	}

	// Query subject codes follow the reference level table
	refSub, _ := res.Reference.Column("user_name")
	querySub, _ := res.Query.Column("user_name")
	if querySub.Codes[0] != refSub.LevelCode("pedro") {
		t.Errorf("query subject must use reference level codes")
	}
}

func TestPrepareIsIdempotent(t *testing.T) {
	first, err := Prepare(buildReference(t), buildQuery(t), DefaultOptions())
	if err != nil {
		t.Fatalf("first prepare: %v", err)
	}
	second, err := Prepare(first.Reference, first.Query, DefaultOptions())
	if err != nil {
		t.Fatalf("second prepare: %v", err)
	}

	if !first.Schema.Equal(second.Schema) {
		t.Errorf("schema changed across preparations")
	}
	if first.Reference.Fingerprint() != second.Reference.Fingerprint() {
		t.Errorf("prepared reference changed across preparations")
	}
	if first.Query.Fingerprint() != second.Query.Fingerprint() {
		t.Errorf("prepared query changed across preparations")
	}
	if second.RefImputation.Filled != 0 || second.QueryImputation.Filled != 0 {
		t.Errorf("second preparation should impute nothing")
	}
}

func TestImputeMeansSimpleColumn(t *testing.T) {
	tbl, err := table.NewTable("t", []*table.Column{
		table.NewNumericColumn("v", []float64{1, 0, 3}, []bool{false, true, false}),
	})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	schema := &table.Schema{Features: []table.Field{{Name: "v", Kind: table.KindNumeric}}}

	out, report, err := ImputeMeans(tbl, schema)
	if err != nil {
		t.Fatalf("impute: %v", err)
	}
	col, _ := out.Column("v")
	if v, ok := col.FloatAt(1); !ok || math.Abs(v-2) > 1e-12 {
		t.Errorf("expected [1, missing, 3] to fill with 2, got %v ok=%v", v, ok)
	}
	if report.Filled != 1 || report.Columns[0].Mean != 2 {
		t.Errorf("unexpected report: %+v", report)
	}

	// Input table untouched
	orig, _ := tbl.Column("v")
	if orig.MissingCount() != 1 {
		t.Errorf("imputation must not mutate its input")
	}
}

func TestImputeMeansFailsOnEmptyColumn(t *testing.T) {
	tbl, err := table.NewTable("t", []*table.Column{
		table.NewNumericColumn("all_gone", []float64{0, 0}, []bool{true, true}),
	})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	schema := &table.Schema{Features: []table.Field{{Name: "all_gone", Kind: table.KindNumeric}}}

	_, _, err = ImputeMeans(tbl, schema)
	if !errors.Is(err, core.ErrEmptyColumn) {
		t.Fatalf("expected empty column error, got %v", err)
	}
	if !strings.Contains(err.Error(), "all_gone") {
		t.Errorf("diagnostic should name the column: %v", err)
	}
}

func TestPrepareRejectsUnknownSubjectLevel(t *testing.T) {
	query := buildQuery(t)
	// Swap the subject column for one carrying an unseen participant
	cols := make([]*table.Column, 0, query.NumCols())
	for i := 0; i < query.NumCols(); i++ {
		c := query.ColumnAt(i)
		if c.Name == "user_name" {
			c = table.NewCategoricalColumn("user_name", []string{"eurico", "jeremy"}, nil)
		}
		cols = append(cols, c)
	}
	modified, err := table.NewTable("query", cols)
	if err != nil {
		t.Fatalf("rebuild query: %v", err)
	}

	_, err = Prepare(buildReference(t), modified, DefaultOptions())
	if !errors.Is(err, core.ErrUnknownLevel) {
		t.Fatalf("expected unknown level error, got %v", err)
	}
}

func TestConformRejectsMissingFeature(t *testing.T) {
	ref := buildReference(t)
	refN, _ := NormalizeMissing(ref, DefaultOptions().MissingTokens)
	schema := &table.Schema{
		Features: []table.Field{{Name: "gyros_dumbbell_z", Kind: table.KindNumeric}},
		Outcome:  "classe",
	}
	_, err := ConformToSchema(refN, schema, true)
	if !errors.Is(err, core.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch for absent feature, got %v", err)
	}
}

func TestFeatureMatrixAndLabels(t *testing.T) {
	res, err := Prepare(buildReference(t), buildQuery(t), DefaultOptions())
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	m, err := FeatureMatrix(res.Reference, res.Schema)
	if err != nil {
		t.Fatalf("feature matrix: %v", err)
	}
	if len(m) != 6 || len(m[0]) != res.Schema.NumFeatures() {
		t.Fatalf("unexpected matrix shape %dx%d", len(m), len(m[0]))
	}

	labels, err := OutcomeLabels(res.Reference, res.Schema)
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	want := []string{"A", "A", "B", "C", "D", "E"}
	for i, l := range labels {
		if string(l) != want[i] {
			t.Errorf("label %d: expected %s, got %s", i, want[i], l)
		}
	}

	// The unlabeled query encodes without the outcome
	qm, err := FeatureMatrix(res.Query, res.Schema)
	if err != nil {
		t.Fatalf("query matrix: %v", err)
	}
	if len(qm) != 2 {
		t.Fatalf("expected 2 query rows, got %d", len(qm))
	}
	if _, err := OutcomeLabels(res.Query, res.Schema); err == nil {
		t.Errorf("query table has no outcome; labels must fail")
	}
}

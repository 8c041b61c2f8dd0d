package prep

import (
	"gohar/domain/core"
	"gohar/domain/table"
)

// InferOptions declares the roles needed to derive a schema from the query
// table. Defaults match the weight lifting exercise export.
type InferOptions struct {
	Outcome     string
	Subject     string
	DropColumns []string
}

// DefaultInferOptions returns the conventional column roles for the course
// data: classe outcome, user_name subject, and the bookkeeping columns that
// carry no sensor signal.
func DefaultInferOptions() InferOptions {
	return InferOptions{
		Outcome: "classe",
		Subject: "user_name",
		DropColumns: []string{
			"X",
			"raw_timestamp_part_1",
			"raw_timestamp_part_2",
			"cvtd_timestamp",
			"new_window",
			"num_window",
			"problem_id",
		},
	}
}

// InferSchema derives the declared feature schema from the query table: a
// column is a feature exactly when it is not bookkeeping, not the outcome,
// and not entirely missing. Integer columns are declared numeric because
// preparation widens them before modeling.
func InferSchema(query *table.Table, opts InferOptions) (*table.Schema, error) {
	if query.NumRows() == 0 {
		return nil, core.ErrInsufficientData
	}

	drop := make(map[string]bool, len(opts.DropColumns))
	for _, name := range opts.DropColumns {
		drop[name] = true
	}

	schema := &table.Schema{Outcome: opts.Outcome, Subject: opts.Subject}
	for i := 0; i < query.NumCols(); i++ {
		col := query.ColumnAt(i)
		if drop[col.Name] || col.Name == opts.Outcome {
			schema.Dropped = append(schema.Dropped, col.Name)
			continue
		}
		if col.AllMissing() {
			schema.Dropped = append(schema.Dropped, col.Name)
			continue
		}
		kind := col.Kind
		if kind == table.KindInteger {
			kind = table.KindNumeric
		}
		schema.Features = append(schema.Features, table.Field{Name: col.Name, Kind: kind})
	}

	if len(schema.Features) == 0 {
		return nil, core.ErrInsufficientData
	}
	if opts.Subject != "" && !schema.HasFeature(opts.Subject) {
		return nil, core.NewSchemaMismatchError(opts.Subject, "subject column missing from query table")
	}
	return schema, nil
}

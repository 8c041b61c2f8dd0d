package prep

import (
	"fmt"

	"gohar/domain/classify"
	"gohar/domain/core"
	"gohar/domain/table"
)

// FeatureMatrix encodes a prepared table as dense float rows in schema
// feature order. Categorical features contribute their level codes. Any
// remaining missing cell is a preparation bug and fails loud.
func FeatureMatrix(t *table.Table, schema *table.Schema) ([][]float64, error) {
	cols := make([]*table.Column, schema.NumFeatures())
	for i, f := range schema.Features {
		col, err := t.Column(f.Name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}

	rows := make([][]float64, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		row := make([]float64, len(cols))
		for c, col := range cols {
			v, ok := col.FloatAt(r)
			if !ok {
				return nil, fmt.Errorf("%w: column %s row %d", core.ErrMissingRemains, col.Name, r)
			}
			row[c] = v
		}
		rows[r] = row
	}
	return rows, nil
}

// OutcomeLabels extracts the outcome column as labels in row order
func OutcomeLabels(t *table.Table, schema *table.Schema) ([]classify.Label, error) {
	col, err := t.Column(schema.Outcome)
	if err != nil {
		return nil, core.NewSchemaMismatchError(schema.Outcome, "outcome column absent")
	}
	labels := make([]classify.Label, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		tok, ok := col.TokenAt(r)
		if !ok {
			return nil, fmt.Errorf("%w: outcome %s row %d", core.ErrMissingRemains, schema.Outcome, r)
		}
		labels[r] = classify.Label(tok)
	}
	return labels, nil
}

package prep

import (
	"fmt"

	"gohar/domain/core"
	"gohar/domain/table"
)

// ConformToSchema selects schema feature columns in schema order, with the
// outcome appended when withOutcome is set. Kinds must be compatible with
// the declaration: integer storage satisfies a numeric declaration because
// widening follows, but a categorical column can never satisfy numeric or
// vice versa.
func ConformToSchema(t *table.Table, schema *table.Schema, withOutcome bool) (*table.Table, error) {
	cols := make([]*table.Column, 0, schema.NumFeatures()+1)
	for _, f := range schema.Features {
		col, err := t.Column(f.Name)
		if err != nil {
			return nil, core.NewSchemaMismatchError(f.Name, "absent from table")
		}
		if !kindCompatible(f.Kind, col.Kind) {
			return nil, core.NewSchemaMismatchError(f.Name,
				fmt.Sprintf("declared %s but stored as %s", f.Kind, col.Kind))
		}
		cols = append(cols, col)
	}

	if withOutcome {
		col, err := t.Column(schema.Outcome)
		if err != nil {
			return nil, core.NewSchemaMismatchError(schema.Outcome, "outcome column absent")
		}
		if col.Kind != table.KindCategorical {
			return nil, core.NewSchemaMismatchError(schema.Outcome,
				fmt.Sprintf("outcome must be categorical, stored as %s", col.Kind))
		}
		cols = append(cols, col)
	} else if t.HasColumn(schema.Outcome) {
		return nil, core.NewSchemaMismatchError(schema.Outcome, "outcome column must not be present")
	}

	return table.NewTable(t.Name(), cols)
}

func kindCompatible(declared, actual table.ColumnKind) bool {
	if declared == actual {
		return true
	}
	return declared == table.KindNumeric && actual == table.KindInteger
}

// WidenIntegers converts integer-stored feature columns to float storage so
// actual kinds match the declared schema. Already-numeric columns are
// untouched, which makes the pass idempotent.
func WidenIntegers(t *table.Table, schema *table.Schema) (*table.Table, error) {
	cols := make([]*table.Column, 0, t.NumCols())
	for i := 0; i < t.NumCols(); i++ {
		col := t.ColumnAt(i)
		kind, declared := schema.FeatureKind(col.Name)
		if declared && kind == table.KindNumeric && col.Kind == table.KindInteger {
			cols = append(cols, col.Widen())
			continue
		}
		cols = append(cols, col)
	}
	return table.NewTable(t.Name(), cols)
}

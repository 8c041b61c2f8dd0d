package prep

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"gohar/domain/core"
	"gohar/domain/table"
)

// ColumnImputation records one column's fill during imputation
type ColumnImputation struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Filled int     `json:"filled"`
}

// ImputationReport summarizes the fills applied to one table
type ImputationReport struct {
	Table   string             `json:"table"`
	Columns []ColumnImputation `json:"columns,omitempty"`
	Filled  int                `json:"filled"`
}

// ColumnMeans computes the observed mean of every numeric schema feature.
// A column with zero observed cells is an immediate, named failure; silently
// propagating NaN into the models is never acceptable.
func ColumnMeans(t *table.Table, schema *table.Schema) (map[string]float64, error) {
	means := make(map[string]float64, schema.NumFeatures())
	for _, f := range schema.Features {
		if f.Kind != table.KindNumeric {
			continue
		}
		col, err := t.Column(f.Name)
		if err != nil {
			return nil, err
		}
		observed := col.Observed()
		if len(observed) == 0 {
			return nil, core.NewEmptyColumnError(f.Name)
		}
		mean, err := stats.Mean(observed)
		if err != nil {
			return nil, fmt.Errorf("mean of column %s: %w", f.Name, err)
		}
		means[f.Name] = mean
	}
	return means, nil
}

// ImputeMeans fills missing numeric cells with the table's own column means
func ImputeMeans(t *table.Table, schema *table.Schema) (*table.Table, *ImputationReport, error) {
	means, err := ColumnMeans(t, schema)
	if err != nil {
		return nil, nil, err
	}
	return ApplyMeans(t, schema, means)
}

// ApplyMeans fills missing numeric cells from a supplied means map. The
// query table is imputed with reference means so both tables share one
// imputation model.
func ApplyMeans(t *table.Table, schema *table.Schema, means map[string]float64) (*table.Table, *ImputationReport, error) {
	report := &ImputationReport{Table: t.Name()}
	cols := make([]*table.Column, 0, t.NumCols())

	for i := 0; i < t.NumCols(); i++ {
		col := t.ColumnAt(i)
		kind, declared := schema.FeatureKind(col.Name)
		if !declared || col.MissingCount() == 0 {
			cols = append(cols, col)
			continue
		}

		switch {
		case kind == table.KindNumeric && col.Kind == table.KindInteger:
			return nil, nil, core.NewValidationError(col.Name, "integer column must be widened before imputation")
		case kind == table.KindCategorical:
			return nil, nil, core.NewValidationError(col.Name,
				fmt.Sprintf("categorical feature has %d missing cells; mean imputation is undefined", col.MissingCount()))
		}

		mean, ok := means[col.Name]
		if !ok {
			return nil, nil, core.NewValidationError(col.Name, "no mean available for imputation")
		}

		filled := 0
		clean := col.Clone()
		for r := 0; r < clean.Len(); r++ {
			if clean.Missing[r] {
				clean.Floats[r] = mean
				clean.Missing[r] = false
				filled++
			}
		}
		report.Columns = append(report.Columns, ColumnImputation{Column: col.Name, Mean: mean, Filled: filled})
		report.Filled += filled
		cols = append(cols, clean)
	}

	out, err := table.NewTable(t.Name(), cols)
	if err != nil {
		return nil, nil, err
	}
	return out, report, nil
}

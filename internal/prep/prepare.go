package prep

import (
	"fmt"

	"gohar/domain/core"
	"gohar/domain/table"
)

// Options configures a preparation pass
type Options struct {
	Infer         InferOptions
	MissingTokens []string
}

// DefaultOptions matches the course data conventions
func DefaultOptions() Options {
	return Options{
		Infer:         DefaultInferOptions(),
		MissingTokens: []string{"", "NA", "#DIV/0!"},
	}
}

// Result carries both prepared tables, the declared schema, and the
// bookkeeping needed for reports and artifacts.
type Result struct {
	Reference       *table.Table
	Query           *table.Table
	Schema          *table.Schema
	RefImputation   *ImputationReport
	QueryImputation *ImputationReport
	SentinelCells   int
}

// Prepare runs the full preparation contract over a labeled reference table
// and an unlabeled query table:
//
//  1. map sentinel tokens to missing cells
//  2. derive the declared schema from the query table
//  3. conform both tables to the schema, outcome on reference only
//  4. widen integer features to float
//  5. close the subject level set over the reference table
//  6. mean-impute numeric gaps, reference means driving both tables
//
// The outcome column sits out the numeric passes and is reattached before
// the final validation. Prepared outputs contain no missing cells and both
// expose the same feature schema; feeding them back through Prepare changes
// nothing.
func Prepare(ref, query *table.Table, opts Options) (*Result, error) {
	if ref == nil || query == nil || ref.NumRows() == 0 || query.NumRows() == 0 {
		return nil, core.ErrInsufficientData
	}

	refN, mappedRef := NormalizeMissing(ref, opts.MissingTokens)
	queryN, mappedQuery := NormalizeMissing(query, opts.MissingTokens)

	schema, err := InferSchema(queryN, opts.Infer)
	if err != nil {
		return nil, err
	}

	refC, err := ConformToSchema(refN, schema, true)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	queryC, err := ConformToSchema(queryN, schema, false)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	// Outcome detaches here and returns after the numeric work
	outcomeCol, err := refC.Column(schema.Outcome)
	if err != nil {
		return nil, err
	}
	if outcomeCol.MissingCount() > 0 {
		return nil, fmt.Errorf("%w: outcome %s has %d missing labels",
			core.ErrMissingRemains, schema.Outcome, outcomeCol.MissingCount())
	}
	refF, err := refC.DropColumns([]string{schema.Outcome})
	if err != nil {
		return nil, err
	}

	refW, err := WidenIntegers(refF, schema)
	if err != nil {
		return nil, err
	}
	queryW, err := WidenIntegers(queryC, schema)
	if err != nil {
		return nil, err
	}

	if schema.Subject != "" {
		refSub, err := refW.Column(schema.Subject)
		if err != nil {
			return nil, err
		}
		querySub, err := queryW.Column(schema.Subject)
		if err != nil {
			return nil, err
		}
		relabeled, err := querySub.RelabelTo(refSub)
		if err != nil {
			return nil, err
		}
		queryW, err = replaceColumn(queryW, relabeled)
		if err != nil {
			return nil, err
		}
	}

	means, err := ColumnMeans(refW, schema)
	if err != nil {
		return nil, err
	}
	refI, refReport, err := ApplyMeans(refW, schema, means)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	queryI, queryReport, err := ApplyMeans(queryW, schema, means)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	refOut, err := refI.WithColumn(outcomeCol)
	if err != nil {
		return nil, err
	}

	if err := schema.Validate(refOut, true); err != nil {
		return nil, fmt.Errorf("prepared reference: %w", err)
	}
	if err := schema.Validate(queryI, false); err != nil {
		return nil, fmt.Errorf("prepared query: %w", err)
	}
	if err := verifyNoFeatureGaps(refOut, schema); err != nil {
		return nil, fmt.Errorf("prepared reference: %w", err)
	}
	if err := verifyNoFeatureGaps(queryI, schema); err != nil {
		return nil, fmt.Errorf("prepared query: %w", err)
	}

	return &Result{
		Reference:       refOut,
		Query:           queryI,
		Schema:          schema,
		RefImputation:   refReport,
		QueryImputation: queryReport,
		SentinelCells:   mappedRef + mappedQuery,
	}, nil
}

func replaceColumn(t *table.Table, col *table.Column) (*table.Table, error) {
	cols := make([]*table.Column, t.NumCols())
	for i := 0; i < t.NumCols(); i++ {
		c := t.ColumnAt(i)
		if c.Name == col.Name {
			cols[i] = col
		} else {
			cols[i] = c
		}
	}
	return table.NewTable(t.Name(), cols)
}

func verifyNoFeatureGaps(t *table.Table, schema *table.Schema) error {
	for _, f := range schema.Features {
		col, err := t.Column(f.Name)
		if err != nil {
			return err
		}
		if n := col.MissingCount(); n > 0 {
			return fmt.Errorf("%w: column %s has %d missing cells", core.ErrMissingRemains, f.Name, n)
		}
	}
	return nil
}

package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gohar/domain/core"
	"gohar/domain/table"
)

// readExcel reads the configured sheet into a table. Cell text goes through
// the same missing-token mapping as CSV input, and column kinds are inferred
// from the observed values.
func (r *DataReader) readExcel(path string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: sheet %s: %v", core.ErrMalformedInput, path, r.config.SheetName, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s needs a header row and at least one data row", core.ErrInsufficientData, path)
	}

	names := normalizeHeaders(rows[0])
	grid := rows[1:]
	missing := make(map[string]bool, len(r.config.MissingTokens))
	for _, tok := range r.config.MissingTokens {
		missing[tok] = true
	}

	cols := make([]*table.Column, len(names))
	for j, name := range names {
		kind := r.inferColumnKind(grid, j, missing)
		col := table.NewColumn(name, kind)
		for i := range grid {
			tok := cellAt(grid, i, j)
			if missing[strings.TrimSpace(tok)] {
				appendCell(col, table.MissingValue(kind))
				continue
			}
			v, err := parseCell(strings.TrimSpace(tok), kind)
			if err != nil {
				return nil, fmt.Errorf("%w: %s row %d column %s: %v", core.ErrMalformedInput, path, i+2, name, err)
			}
			appendCell(col, v)
		}
		cols[j] = col
	}
	return table.NewTable(path, cols)
}

// cellAt tolerates the short rows excelize produces when trailing cells are
// empty
func cellAt(grid [][]string, i, j int) string {
	if j >= len(grid[i]) {
		return ""
	}
	return grid[i][j]
}

// inferColumnKind scans every observed cell: a column is integer when each
// token parses as one, numeric when each parses as a float, categorical
// otherwise. Entirely-missing columns default to categorical.
func (r *DataReader) inferColumnKind(grid [][]string, j int, missing map[string]bool) table.ColumnKind {
	sampled := 0
	allInt := true
	allFloat := true
	for i := range grid {
		tok := strings.TrimSpace(cellAt(grid, i, j))
		if missing[tok] {
			continue
		}
		sampled++
		if _, err := strconv.ParseInt(tok, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(tok, 64); err != nil {
			allFloat = false
		}
		if !allInt && !allFloat {
			return table.KindCategorical
		}
	}
	switch {
	case sampled == 0:
		return table.KindCategorical
	case allInt:
		return table.KindInteger
	case allFloat:
		return table.KindNumeric
	default:
		return table.KindCategorical
	}
}

func parseCell(tok string, kind table.ColumnKind) (table.Value, error) {
	switch kind {
	case table.KindInteger:
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return table.Value{}, err
		}
		return table.NewIntegerValue(n), nil
	case table.KindNumeric:
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return table.Value{}, err
		}
		return table.NewNumericValue(f), nil
	default:
		return table.NewCategoricalValue(tok), nil
	}
}

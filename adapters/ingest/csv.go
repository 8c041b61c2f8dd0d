package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"gohar/domain/core"
	"gohar/domain/table"
)

// readCSV parses a delimited file through gota with the configured missing
// tokens mapped to NA during load. The header row is parsed separately so
// unnamed columns get stable names before gota sees them.
func (r *DataReader) readCSV(path string) (*table.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	headerLine, rest, err := splitHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrMalformedInput, path, err)
	}
	hr := csv.NewReader(bytes.NewReader(headerLine))
	hr.Comma = r.config.Delimiter
	header, err := hr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: header: %v", core.ErrMalformedInput, path, err)
	}
	names := normalizeHeaders(header)

	df := dataframe.ReadCSV(bytes.NewReader(rest),
		dataframe.HasHeader(false),
		dataframe.Names(names...),
		dataframe.WithDelimiter(r.config.Delimiter),
		dataframe.NaNValues(r.config.MissingTokens),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrMalformedInput, path, df.Err)
	}
	if df.Nrow() == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", core.ErrInsufficientData, path)
	}

	return frameToTable(path, df)
}

// splitHeader cuts the raw file at the first line break, tolerating CRLF
func splitHeader(raw []byte) ([]byte, []byte, error) {
	nl := bytes.IndexByte(raw, '\n')
	if nl < 0 {
		return nil, nil, fmt.Errorf("no data rows after header")
	}
	header := raw[:nl]
	if len(header) > 0 && header[len(header)-1] == '\r' {
		header = header[:len(header)-1]
	}
	rest := raw[nl+1:]
	if len(bytes.TrimSpace(rest)) == 0 {
		return nil, nil, fmt.Errorf("no data rows after header")
	}
	return header, rest, nil
}

// normalizeHeaders gives every column a usable name. An unnamed leading
// column becomes "X", matching how the course data names its row-number
// column; later unnamed columns get positional names.
func normalizeHeaders(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			if i == 0 {
				name = "X"
			} else {
				name = fmt.Sprintf("X.%d", i)
			}
		}
		base := name
		for n := seen[base]; seen[name] > 0; n++ {
			name = fmt.Sprintf("%s.%d", base, n)
			seen[base] = n + 1
		}
		seen[name]++
		names[i] = name
	}
	return names
}

// frameToTable converts a typed gota frame into the column store
func frameToTable(name string, df dataframe.DataFrame) (*table.Table, error) {
	cols := make([]*table.Column, 0, df.Ncol())
	for _, colName := range df.Names() {
		s := df.Col(colName)
		col, err := seriesToColumn(colName, s)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", colName, err)
		}
		cols = append(cols, col)
	}
	return table.NewTable(name, cols)
}

func seriesToColumn(name string, s series.Series) (*table.Column, error) {
	switch s.Type() {
	case series.Float:
		col := table.NewColumn(name, table.KindNumeric)
		for i := 0; i < s.Len(); i++ {
			e := s.Elem(i)
			if e.IsNA() {
				appendCell(col, table.MissingValue(table.KindNumeric))
				continue
			}
			appendCell(col, table.NewNumericValue(e.Float()))
		}
		return col, nil
	case series.Int:
		col := table.NewColumn(name, table.KindInteger)
		for i := 0; i < s.Len(); i++ {
			e := s.Elem(i)
			if e.IsNA() {
				appendCell(col, table.MissingValue(table.KindInteger))
				continue
			}
			n, err := e.Int()
			if err != nil {
				appendCell(col, table.MissingValue(table.KindInteger))
				continue
			}
			appendCell(col, table.NewIntegerValue(int64(n)))
		}
		return col, nil
	default:
		// String and Bool series both land as categorical tokens
		col := table.NewColumn(name, table.KindCategorical)
		for i := 0; i < s.Len(); i++ {
			e := s.Elem(i)
			if e.IsNA() {
				appendCell(col, table.MissingValue(table.KindCategorical))
				continue
			}
			appendCell(col, table.NewCategoricalValue(e.String()))
		}
		return col, nil
	}
}

// appendCell ignores the kind-mismatch error; cells here are built with the
// column's own kind
func appendCell(col *table.Column, v table.Value) {
	_ = col.Append(v)
}

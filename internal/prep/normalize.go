package prep

import (
	"gohar/domain/table"
)

// NormalizeMissing maps sentinel tokens in categorical columns to missing
// cells. Numeric columns pass through; the ingest edge already turned their
// sentinels into missing values, so repeating the pass is a no-op.
func NormalizeMissing(t *table.Table, tokens []string) (*table.Table, int) {
	sentinel := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		sentinel[tok] = true
	}

	mapped := 0
	cols := make([]*table.Column, 0, t.NumCols())
	for i := 0; i < t.NumCols(); i++ {
		col := t.ColumnAt(i)
		if col.Kind != table.KindCategorical {
			cols = append(cols, col)
			continue
		}

		dirty := false
		for r := 0; r < col.Len(); r++ {
			if tok, ok := col.TokenAt(r); ok && sentinel[tok] {
				dirty = true
				break
			}
		}
		if !dirty {
			cols = append(cols, col)
			continue
		}

		// Rebuild the column so sentinel-free level tables stay compact
		clean := table.NewColumn(col.Name, table.KindCategorical)
		for r := 0; r < col.Len(); r++ {
			tok, ok := col.TokenAt(r)
			if !ok || sentinel[tok] {
				if ok {
					mapped++
				}
				_ = clean.Append(table.MissingValue(table.KindCategorical))
				continue
			}
			_ = clean.Append(table.NewCategoricalValue(tok))
		}
		cols = append(cols, clean)
	}

	out, _ := table.NewTable(t.Name(), cols)
	return out, mapped
}

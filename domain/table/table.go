package table

import (
	"fmt"
	"strconv"
	"strings"

	"gohar/domain/core"
)

// Table is an ordered collection of equal-length columns. Operations return
// new tables; inputs are never mutated in place.
type Table struct {
	name    string
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable creates a table from columns, rejecting duplicate names and
// ragged lengths.
func NewTable(name string, columns []*Column) (*Table, error) {
	t := &Table{name: name, index: make(map[string]int, len(columns))}
	for i, col := range columns {
		if col == nil {
			return nil, fmt.Errorf("nil column at position %d", i)
		}
		if _, exists := t.index[col.Name]; exists {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateColumn, col.Name)
		}
		if i == 0 {
			t.rows = col.Len()
		} else if col.Len() != t.rows {
			return nil, fmt.Errorf("column %s has %d rows, expected %d", col.Name, col.Len(), t.rows)
		}
		t.index[col.Name] = i
		t.columns = append(t.columns, col)
	}
	return t, nil
}

// Name returns the table name
func (t *Table) Name() string { return t.name }

// NumRows returns the row count
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count
func (t *Table) NumCols() int { return len(t.columns) }

// Column returns a column by name
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s in table %s", core.ErrColumnNotFound, name, t.name)
	}
	return t.columns[i], nil
}

// HasColumn reports whether a column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnAt returns the column at position i
func (t *Table) ColumnAt(i int) *Column { return t.columns[i] }

// ColumnNames returns column names in table order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// SelectColumns returns a new table holding the named columns in the given
// order. Columns are shared, not copied; mutate via Clone first.
func (t *Table) SelectColumns(names []string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return NewTable(t.name, cols)
}

// DropColumns returns a new table without the named columns. Unknown names
// are ignored so bookkeeping drop lists can be shared across tables.
func (t *Table) DropColumns(names []string) (*Table, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	cols := make([]*Column, 0, len(t.columns))
	for _, col := range t.columns {
		if !drop[col.Name] {
			cols = append(cols, col)
		}
	}
	return NewTable(t.name, cols)
}

// WithColumn returns a new table with the column appended
func (t *Table) WithColumn(col *Column) (*Table, error) {
	cols := make([]*Column, 0, len(t.columns)+1)
	cols = append(cols, t.columns...)
	cols = append(cols, col)
	return NewTable(t.name, cols)
}

// Rename returns a shallow copy under a new table name
func (t *Table) Rename(name string) *Table {
	out := &Table{name: name, columns: t.columns, index: t.index, rows: t.rows}
	return out
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.columns))
	for i, col := range t.columns {
		cols[i] = col.Clone()
	}
	out, _ := NewTable(t.name, cols)
	return out
}

// MissingCells returns the total number of missing cells
func (t *Table) MissingCells() int {
	n := 0
	for _, col := range t.columns {
		n += col.MissingCount()
	}
	return n
}

// Fingerprint hashes shape, column names, and full cell contents. Two
// ingests of the same file fingerprint identically.
func (t *Table) Fingerprint() core.DataFingerprint {
	var cells strings.Builder
	buf := make([]byte, 0, 32)
	for _, col := range t.columns {
		cells.WriteString(col.Name)
		cells.WriteByte('|')
		for i := 0; i < col.Len(); i++ {
			if col.Missing[i] {
				cells.WriteByte('?')
				continue
			}
			switch col.Kind {
			case KindNumeric:
				buf = strconv.AppendFloat(buf[:0], col.Floats[i], 'g', -1, 64)
				cells.Write(buf)
			case KindInteger:
				buf = strconv.AppendInt(buf[:0], col.Ints[i], 10)
				cells.Write(buf)
			case KindCategorical:
				cells.WriteString(col.Levels[col.Codes[i]])
			}
			cells.WriteByte(',')
		}
		cells.WriteByte('\n')
	}
	digest := core.NewHash([]byte(cells.String()))
	return core.ComputeDataFingerprint(t.rows, len(t.columns), t.ColumnNames(), digest)
}

package table

import (
	"fmt"

	"gohar/domain/core"
)

// Column stores one named, typed series. Storage is column-oriented: numeric
// payloads in Floats, integer payloads in Ints, categorical level codes in
// Codes with the level table in Levels. Missing runs parallel to the active
// payload slice.
type Column struct {
	Name    string
	Kind    ColumnKind
	Floats  []float64
	Ints    []int64
	Codes   []int
	Levels  []string
	Missing []bool

	levelIndex map[string]int
}

// NewColumn creates an empty column of the given kind
func NewColumn(name string, kind ColumnKind) *Column {
	return &Column{Name: name, Kind: kind, levelIndex: make(map[string]int)}
}

// NewNumericColumn creates a float column from payloads and a missing mask.
// A nil mask means fully observed.
func NewNumericColumn(name string, values []float64, missing []bool) *Column {
	if missing == nil {
		missing = make([]bool, len(values))
	}
	return &Column{Name: name, Kind: KindNumeric, Floats: values, Missing: missing, levelIndex: make(map[string]int)}
}

// NewIntegerColumn creates an integer column from payloads and a missing mask
func NewIntegerColumn(name string, values []int64, missing []bool) *Column {
	if missing == nil {
		missing = make([]bool, len(values))
	}
	return &Column{Name: name, Kind: KindInteger, Ints: values, Missing: missing, levelIndex: make(map[string]int)}
}

// NewCategoricalColumn creates a categorical column from raw tokens. Level
// codes are assigned in first-seen order; empty tokens are missing.
func NewCategoricalColumn(name string, tokens []string, missing []bool) *Column {
	c := NewColumn(name, KindCategorical)
	for i, tok := range tokens {
		if (missing != nil && missing[i]) || tok == "" {
			c.Append(MissingValue(KindCategorical))
			continue
		}
		c.Append(NewCategoricalValue(tok))
	}
	return c
}

// Len returns the number of cells
func (c *Column) Len() int {
	return len(c.Missing)
}

// Append adds one cell. The cell kind must match the column kind.
func (c *Column) Append(v Value) error {
	if v.Kind != c.Kind {
		return fmt.Errorf("cannot append %s cell to %s column %s", v.Kind, c.Kind, c.Name)
	}
	switch c.Kind {
	case KindNumeric:
		if v.IsMissing {
			c.Floats = append(c.Floats, 0)
		} else {
			c.Floats = append(c.Floats, v.Float)
		}
	case KindInteger:
		if v.IsMissing {
			c.Ints = append(c.Ints, 0)
		} else {
			c.Ints = append(c.Ints, v.Int)
		}
	case KindCategorical:
		if v.IsMissing {
			c.Codes = append(c.Codes, -1)
		} else {
			if c.levelIndex == nil {
				c.levelIndex = make(map[string]int)
			}
			code, ok := c.levelIndex[v.Token]
			if !ok {
				code = len(c.Levels)
				c.Levels = append(c.Levels, v.Token)
				c.levelIndex[v.Token] = code
			}
			c.Codes = append(c.Codes, code)
		}
	default:
		return fmt.Errorf("unknown column kind %s", c.Kind)
	}
	c.Missing = append(c.Missing, v.IsMissing)
	return nil
}

// At returns the cell at row i
func (c *Column) At(i int) Value {
	if c.Missing[i] {
		return MissingValue(c.Kind)
	}
	switch c.Kind {
	case KindNumeric:
		return NewNumericValue(c.Floats[i])
	case KindInteger:
		return NewIntegerValue(c.Ints[i])
	case KindCategorical:
		return NewCategoricalValue(c.Levels[c.Codes[i]])
	}
	return MissingValue(c.Kind)
}

// FloatAt returns the numeric payload at row i and whether it is observed.
// Categorical cells surface their level code so encoded tables stay numeric.
func (c *Column) FloatAt(i int) (float64, bool) {
	if c.Missing[i] {
		return 0, false
	}
	switch c.Kind {
	case KindNumeric:
		return c.Floats[i], true
	case KindInteger:
		return float64(c.Ints[i]), true
	case KindCategorical:
		return float64(c.Codes[i]), true
	}
	return 0, false
}

// TokenAt returns the categorical token at row i
func (c *Column) TokenAt(i int) (string, bool) {
	if c.Kind != KindCategorical || c.Missing[i] {
		return "", false
	}
	return c.Levels[c.Codes[i]], true
}

// LevelCode returns the code for a token, or -1 when unseen
func (c *Column) LevelCode(token string) int {
	if c.levelIndex == nil {
		return -1
	}
	code, ok := c.levelIndex[token]
	if !ok {
		return -1
	}
	return code
}

// MissingCount returns the number of missing cells
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// AllMissing reports whether no cell is observed
func (c *Column) AllMissing() bool {
	return c.Len() > 0 && c.MissingCount() == c.Len()
}

// Observed returns the non-missing numeric payloads in row order
func (c *Column) Observed() []float64 {
	out := make([]float64, 0, c.Len()-c.MissingCount())
	for i := range c.Missing {
		if v, ok := c.FloatAt(i); ok {
			out = append(out, v)
		}
	}
	return out
}

// Widen converts an integer column to numeric storage. Numeric columns pass
// through unchanged so the operation is idempotent.
func (c *Column) Widen() *Column {
	if c.Kind != KindInteger {
		return c
	}
	floats := make([]float64, len(c.Ints))
	for i, n := range c.Ints {
		floats[i] = float64(n)
	}
	missing := make([]bool, len(c.Missing))
	copy(missing, c.Missing)
	return NewNumericColumn(c.Name, floats, missing)
}

// Clone returns a deep copy
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	out.Floats = append([]float64(nil), c.Floats...)
	out.Ints = append([]int64(nil), c.Ints...)
	out.Codes = append([]int(nil), c.Codes...)
	out.Levels = append([]string(nil), c.Levels...)
	out.Missing = append([]bool(nil), c.Missing...)
	out.levelIndex = make(map[string]int, len(c.Levels))
	for code, tok := range out.Levels {
		out.levelIndex[tok] = code
	}
	return out
}

// RelabelTo recodes this categorical column against another column's level
// table. Tokens absent from the reference levels produce an error so query
// data cannot invent subject levels.
func (c *Column) RelabelTo(ref *Column) (*Column, error) {
	if c.Kind != KindCategorical || ref.Kind != KindCategorical {
		return nil, fmt.Errorf("relabel requires categorical columns, got %s and %s", c.Kind, ref.Kind)
	}
	out := NewColumn(c.Name, KindCategorical)
	out.Levels = append([]string(nil), ref.Levels...)
	out.levelIndex = make(map[string]int, len(ref.Levels))
	for code, tok := range out.Levels {
		out.levelIndex[tok] = code
	}
	for i := range c.Missing {
		if c.Missing[i] {
			out.Codes = append(out.Codes, -1)
			out.Missing = append(out.Missing, true)
			continue
		}
		tok := c.Levels[c.Codes[i]]
		code, ok := out.levelIndex[tok]
		if !ok {
			return nil, fmt.Errorf("%w: %s=%q at row %d", core.ErrUnknownLevel, c.Name, tok, i)
		}
		out.Codes = append(out.Codes, code)
		out.Missing = append(out.Missing, false)
	}
	return out, nil
}

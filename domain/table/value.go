package table

import "fmt"

// ColumnKind defines the storage type of a column
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindInteger     ColumnKind = "integer"
	KindCategorical ColumnKind = "categorical"
)

// Value represents one typed cell with an explicit missing state
type Value struct {
	Kind      ColumnKind `json:"kind"`
	Float     float64    `json:"float,omitempty"`
	Int       int64      `json:"int,omitempty"`
	Token     string     `json:"token,omitempty"`
	IsMissing bool       `json:"is_missing"`
}

// NewNumericValue creates a float cell
func NewNumericValue(f float64) Value {
	return Value{Kind: KindNumeric, Float: f}
}

// NewIntegerValue creates an integer cell
func NewIntegerValue(n int64) Value {
	return Value{Kind: KindInteger, Int: n}
}

// NewCategoricalValue creates a level-token cell
func NewCategoricalValue(token string) Value {
	if token == "" {
		return MissingValue(KindCategorical)
	}
	return Value{Kind: KindCategorical, Token: token}
}

// MissingValue creates a missing cell of the given kind
func MissingValue(kind ColumnKind) Value {
	return Value{Kind: kind, IsMissing: true}
}

// AsFloat returns the numeric payload regardless of integer or float storage
func (v Value) AsFloat() float64 {
	if v.Kind == KindInteger {
		return float64(v.Int)
	}
	return v.Float
}

// String returns a display form of the cell
func (v Value) String() string {
	if v.IsMissing {
		return "<missing>"
	}
	switch v.Kind {
	case KindNumeric:
		return fmt.Sprintf("%.6f", v.Float)
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindCategorical:
		return v.Token
	}
	return "<invalid>"
}

package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Short returns the first 12 hex characters for display
func (h Hash) Short() string {
	s := string(h)
	if len(s) > 12 {
		return s[:12]
	}
	return s
}

// Domain-specific hash types
type (
	DataFingerprint   Hash
	SchemaFingerprint Hash
	CodeVersion       Hash
)

// Constructors
func NewDataFingerprint(data []byte) DataFingerprint     { return DataFingerprint(NewHash(data)) }
func NewSchemaFingerprint(data []byte) SchemaFingerprint { return SchemaFingerprint(NewHash(data)) }
func NewCodeVersion(data []byte) CodeVersion             { return CodeVersion(NewHash(data)) }

// String conversions
func (h DataFingerprint) String() string   { return Hash(h).String() }
func (h SchemaFingerprint) String() string { return Hash(h).String() }
func (h CodeVersion) String() string       { return Hash(h).String() }

// ComputeSchemaFingerprint hashes an ordered column listing. Order is
// significant: two schemas with the same columns in different positions are
// different schemas.
func ComputeSchemaFingerprint(columns []string, kinds []string) SchemaFingerprint {
	var data strings.Builder
	for i, col := range columns {
		data.WriteString(col)
		data.WriteString("=")
		if i < len(kinds) {
			data.WriteString(kinds[i])
		}
		data.WriteString(";")
	}
	return NewSchemaFingerprint([]byte(data.String()))
}

// ComputeDataFingerprint hashes table shape plus a cell digest so two
// ingests of the same file produce the same fingerprint.
func ComputeDataFingerprint(rows, cols int, columns []string, cellDigest Hash) DataFingerprint {
	var data strings.Builder
	data.WriteString(strconv.Itoa(rows))
	data.WriteString("x")
	data.WriteString(strconv.Itoa(cols))
	data.WriteString(":")
	data.WriteString(strings.Join(columns, ","))
	data.WriteString(":")
	data.WriteString(cellDigest.String())
	return NewDataFingerprint([]byte(data.String()))
}

// ComputeRunFingerprint folds the inputs that determine a run's outputs into
// one hash. Equal fingerprints promise equal results.
func ComputeRunFingerprint(seed int64, folds, trees int, ref DataFingerprint, query DataFingerprint, schema SchemaFingerprint) Hash {
	var data strings.Builder
	data.WriteString(fmt.Sprintf("seed=%d;folds=%d;trees=%d;", seed, folds, trees))
	data.WriteString(ref.String())
	data.WriteString(";")
	data.WriteString(query.String())
	data.WriteString(";")
	data.WriteString(schema.String())
	return NewHash([]byte(data.String()))
}

package table

import (
	"fmt"

	"gohar/domain/core"
)

// Field names one schema feature and its expected storage kind
type Field struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Schema is the declared feature contract shared by the reference and query
// tables. It is built once, then passed explicitly to every preparation and
// modeling call; nothing depends on call order.
type Schema struct {
	Features []Field  `json:"features"`
	Outcome  string   `json:"outcome"`
	Subject  string   `json:"subject"`
	Dropped  []string `json:"dropped,omitempty"`
}

// FeatureNames returns feature names in schema order
func (s *Schema) FeatureNames() []string {
	names := make([]string, len(s.Features))
	for i, f := range s.Features {
		names[i] = f.Name
	}
	return names
}

// NumFeatures returns the feature count
func (s *Schema) NumFeatures() int { return len(s.Features) }

// HasFeature reports whether a name is a schema feature
func (s *Schema) HasFeature(name string) bool {
	for _, f := range s.Features {
		if f.Name == name {
			return true
		}
	}
	return false
}

// FeatureKind returns the declared kind for a feature name
func (s *Schema) FeatureKind(name string) (ColumnKind, bool) {
	for _, f := range s.Features {
		if f.Name == name {
			return f.Kind, true
		}
	}
	return "", false
}

// Validate checks that a table carries every schema feature with the declared
// kind. With requireOutcome the outcome column must also be present; without
// it the outcome must be absent. The first mismatch is named in the error.
func (s *Schema) Validate(t *Table, requireOutcome bool) error {
	for _, f := range s.Features {
		col, err := t.Column(f.Name)
		if err != nil {
			return core.NewSchemaMismatchError(f.Name, "absent from table")
		}
		if col.Kind != f.Kind {
			return core.NewSchemaMismatchError(f.Name,
				fmt.Sprintf("declared %s but stored as %s", f.Kind, col.Kind))
		}
	}
	if s.Outcome != "" {
		if requireOutcome && !t.HasColumn(s.Outcome) {
			return core.NewSchemaMismatchError(s.Outcome, "outcome column absent")
		}
		if !requireOutcome && t.HasColumn(s.Outcome) {
			return core.NewSchemaMismatchError(s.Outcome, "outcome column must not be present")
		}
	}
	return nil
}

// Equal reports feature-level equality, outcome and subject included
func (s *Schema) Equal(other *Schema) bool {
	if other == nil || len(s.Features) != len(other.Features) {
		return false
	}
	if s.Outcome != other.Outcome || s.Subject != other.Subject {
		return false
	}
	for i, f := range s.Features {
		if other.Features[i] != f {
			return false
		}
	}
	return true
}

// Fingerprint hashes the ordered feature listing plus outcome and subject
func (s *Schema) Fingerprint() core.SchemaFingerprint {
	names := make([]string, 0, len(s.Features)+2)
	kinds := make([]string, 0, len(s.Features)+2)
	for _, f := range s.Features {
		names = append(names, f.Name)
		kinds = append(kinds, string(f.Kind))
	}
	names = append(names, s.Outcome, s.Subject)
	kinds = append(kinds, "outcome", "subject")
	return core.ComputeSchemaFingerprint(names, kinds)
}

package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID      ID
	ArtifactID ID
	ColumnKey  ID
)

// String conversions for domain IDs
func (id RunID) String() string      { return ID(id).String() }
func (id ArtifactID) String() string { return ID(id).String() }
func (k ColumnKey) String() string   { return ID(k).String() }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParseArtifactID parses a string into ArtifactID
func ParseArtifactID(s string) (ArtifactID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("artifact ID cannot be empty")
	}
	return ArtifactID(s), nil
}

// ParseColumnKey parses a string into ColumnKey
func ParseColumnKey(s string) (ColumnKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("column key cannot be empty")
	}
	return ColumnKey(s), nil
}

// Artifact represents any output of the system
type Artifact struct {
	ID        ID           `json:"id"`
	Kind      ArtifactKind `json:"kind"`
	Payload   interface{}  `json:"payload"`
	CreatedAt Timestamp    `json:"created_at"`
}

// ArtifactKind defines types of artifacts
type ArtifactKind string

const (
	// ArtifactSchema is the declared feature schema derived during preparation.
	ArtifactSchema ArtifactKind = "schema"
	// ArtifactDataProfile captures per-column statistics of an ingested table.
	ArtifactDataProfile ArtifactKind = "data_profile"
	// ArtifactFoldAssignment records which rows landed in which CV fold.
	ArtifactFoldAssignment ArtifactKind = "fold_assignment"
	ArtifactTreeEvaluation ArtifactKind = "tree_evaluation"
	// ArtifactEnsembleEvaluation holds the pooled CV matrix and summary stats.
	ArtifactEnsembleEvaluation ArtifactKind = "ensemble_evaluation"
	ArtifactPredictions        ArtifactKind = "predictions"
	ArtifactRunManifest        ArtifactKind = "run_manifest"
	ArtifactReport             ArtifactKind = "report"
)

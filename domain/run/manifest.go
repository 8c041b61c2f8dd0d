package run

import (
	"gohar/domain/core"
)

// RunManifestArtifact captures the full parameterization of a run. It is
// the truth source for replay and must exist before any stage artifacts.
type RunManifestArtifact struct {
	RunID                core.RunID             `json:"run_id"`
	ReferencePath        string                 `json:"reference_path"`
	QueryPath            string                 `json:"query_path"`
	ReferenceFingerprint core.DataFingerprint   `json:"reference_fingerprint"`
	QueryFingerprint     core.DataFingerprint   `json:"query_fingerprint"`
	SchemaFingerprint    core.SchemaFingerprint `json:"schema_fingerprint"`
	Seed                 int64                  `json:"seed"`
	Folds                int                    `json:"folds"`
	Trees                int                    `json:"trees"`
	CodeVersion          string                 `json:"code_version"`
	Fingerprint          RunFingerprint         `json:"fingerprint"`
	Status               RunStatus              `json:"status"`
	CreatedAt            core.Timestamp         `json:"created_at"`
	CompletedAt          *core.Timestamp        `json:"completed_at,omitempty"`
}

// NewRunManifestArtifact creates a run manifest from pipeline inputs
func NewRunManifestArtifact(
	runID core.RunID,
	referencePath, queryPath string,
	refFP, queryFP core.DataFingerprint,
	schemaFP core.SchemaFingerprint,
	seed int64,
	folds, trees int,
	codeVersion string,
) *RunManifestArtifact {
	fingerprint := NewRunFingerprint(refFP, queryFP, schemaFP, seed, folds, trees, codeVersion)

	return &RunManifestArtifact{
		RunID:                runID,
		ReferencePath:        referencePath,
		QueryPath:            queryPath,
		ReferenceFingerprint: refFP,
		QueryFingerprint:     queryFP,
		SchemaFingerprint:    schemaFP,
		Seed:                 seed,
		Folds:                folds,
		Trees:                trees,
		CodeVersion:          codeVersion,
		Fingerprint:          fingerprint,
		Status:               RunRunning,
		CreatedAt:            core.Now(),
	}
}

// ToCoreArtifact converts to a core artifact for storage
func (r *RunManifestArtifact) ToCoreArtifact() core.Artifact {
	return core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactRunManifest,
		Payload:   r,
		CreatedAt: r.CreatedAt,
	}
}

// Complete marks the run finished with the given status
func (r *RunManifestArtifact) Complete(status RunStatus) {
	now := core.Now()
	r.Status = status
	r.CompletedAt = &now
}

// Validate checks if the manifest is complete
func (r *RunManifestArtifact) Validate() error {
	if core.ID(r.RunID).IsEmpty() {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if r.ReferenceFingerprint == "" {
		return core.NewValidationError("run_manifest", "reference_fingerprint cannot be empty")
	}
	if r.QueryFingerprint == "" {
		return core.NewValidationError("run_manifest", "query_fingerprint cannot be empty")
	}
	if r.SchemaFingerprint == "" {
		return core.NewValidationError("run_manifest", "schema_fingerprint cannot be empty")
	}
	if r.Folds < 2 {
		return core.NewValidationError("run_manifest", "folds must be at least 2")
	}
	if r.Trees < 1 {
		return core.NewValidationError("run_manifest", "trees must be at least 1")
	}
	if r.CodeVersion == "" {
		return core.NewValidationError("run_manifest", "code_version cannot be empty")
	}
	return nil
}

package run

import (
	"fmt"

	"gohar/domain/core"
)

// RunStatus tracks a pipeline run through its lifecycle
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunFingerprint ensures deterministic replay: equal fingerprints promise
// equal fold assignments, trees, and predictions.
type RunFingerprint struct {
	ReferenceFingerprint core.DataFingerprint   `json:"reference_fingerprint"`
	QueryFingerprint     core.DataFingerprint   `json:"query_fingerprint"`
	SchemaFingerprint    core.SchemaFingerprint `json:"schema_fingerprint"`
	Seed                 int64                  `json:"seed"`
	Folds                int                    `json:"folds"`
	Trees                int                    `json:"trees"`
	CodeVersion          string                 `json:"code_version"`
	Fingerprint          core.Hash              `json:"fingerprint"`
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(ref, query core.DataFingerprint, schema core.SchemaFingerprint,
	seed int64, folds, trees int, codeVersion string) RunFingerprint {

	return RunFingerprint{
		ReferenceFingerprint: ref,
		QueryFingerprint:     query,
		SchemaFingerprint:    schema,
		Seed:                 seed,
		Folds:                folds,
		Trees:                trees,
		CodeVersion:          codeVersion,
		Fingerprint:          computeRunFingerprint(ref, query, schema, seed, folds, trees, codeVersion),
	}
}

// computeRunFingerprint generates a deterministic hash from all determinism parameters
func computeRunFingerprint(ref, query core.DataFingerprint, schema core.SchemaFingerprint,
	seed int64, folds, trees int, codeVersion string) core.Hash {

	data := fmt.Sprintf("reference:%s|query:%s|schema:%s|seed:%d|folds:%d|trees:%d|code:%s",
		ref, query, schema, seed, folds, trees, codeVersion)
	return core.NewHash([]byte(data))
}

// RunSummary is the ledger's listing row for one run
type RunSummary struct {
	ID               core.RunID     `json:"id"`
	Status           RunStatus      `json:"status"`
	Seed             int64          `json:"seed"`
	Fingerprint      core.Hash      `json:"fingerprint"`
	EnsembleAccuracy float64        `json:"ensemble_accuracy"`
	CreatedAt        core.Timestamp `json:"created_at"`
	DurationMs       int64          `json:"duration_ms"`
}

package ports

import (
	"context"

	"gohar/domain/core"
	"gohar/domain/run"
)

// LedgerWriterPort provides append-only write access to artifacts
// This is the ONLY way to write artifacts - prevents read-after-write coupling
type LedgerWriterPort interface {
	StoreArtifact(ctx context.Context, runID string, artifact core.Artifact) error
}

// LedgerReaderPort provides read-only access to stored artifacts
// Use this for queries, replay, and report rendering
type LedgerReaderPort interface {
	// Artifact queries (read-only)
	ListArtifacts(ctx context.Context, filters ArtifactFilters) ([]core.Artifact, error)
	GetArtifact(ctx context.Context, artifactID core.ArtifactID) (*core.Artifact, error)
	GetArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error)
	GetArtifactsByKind(ctx context.Context, kind core.ArtifactKind, limit int) ([]core.Artifact, error)

	// Run manifest queries
	GetRunManifest(ctx context.Context, runID core.RunID) (*run.RunManifestArtifact, error)
	ListRuns(ctx context.Context, limit int) ([]run.RunSummary, error)
}

// ArtifactFilters for querying artifacts
type ArtifactFilters struct {
	RunID  *core.RunID
	Kind   *core.ArtifactKind
	Limit  int
	Offset int
}

// LedgerPort combines read and write access for callers that need both
type LedgerPort interface {
	LedgerWriterPort
	LedgerReaderPort
}

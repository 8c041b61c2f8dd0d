package testkit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"gohar/adapters/profile"
	"gohar/domain/core"
	"gohar/domain/run"
	"gohar/domain/table"
	"gohar/internal/logging"
	"gohar/internal/rng"
	"gohar/ports"
)

// TestKit provides testing fixtures wired against in-memory adapters. The
// ledger instance is shared so a test can store through the pipeline and read
// back through the reader port.
type TestKit struct {
	ledger *MemoryLedger
}

// NewTestKit creates a test kit with a fresh in-memory ledger
func NewTestKit() *TestKit {
	return &TestKit{ledger: NewMemoryLedger()}
}

// LedgerAdapter returns the shared in-memory ledger
func (t *TestKit) LedgerAdapter() ports.LedgerPort {
	return t.ledger
}

// LedgerReaderAdapter returns read access to the shared ledger
func (t *TestKit) LedgerReaderAdapter() ports.LedgerReaderPort {
	return t.ledger
}

// RNGAdapter returns the real deterministic stream adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return rng.New()
}

// ProfilerAdapter returns a real profiler with quiet logging
func (t *TestKit) ProfilerAdapter() ports.ProfilerPort {
	return profile.NewStatsProfiler(logging.NewLogger(logging.LogLevelError))
}

// ReaderAdapter returns a reader that serves the given tables by path
func (t *TestKit) ReaderAdapter(tables map[string]*table.Table) ports.TableReaderPort {
	return &FakeTableReader{Tables: tables}
}

// FakeTableReader serves pre-built tables keyed by path
type FakeTableReader struct {
	Tables map[string]*table.Table
}

func (r *FakeTableReader) ReadTable(ctx context.Context, path string) (*table.Table, error) {
	if t, ok := r.Tables[path]; ok {
		return t, nil
	}
	return nil, core.NewNotFoundError("table", path)
}

func (r *FakeTableReader) SupportedExtensions() []string {
	return []string{".csv", ".xlsx"}
}

// MemoryLedger implements LedgerPort with insertion-ordered in-memory
// storage. Read semantics mirror the sqlite adapter so tests written against
// the fake hold against the real thing: latest manifest wins, kind queries
// come back newest first, run listings surface the latest ensemble accuracy.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []ledgerEntry
	byID    map[core.ArtifactID]int
}

type ledgerEntry struct {
	runID    core.RunID
	artifact core.Artifact
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{byID: make(map[core.ArtifactID]int)}
}

func (m *MemoryLedger) StoreArtifact(ctx context.Context, runID string, artifact core.Artifact) error {
	if runID == "" {
		return core.NewValidationError("artifact", "run id cannot be empty")
	}
	if artifact.ID.IsEmpty() {
		return core.NewValidationError("artifact", "artifact id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := core.ArtifactID(artifact.ID)
	if _, exists := m.byID[id]; exists {
		return fmt.Errorf("artifact %s already stored", id)
	}
	m.byID[id] = len(m.entries)
	m.entries = append(m.entries, ledgerEntry{runID: core.RunID(runID), artifact: artifact})
	return nil
}

func (m *MemoryLedger) ListArtifacts(ctx context.Context, filters ports.ArtifactFilters) ([]core.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []core.Artifact
	for _, e := range m.entries {
		if filters.RunID != nil && e.runID != *filters.RunID {
			continue
		}
		if filters.Kind != nil && e.artifact.Kind != *filters.Kind {
			continue
		}
		matched = append(matched, e.artifact)
	}

	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && len(matched) > filters.Limit {
		matched = matched[:filters.Limit]
	}
	return matched, nil
}

func (m *MemoryLedger) GetArtifact(ctx context.Context, artifactID core.ArtifactID) (*core.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[artifactID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrArtifactNotFound, artifactID)
	}
	artifact := m.entries[i].artifact
	return &artifact, nil
}

func (m *MemoryLedger) GetArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error) {
	return m.ListArtifacts(ctx, ports.ArtifactFilters{RunID: &runID})
}

func (m *MemoryLedger) GetArtifactsByKind(ctx context.Context, kind core.ArtifactKind, limit int) ([]core.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	var matched []core.Artifact
	for i := len(m.entries) - 1; i >= 0 && len(matched) < limit; i-- {
		if m.entries[i].artifact.Kind == kind {
			matched = append(matched, m.entries[i].artifact)
		}
	}
	return matched, nil
}

func (m *MemoryLedger) GetRunManifest(ctx context.Context, runID core.RunID) (*run.RunManifestArtifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.runID != runID || e.artifact.Kind != core.ArtifactRunManifest {
			continue
		}
		var manifest run.RunManifestArtifact
		if err := decodeInto(e.artifact.Payload, &manifest); err != nil {
			return nil, fmt.Errorf("failed to decode manifest for run %s: %w", runID, err)
		}
		return &manifest, nil
	}
	return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
}

func (m *MemoryLedger) ListRuns(ctx context.Context, limit int) ([]run.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	manifests := make(map[core.RunID]*run.RunManifestArtifact)
	accuracy := make(map[core.RunID]float64)
	for _, e := range m.entries {
		switch e.artifact.Kind {
		case core.ArtifactRunManifest:
			var manifest run.RunManifestArtifact
			if err := decodeInto(e.artifact.Payload, &manifest); err != nil {
				return nil, fmt.Errorf("failed to decode manifest for run %s: %w", e.runID, err)
			}
			manifests[e.runID] = &manifest
		case core.ArtifactEnsembleEvaluation:
			var eval run.EvaluationArtifact
			if err := decodeInto(e.artifact.Payload, &eval); err != nil {
				return nil, fmt.Errorf("failed to decode evaluation for run %s: %w", e.runID, err)
			}
			accuracy[e.runID] = eval.Stats.Accuracy
		}
	}

	summaries := make([]run.RunSummary, 0, len(manifests))
	for runID, manifest := range manifests {
		s := run.RunSummary{
			ID:               runID,
			Status:           manifest.Status,
			Seed:             manifest.Seed,
			Fingerprint:      manifest.Fingerprint.Fingerprint,
			EnsembleAccuracy: accuracy[runID],
			CreatedAt:        manifest.CreatedAt,
		}
		if manifest.CompletedAt != nil {
			s.DurationMs = manifest.CompletedAt.MillisSince(manifest.CreatedAt)
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Time().Equal(summaries[j].CreatedAt.Time()) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// decodeInto accepts both live typed payloads and raw JSON payloads
func decodeInto(payload interface{}, target interface{}) error {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = b
	}
	return json.Unmarshal(raw, target)
}

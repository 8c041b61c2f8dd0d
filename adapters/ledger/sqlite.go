package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"gohar/domain/core"
	"gohar/domain/run"
	"gohar/ports"
)

// Timestamps are stored as unix milliseconds. Payloads are stored as JSON
// text so json_extract can read them in queries.
const ledgerSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	seed         INTEGER NOT NULL,
	fingerprint  TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	completed_at INTEGER
);

CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_artifacts_run ON artifacts (run_id);
CREATE INDEX IF NOT EXISTS idx_artifacts_kind ON artifacts (kind);
`

// Open opens the ledger database at dsn and bootstraps the schema.
// The caller owns the returned handle and must Close it.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	// A single connection keeps in-memory databases coherent and rules out
	// SQLITE_BUSY between concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return db, nil
}

// sqliteLedger implements ports.LedgerPort on a sqlite database
type sqliteLedger struct {
	db *sqlx.DB
}

// NewLedger creates a ledger backed by the given database handle
func NewLedger(db *sqlx.DB) ports.LedgerPort {
	return &sqliteLedger{db: db}
}

// artifactRow is the storage shape of one artifact
type artifactRow struct {
	ID        string `db:"id"`
	RunID     string `db:"run_id"`
	Kind      string `db:"kind"`
	Payload   []byte `db:"payload"`
	CreatedAt int64  `db:"created_at"`
}

func (r artifactRow) toArtifact() core.Artifact {
	return core.Artifact{
		ID:        core.ID(r.ID),
		Kind:      core.ArtifactKind(r.Kind),
		Payload:   json.RawMessage(r.Payload),
		CreatedAt: core.NewTimestamp(time.UnixMilli(r.CreatedAt)),
	}
}

// runRow is the storage shape of one run listing entry
type runRow struct {
	ID               string  `db:"id"`
	Status           string  `db:"status"`
	Seed             int64   `db:"seed"`
	Fingerprint      string  `db:"fingerprint"`
	CreatedAt        int64   `db:"created_at"`
	DurationMs       int64   `db:"duration_ms"`
	EnsembleAccuracy float64 `db:"ensemble_accuracy"`
}

func (r runRow) toSummary() run.RunSummary {
	return run.RunSummary{
		ID:               core.RunID(r.ID),
		Status:           run.RunStatus(r.Status),
		Seed:             r.Seed,
		Fingerprint:      core.Hash(r.Fingerprint),
		EnsembleAccuracy: r.EnsembleAccuracy,
		CreatedAt:        core.NewTimestamp(time.UnixMilli(r.CreatedAt)),
		DurationMs:       r.DurationMs,
	}
}

// StoreArtifact appends one artifact row. Artifacts are never updated or
// deleted. A run manifest additionally upserts the runs listing row so the
// run's status transition is visible without parsing payloads.
func (l *sqliteLedger) StoreArtifact(ctx context.Context, runID string, artifact core.Artifact) error {
	if strings.TrimSpace(runID) == "" {
		return core.NewValidationError("artifact", "run id cannot be empty")
	}
	if artifact.ID.IsEmpty() {
		return core.NewValidationError("artifact", "artifact id cannot be empty")
	}
	if artifact.Kind == "" {
		return core.NewValidationError("artifact", "artifact kind cannot be empty")
	}

	payload, err := json.Marshal(artifact.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", artifact.Kind, err)
	}

	createdAt := artifact.CreatedAt
	if createdAt.IsZero() {
		createdAt = core.Now()
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, run_id, kind, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		artifact.ID.String(), runID, string(artifact.Kind), string(payload), createdAt.Time().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store %s artifact: %w", artifact.Kind, err)
	}

	if artifact.Kind == core.ArtifactRunManifest {
		return l.upsertRun(ctx, payload)
	}
	return nil
}

// upsertRun mirrors a manifest into the runs table. Seed, fingerprint and
// created_at are fixed by the first manifest; later manifests only move
// status and completed_at.
func (l *sqliteLedger) upsertRun(ctx context.Context, payload []byte) error {
	var manifest run.RunManifestArtifact
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return fmt.Errorf("failed to decode run manifest: %w", err)
	}

	var completedAt interface{}
	if manifest.CompletedAt != nil {
		completedAt = manifest.CompletedAt.Time().UnixMilli()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, seed, fingerprint, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status       = excluded.status,
			completed_at = excluded.completed_at`,
		manifest.RunID.String(), string(manifest.Status), manifest.Seed,
		manifest.Fingerprint.Fingerprint.String(),
		manifest.CreatedAt.Time().UnixMilli(), completedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert run %s: %w", manifest.RunID, err)
	}
	return nil
}

// ListArtifacts returns artifacts matching the filters, oldest first
func (l *sqliteLedger) ListArtifacts(ctx context.Context, filters ports.ArtifactFilters) ([]core.Artifact, error) {
	query := `SELECT id, run_id, kind, payload, created_at FROM artifacts`

	var (
		clauses []string
		args    []interface{}
	)
	if filters.RunID != nil {
		clauses = append(clauses, "run_id = ?")
		args = append(args, filters.RunID.String())
	}
	if filters.Kind != nil {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(*filters.Kind))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at ASC, rowid ASC"

	if filters.Limit > 0 || filters.Offset > 0 {
		limit := filters.Limit
		if limit <= 0 {
			limit = -1 // sqlite treats a negative limit as unbounded
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filters.Offset)
	}

	return l.selectArtifacts(ctx, query, args...)
}

// GetArtifact returns a single artifact by ID
func (l *sqliteLedger) GetArtifact(ctx context.Context, artifactID core.ArtifactID) (*core.Artifact, error) {
	var row artifactRow
	err := l.db.GetContext(ctx, &row,
		`SELECT id, run_id, kind, payload, created_at FROM artifacts WHERE id = ?`,
		artifactID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrArtifactNotFound, artifactID)
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", artifactID, err)
	}

	artifact := row.toArtifact()
	return &artifact, nil
}

// GetArtifactsByRun returns every artifact of one run in storage order
func (l *sqliteLedger) GetArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error) {
	return l.selectArtifacts(ctx,
		`SELECT id, run_id, kind, payload, created_at FROM artifacts
		 WHERE run_id = ? ORDER BY created_at ASC, rowid ASC`,
		runID.String())
}

// GetArtifactsByKind returns the newest artifacts of one kind across runs
func (l *sqliteLedger) GetArtifactsByKind(ctx context.Context, kind core.ArtifactKind, limit int) ([]core.Artifact, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.selectArtifacts(ctx,
		`SELECT id, run_id, kind, payload, created_at FROM artifacts
		 WHERE kind = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		string(kind), limit)
}

// GetRunManifest returns the latest manifest stored for the run. The latest
// wins because a run stores its manifest twice: once when it starts and once
// with the terminal status.
func (l *sqliteLedger) GetRunManifest(ctx context.Context, runID core.RunID) (*run.RunManifestArtifact, error) {
	var payload []byte
	err := l.db.GetContext(ctx, &payload,
		`SELECT payload FROM artifacts
		 WHERE run_id = ? AND kind = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		runID.String(), string(core.ArtifactRunManifest))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get manifest for run %s: %w", runID, err)
	}

	var manifest run.RunManifestArtifact
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest for run %s: %w", runID, err)
	}
	return &manifest, nil
}

// ListRuns returns recent runs, newest first. Ensemble accuracy is pulled
// from each run's latest ensemble evaluation payload; runs that never
// reached evaluation report zero.
func (l *sqliteLedger) ListRuns(ctx context.Context, limit int) ([]run.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []runRow
	err := l.db.SelectContext(ctx, &rows, `
		SELECT
			r.id          AS id,
			r.status      AS status,
			r.seed        AS seed,
			r.fingerprint AS fingerprint,
			r.created_at  AS created_at,
			COALESCE(r.completed_at - r.created_at, 0) AS duration_ms,
			COALESCE((
				SELECT json_extract(a.payload, '$.stats.accuracy')
				FROM artifacts a
				WHERE a.run_id = r.id AND a.kind = ?
				ORDER BY a.created_at DESC, a.rowid DESC
				LIMIT 1
			), 0) AS ensemble_accuracy
		FROM runs r
		ORDER BY r.created_at DESC, r.rowid DESC
		LIMIT ?`,
		string(core.ArtifactEnsembleEvaluation), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	summaries := make([]run.RunSummary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, r.toSummary())
	}
	return summaries, nil
}

func (l *sqliteLedger) selectArtifacts(ctx context.Context, query string, args ...interface{}) ([]core.Artifact, error) {
	var rows []artifactRow
	if err := l.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}

	artifacts := make([]core.Artifact, 0, len(rows))
	for _, r := range rows {
		artifacts = append(artifacts, r.toArtifact())
	}
	return artifacts, nil
}

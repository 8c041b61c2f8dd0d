package testkit

import (
	"context"
	"errors"
	"testing"

	"gohar/domain/classify"
	"gohar/domain/core"
	"gohar/domain/run"
	"gohar/domain/table"
)

func memoryManifest(runID core.RunID) *run.RunManifestArtifact {
	return run.NewRunManifestArtifact(runID,
		"data/reference.csv", "data/query.csv",
		core.NewDataFingerprint([]byte("ref")),
		core.NewDataFingerprint([]byte("query")),
		core.NewSchemaFingerprint([]byte("schema")),
		42, 5, 64, "v0.3.0")
}

func TestMemoryLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	kit := NewTestKit()
	ledger := kit.LedgerAdapter()

	runID := core.RunID("run-memory")
	art := core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactSchema,
		Payload:   map[string]string{"outcome": "classe"},
		CreatedAt: core.Now(),
	}
	if err := ledger.StoreArtifact(ctx, string(runID), art); err != nil {
		t.Fatalf("StoreArtifact: %v", err)
	}

	got, err := ledger.GetArtifact(ctx, core.ArtifactID(art.ID))
	if err != nil {
		t.Fatalf("GetArtifact: %v", err)
	}
	if got.ID != art.ID || got.Kind != core.ArtifactSchema {
		t.Errorf("got %s/%s", got.ID, got.Kind)
	}

	byRun, err := ledger.GetArtifactsByRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetArtifactsByRun: %v", err)
	}
	if len(byRun) != 1 {
		t.Fatalf("got %d artifacts for run", len(byRun))
	}

	if err := ledger.StoreArtifact(ctx, string(runID), art); err == nil {
		t.Error("duplicate artifact ID must be rejected")
	}
}

func TestMemoryLedgerManifestLatestWins(t *testing.T) {
	ctx := context.Background()
	ledger := NewTestKit().LedgerAdapter()

	runID := core.RunID("run-lifecycle")
	manifest := memoryManifest(runID)
	if err := ledger.StoreArtifact(ctx, string(runID), manifest.ToCoreArtifact()); err != nil {
		t.Fatalf("store running manifest: %v", err)
	}

	eval := run.EvaluationArtifact{
		RunID: runID,
		Model: "bagged_trees",
		CV: classify.CVSummary{
			Folds:        []classify.FoldOutcome{{Fold: 0, TestRows: 60, Accuracy: 0.9731}},
			MeanAccuracy: 0.9731,
		},
		Stats: classify.EvaluationStats{Accuracy: 0.9731, Correct: 19094, Total: 19622},
	}
	if err := ledger.StoreArtifact(ctx, string(runID), eval.ToCoreArtifact(core.ArtifactEnsembleEvaluation)); err != nil {
		t.Fatalf("store evaluation: %v", err)
	}

	manifest.Complete(run.RunCompleted)
	if err := ledger.StoreArtifact(ctx, string(runID), manifest.ToCoreArtifact()); err != nil {
		t.Fatalf("store completed manifest: %v", err)
	}

	got, err := ledger.GetRunManifest(ctx, runID)
	if err != nil {
		t.Fatalf("GetRunManifest: %v", err)
	}
	if got.Status != run.RunCompleted || got.CompletedAt == nil {
		t.Errorf("latest manifest not returned: status %s", got.Status)
	}

	runs, err := ledger.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].Status != run.RunCompleted || runs[0].Seed != 42 {
		t.Errorf("summary %s seed %d", runs[0].Status, runs[0].Seed)
	}
	if runs[0].EnsembleAccuracy != 0.9731 {
		t.Errorf("ensemble accuracy %v", runs[0].EnsembleAccuracy)
	}
}

func TestMemoryLedgerNotFound(t *testing.T) {
	ctx := context.Background()
	ledger := NewTestKit().LedgerAdapter()

	if _, err := ledger.GetArtifact(ctx, core.ArtifactID("no-such")); !errors.Is(err, core.ErrArtifactNotFound) {
		t.Errorf("GetArtifact error = %v", err)
	}
	if _, err := ledger.GetRunManifest(ctx, core.RunID("no-such")); !errors.Is(err, core.ErrRunNotFound) {
		t.Errorf("GetRunManifest error = %v", err)
	}
}

func TestFakeTableReader(t *testing.T) {
	ctx := context.Background()
	tab, err := table.NewTable("reference", []*table.Column{
		table.NewNumericColumn("roll_belt", []float64{1, 2, 3}, nil),
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	reader := NewTestKit().ReaderAdapter(map[string]*table.Table{"data/reference.csv": tab})
	got, err := reader.ReadTable(ctx, "data/reference.csv")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got.NumRows() != 3 {
		t.Errorf("rows %d", got.NumRows())
	}

	if _, err := reader.ReadTable(ctx, "data/missing.csv"); !core.IsNotFoundError(err) {
		t.Errorf("miss error = %v", err)
	}
}

func TestKitRNGAdapterIsDeterministic(t *testing.T) {
	ctx := context.Background()
	rng := NewTestKit().RNGAdapter()

	a, err := rng.Stream(ctx, "run-x", "cv", "fold-00", 42)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	b, err := rng.Stream(ctx, "run-x", "cv", "fold-00", 42)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	for i := 0; i < 5; i++ {
		if a.Float64() != b.Float64() {
			t.Fatal("identical stream keys diverged")
		}
	}

	c, _ := rng.Stream(ctx, "run-x", "cv", "fold-01", 42)
	d, _ := rng.Stream(ctx, "run-x", "cv", "fold-00", 42)
	same := true
	for i := 0; i < 5; i++ {
		if c.Float64() != d.Float64() {
			same = false
		}
	}
	if same {
		t.Error("different stream keys produced identical draws")
	}
}

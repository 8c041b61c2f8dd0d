package rng

import (
	"context"
	"errors"
	"testing"

	"gohar/domain/core"
)

func TestSeededStreamIsDeterministic(t *testing.T) {
	a := New()
	ctx := context.Background()

	r1, err := a.SeededStream(ctx, "kfold", 42)
	if err != nil {
		t.Fatalf("seeded stream: %v", err)
	}
	r2, err := a.SeededStream(ctx, "kfold", 42)
	if err != nil {
		t.Fatalf("seeded stream: %v", err)
	}

	for i := 0; i < 100; i++ {
		if a, b := r1.Float64(), r2.Float64(); a != b {
			t.Fatalf("draw %d diverged: %v vs %v", i, a, b)
		}
	}
}

func TestDistinctNamesGiveDistinctStreams(t *testing.T) {
	a := New()
	ctx := context.Background()

	r1, _ := a.SeededStream(ctx, "tree-cv", 42)
	r2, _ := a.SeededStream(ctx, "ensemble-cv", 42)

	same := true
	for i := 0; i < 10; i++ {
		if r1.Float64() != r2.Float64() {
			same = false
			break
		}
	}
	if same {
		t.Errorf("different stream names should not replay the same sequence")
	}
}

func TestStreamMixesScopeAndStage(t *testing.T) {
	a := New()
	ctx := context.Background()

	r1, _ := a.Stream(ctx, "run-1", "ensemble-cv", "tree-3", 42)
	r2, _ := a.Stream(ctx, "run-1", "ensemble-cv", "tree-3", 42)
	if r1.Int63() != r2.Int63() {
		t.Errorf("identical stream coordinates must replay identically")
	}

	r3, _ := a.Stream(ctx, "run-1", "ensemble-cv", "tree-3", 42)
	r4, _ := a.Stream(ctx, "run-1", "ensemble-cv", "tree-4", 42)
	diverged := false
	for i := 0; i < 5; i++ {
		if r3.Int63() != r4.Int63() {
			diverged = true
			break
		}
	}
	if !diverged {
		t.Errorf("different tree keys should derive different streams")
	}
}

func TestValidateSeed(t *testing.T) {
	a := New()
	ctx := context.Background()

	// Capture the stream's own first draws, then validate against them
	r, _ := a.SeededStream(ctx, "check", 42)
	expected := []float64{r.Float64(), r.Float64(), r.Float64()}

	if err := a.ValidateSeed(ctx, "check", 42, expected); err != nil {
		t.Fatalf("matching draws should validate: %v", err)
	}

	err := a.ValidateSeed(ctx, "check", 43, expected)
	if !errors.Is(err, core.ErrSeedMismatch) {
		t.Fatalf("expected seed mismatch error, got %v", err)
	}
}

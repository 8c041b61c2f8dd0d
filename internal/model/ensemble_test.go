package model

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"gohar/domain/classify"
	"gohar/internal/rng"
)

// testStreams derives per-tree streams from one base seed the same way the
// pipeline does
func testStreams(t *testing.T, seed int64) StreamFunc {
	t.Helper()
	adapter := rng.New()
	return func(key string) (*rand.Rand, error) {
		return adapter.SeededStream(context.Background(), "ensemble/"+key, seed)
	}
}

func TestBaggedTreesLearnSeparableData(t *testing.T) {
	X, y := separableData()
	ens := NewBaggedTrees(WithTreeCount(16), WithWorkers(2))
	if err := ens.Fit(context.Background(), X, y, testStreams(t, 42)); err != nil {
		t.Fatalf("fit: %v", err)
	}

	preds, err := ens.PredictWithVotes(X)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	for i, p := range preds {
		if p.Label != y[i] {
			t.Errorf("row %d: predicted %s, want %s", i, p.Label, y[i])
		}
		total := 0
		for _, v := range p.Votes {
			total += v
		}
		if total != 16 {
			t.Errorf("row %d: vote tally sums to %d, want 16", i, total)
		}
	}
}

func TestBaggedTreesDeterministicAcrossWorkerCounts(t *testing.T) {
	X, y := separableData()
	probe := [][]float64{{0.5, 0.5}, {10.2, 10.2}, {19.8, 0.1}, {9, 4}}

	predict := func(workers int) []classify.Label {
		ens := NewBaggedTrees(WithTreeCount(12), WithWorkers(workers))
		if err := ens.Fit(context.Background(), X, y, testStreams(t, 7)); err != nil {
			t.Fatalf("fit with %d workers: %v", workers, err)
		}
		labels, err := ens.Predict(probe)
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		return labels
	}

	serial := predict(1)
	parallel := predict(4)
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("probe %d: worker count changed prediction %s vs %s", i, serial[i], parallel[i])
		}
	}
}

func TestBaggedTreesSeedControlsStructure(t *testing.T) {
	X, y := separableData()

	fit := func(seed int64) *BaggedTrees {
		ens := NewBaggedTrees(WithTreeCount(8))
		if err := ens.Fit(context.Background(), X, y, testStreams(t, seed)); err != nil {
			t.Fatalf("fit: %v", err)
		}
		return ens
	}

	if sig := ensembleSignature(fit(1)); sig != ensembleSignature(fit(1)) {
		t.Errorf("same seed must rebuild the identical ensemble")
	}
	if ensembleSignature(fit(1)) == ensembleSignature(fit(2)) {
		t.Errorf("different seeds produced structurally identical ensembles")
	}
}

// ensembleSignature flattens every split for structural comparison
func ensembleSignature(ens *BaggedTrees) string {
	var sb strings.Builder
	var walk func(n *treeNode)
	walk = func(n *treeNode) {
		if n == nil {
			return
		}
		if n.leaf {
			fmt.Fprintf(&sb, "L%d;", n.pred)
			return
		}
		fmt.Fprintf(&sb, "S%d:%g(", n.feature, n.threshold)
		walk(n.left)
		walk(n.right)
		sb.WriteString(")")
	}
	for _, tree := range ens.Trees {
		walk(tree.root)
		sb.WriteString("|")
	}
	return sb.String()
}

func TestBaggedTreesVoteTieBreaksTowardFirstClass(t *testing.T) {
	// Hand-built two-leaf ensemble forcing a 1-1 tie between B and A
	leafFor := func(classes []classify.Label, pred int) *Tree {
		return &Tree{
			classes: classes,
			width:   1,
			root:    &treeNode{leaf: true, pred: pred, n: 1},
		}
	}
	classes := []classify.Label{"A", "B"}
	ens := &BaggedTrees{
		NTrees:  2,
		classes: classes,
		Trees:   []*Tree{leafFor(classes, 1), leafFor(classes, 0)},
	}

	preds, err := ens.PredictWithVotes([][]float64{{0}})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if preds[0].Label != "A" {
		t.Errorf("1-1 tie should resolve to first class A, got %s", preds[0].Label)
	}
	if preds[0].Votes["A"] != 1 || preds[0].Votes["B"] != 1 {
		t.Errorf("unexpected tally %v", preds[0].Votes)
	}
}

func TestBaggedTreesRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	X, y := separableData()

	if err := NewBaggedTrees(WithTreeCount(0)).Fit(ctx, X, y, testStreams(t, 1)); err == nil {
		t.Errorf("zero trees must be rejected")
	}
	if err := NewBaggedTrees().Fit(ctx, nil, nil, testStreams(t, 1)); err == nil {
		t.Errorf("empty data must be rejected")
	}
	if err := NewBaggedTrees().Fit(ctx, X, y[:3], testStreams(t, 1)); err == nil {
		t.Errorf("label mismatch must be rejected")
	}
	if err := NewBaggedTrees().Fit(ctx, X, y, nil); err == nil {
		t.Errorf("nil stream source must be rejected")
	}
	if _, err := NewBaggedTrees().Predict([][]float64{{0, 0}}); err == nil {
		t.Errorf("predict before fit must fail")
	}
}

package model

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"gohar/domain/classify"
)

// separableData lays out three tight clusters, one per class, far enough
// apart that any reasonable tree separates them exactly.
func separableData() ([][]float64, []classify.Label) {
	var X [][]float64
	var y []classify.Label
	centers := map[classify.Label][2]float64{
		"A": {0, 0},
		"B": {10, 10},
		"C": {20, 0},
	}
	for _, cls := range []classify.Label{"A", "B", "C"} {
		c := centers[cls]
		for i := 0; i < 12; i++ {
			dx := float64(i%4) * 0.3
			dy := float64(i/4) * 0.3
			X = append(X, []float64{c[0] + dx, c[1] + dy})
			y = append(y, cls)
		}
	}
	return X, y
}

func TestTreeLearnsSeparableData(t *testing.T) {
	X, y := separableData()
	tree := NewTree()
	if err := tree.Fit(X, y, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("fit: %v", err)
	}

	preds, err := tree.Predict(X)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	for i, p := range preds {
		if p != y[i] {
			t.Errorf("row %d: predicted %s, want %s", i, p, y[i])
		}
	}

	classes := tree.Classes()
	if len(classes) != 3 || classes[0] != "A" || classes[2] != "C" {
		t.Errorf("classes should be sorted distinct labels, got %v", classes)
	}
}

func TestTreeDeterministicUnderSameStream(t *testing.T) {
	X, y := separableData()

	fitOnce := func() []classify.Label {
		tree := NewTree(WithMaxFeatures(1))
		if err := tree.Fit(X, y, rand.New(rand.NewSource(42))); err != nil {
			t.Fatalf("fit: %v", err)
		}
		preds, err := tree.Predict(X)
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		return preds
	}

	first := fitOnce()
	second := fitOnce()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("row %d: %s then %s from identical streams", i, first[i], second[i])
		}
	}
}

func TestTreeComplexityParamCoarsens(t *testing.T) {
	X, y := separableData()

	full := NewTree()
	if err := full.Fit(X, y, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("fit full: %v", err)
	}
	coarse := NewTree(WithComplexityParam(0.9))
	if err := coarse.Fit(X, y, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("fit coarse: %v", err)
	}

	if coarse.NodeCount() >= full.NodeCount() {
		t.Errorf("complexity parameter should prune: coarse %d nodes, full %d",
			coarse.NodeCount(), full.NodeCount())
	}
}

func TestTreeMaxDepthStump(t *testing.T) {
	X, y := separableData()
	stump := NewTree(WithMaxDepth(1))
	if err := stump.Fit(X, y, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("fit: %v", err)
	}
	// root plus two leaves
	if n := stump.NodeCount(); n > 3 {
		t.Errorf("depth-1 tree has %d nodes", n)
	}
}

func TestTreePinnedClasses(t *testing.T) {
	X := [][]float64{{0}, {0.1}, {5}, {5.1}}
	y := []classify.Label{"B", "B", "C", "C"}

	tree := NewTree(WithClasses([]classify.Label{"A", "B", "C"}))
	if err := tree.Fit(X, y, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if len(tree.Classes()) != 3 {
		t.Fatalf("pinned class list was replaced: %v", tree.Classes())
	}
	preds, err := tree.Predict(X)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if preds[0] != "B" || preds[2] != "C" {
		t.Errorf("pinned classes misalign predictions: %v", preds)
	}
}

func TestTreeRejectsBadInput(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	tree := NewTree()
	if err := tree.Fit([][]float64{{1, math.NaN()}}, []classify.Label{"A"}, rnd); err == nil {
		t.Errorf("NaN cell must be rejected")
	}
	if err := tree.Fit([][]float64{{1}, {2}}, []classify.Label{"A"}, rnd); err == nil {
		t.Errorf("label length mismatch must be rejected")
	}
	if err := tree.Fit([][]float64{{1, 2}, {3}}, []classify.Label{"A", "B"}, rnd); err == nil {
		t.Errorf("ragged rows must be rejected")
	}

	unfitted := NewTree()
	if _, err := unfitted.Predict([][]float64{{1}}); err == nil {
		t.Errorf("predict before fit must fail")
	}

	fitted := NewTree()
	if err := fitted.Fit([][]float64{{1}, {2}}, []classify.Label{"A", "B"}, rnd); err != nil {
		t.Fatalf("fit: %v", err)
	}
	_, err := fitted.Predict([][]float64{{1, 2}})
	if err == nil || !strings.Contains(err.Error(), "features") {
		t.Errorf("width mismatch should fail with a shape message, got %v", err)
	}
}

func TestGiniCounts(t *testing.T) {
	if g := gini([]int{10, 0, 0}); g != 0 {
		t.Errorf("pure node gini = %f", g)
	}
	if g := gini([]int{5, 5}); math.Abs(g-0.5) > 1e-12 {
		t.Errorf("even binary gini = %f, want 0.5", g)
	}
	if g := gini([]int{}); g != 0 {
		t.Errorf("empty counts gini = %f", g)
	}
}

package model

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"gohar/domain/classify"
	"gohar/domain/core"
)

func TestKFoldPartitionExactness(t *testing.T) {
	const n, k = 103, 5
	folds, err := KFold(n, k, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("kfold: %v", err)
	}
	if len(folds) != k {
		t.Fatalf("expected %d folds, got %d", k, len(folds))
	}

	seen := make([]int, n)
	minSize, maxSize := n, 0
	for _, fold := range folds {
		if len(fold) < minSize {
			minSize = len(fold)
		}
		if len(fold) > maxSize {
			maxSize = len(fold)
		}
		for _, row := range fold {
			if row < 0 || row >= n {
				t.Fatalf("row %d out of range", row)
			}
			seen[row]++
		}
	}
	for row, c := range seen {
		if c != 1 {
			t.Errorf("row %d appears in %d test folds", row, c)
		}
	}
	if maxSize-minSize > 1 {
		t.Errorf("fold sizes range %d..%d, want spread of at most 1", minSize, maxSize)
	}
}

func TestKFoldDeterministicShuffle(t *testing.T) {
	a, err := KFold(50, 5, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("kfold: %v", err)
	}
	b, err := KFold(50, 5, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("kfold: %v", err)
	}
	for f := range a {
		if len(a[f]) != len(b[f]) {
			t.Fatalf("fold %d sizes differ", f)
		}
		for i := range a[f] {
			if a[f][i] != b[f][i] {
				t.Fatalf("fold %d row %d differs: %d vs %d", f, i, a[f][i], b[f][i])
			}
		}
	}
}

func TestKFoldRejectsBadShapes(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	if _, err := KFold(10, 1, rnd); !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("k=1 should be rejected, got %v", err)
	}
	if _, err := KFold(3, 5, rnd); !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("n<k should be rejected, got %v", err)
	}
}

func TestCrossValidateMajorityBaseline(t *testing.T) {
	// 60 A, 30 B, 10 C; a constant-A predictor scores the majority share
	var y []classify.Label
	for i := 0; i < 60; i++ {
		y = append(y, "A")
	}
	for i := 0; i < 30; i++ {
		y = append(y, "B")
	}
	for i := 0; i < 10; i++ {
		y = append(y, "C")
	}

	constantA := func(ctx context.Context, foldKey string, train, test []int) ([]classify.Label, error) {
		out := make([]classify.Label, len(test))
		for i := range out {
			out[i] = "A"
		}
		return out, nil
	}

	summary, err := CrossValidate(context.Background(), y, 5, rand.New(rand.NewSource(42)), constantA)
	if err != nil {
		t.Fatalf("crossvalidate: %v", err)
	}

	if len(summary.Folds) != 5 {
		t.Fatalf("expected 5 fold outcomes, got %d", len(summary.Folds))
	}
	if summary.Pooled.Total() != len(y) {
		t.Errorf("pooled matrix total %d, want %d", summary.Pooled.Total(), len(y))
	}
	if acc := summary.Pooled.Accuracy(); acc != 0.6 {
		t.Errorf("constant predictor accuracy %f, want 0.6", acc)
	}
	if nir := summary.Pooled.NoInformationRate(); nir != 0.6 {
		t.Errorf("NIR %f, want 0.6", nir)
	}
	if kappa := summary.Pooled.Kappa(); kappa != 0 {
		t.Errorf("constant predictor kappa %f, want 0", kappa)
	}
}

func TestCrossValidateTrainTestDisjoint(t *testing.T) {
	y := make([]classify.Label, 40)
	for i := range y {
		y[i] = classify.Label([]string{"A", "B"}[i%2])
	}

	checked := 0
	fit := func(ctx context.Context, foldKey string, train, test []int) ([]classify.Label, error) {
		inTrain := make(map[int]bool, len(train))
		for _, r := range train {
			inTrain[r] = true
		}
		for _, r := range test {
			if inTrain[r] {
				t.Errorf("%s: row %d in both train and test", foldKey, r)
			}
		}
		if len(train)+len(test) != len(y) {
			t.Errorf("%s: train %d + test %d != %d", foldKey, len(train), len(test), len(y))
		}
		checked++
		out := make([]classify.Label, len(test))
		for i, r := range test {
			out[i] = y[r]
		}
		return out, nil
	}

	summary, err := CrossValidate(context.Background(), y, 4, rand.New(rand.NewSource(3)), fit)
	if err != nil {
		t.Fatalf("crossvalidate: %v", err)
	}
	if checked != 4 {
		t.Errorf("fit called %d times, want 4", checked)
	}
	if summary.MeanAccuracy != 1 {
		t.Errorf("oracle predictor mean accuracy %f", summary.MeanAccuracy)
	}
	if summary.MinAccuracy != 1 || summary.MaxAccuracy != 1 {
		t.Errorf("oracle accuracy spread %f..%f", summary.MinAccuracy, summary.MaxAccuracy)
	}
}

func TestCrossValidateRealTree(t *testing.T) {
	X, y := separableData()

	fit := func(ctx context.Context, foldKey string, train, test []int) ([]classify.Label, error) {
		tree := NewTree()
		if err := tree.FitIndices(X, y, train, rand.New(rand.NewSource(11))); err != nil {
			return nil, err
		}
		probe := make([][]float64, len(test))
		for i, r := range test {
			probe[i] = X[r]
		}
		return tree.Predict(probe)
	}

	summary, err := CrossValidate(context.Background(), y, 3, rand.New(rand.NewSource(5)), fit)
	if err != nil {
		t.Fatalf("crossvalidate: %v", err)
	}
	if summary.MeanAccuracy < 0.9 {
		t.Errorf("held-out accuracy %f on cleanly separable data", summary.MeanAccuracy)
	}
}

func TestCrossValidatePropagatesFitError(t *testing.T) {
	y := []classify.Label{"A", "B", "A", "B", "A", "B"}
	boom := errors.New("boom")
	fit := func(ctx context.Context, foldKey string, train, test []int) ([]classify.Label, error) {
		return nil, boom
	}
	_, err := CrossValidate(context.Background(), y, 2, rand.New(rand.NewSource(1)), fit)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fit error, got %v", err)
	}
}

func TestCrossValidateRejectsShortPredictions(t *testing.T) {
	y := []classify.Label{"A", "B", "A", "B"}
	fit := func(ctx context.Context, foldKey string, train, test []int) ([]classify.Label, error) {
		return []classify.Label{"A"}, nil
	}
	_, err := CrossValidate(context.Background(), y, 2, rand.New(rand.NewSource(1)), fit)
	if err == nil {
		t.Fatalf("prediction count mismatch must fail")
	}
}

package model

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"gohar/domain/classify"
	"gohar/domain/core"
)

// KFold partitions row indices 0..n-1 into k test folds by a shuffled
// round-robin deal. Every row lands in exactly one fold and fold sizes
// differ by at most one. Folds are returned sorted for stable reporting.
func KFold(n, k int, rnd *rand.Rand) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: need at least 2 folds, got %d", core.ErrInsufficientData, k)
	}
	if n < k {
		return nil, fmt.Errorf("%w: %d rows cannot fill %d folds", core.ErrInsufficientData, n, k)
	}
	perm := rnd.Perm(n)
	folds := make([][]int, k)
	for i, row := range perm {
		f := i % k
		folds[f] = append(folds[f], row)
	}
	for _, fold := range folds {
		sort.Ints(fold)
	}
	return folds, nil
}

// FitPredictFunc fits a fresh model on the training rows and returns one
// label per test row, in test order. Implementations derive any randomness
// from foldKey so each fold replays independently of the others.
type FitPredictFunc func(ctx context.Context, foldKey string, trainIdx, testIdx []int) ([]classify.Label, error)

// CrossValidate scores a model family under k-fold cross-validation. The
// fold shuffle comes from foldRnd; per-fold model randomness is the fit
// function's concern. Held-out predictions pool into one confusion matrix
// spanning all n rows.
func CrossValidate(ctx context.Context, y []classify.Label, k int, foldRnd *rand.Rand, fit FitPredictFunc) (classify.CVSummary, error) {
	n := len(y)
	folds, err := KFold(n, k, foldRnd)
	if err != nil {
		return classify.CVSummary{}, err
	}

	pooled := classify.NewConfusionMatrix(classify.ClassesOf(y))
	outcomes := make([]classify.FoldOutcome, 0, k)

	for f, test := range folds {
		if err := ctx.Err(); err != nil {
			return classify.CVSummary{}, err
		}
		train := trainingRows(folds, f, n)
		preds, err := fit(ctx, foldKey(f), train, test)
		if err != nil {
			return classify.CVSummary{}, fmt.Errorf("fold %d: %w", f, err)
		}
		if len(preds) != len(test) {
			return classify.CVSummary{}, fmt.Errorf("fold %d: %d predictions for %d test rows", f, len(preds), len(test))
		}

		correct := 0
		for i, row := range test {
			if err := pooled.Add(preds[i], y[row]); err != nil {
				return classify.CVSummary{}, fmt.Errorf("fold %d: %w", f, err)
			}
			if preds[i] == y[row] {
				correct++
			}
		}
		outcomes = append(outcomes, classify.FoldOutcome{
			Fold:     f,
			TestRows: len(test),
			Accuracy: float64(correct) / float64(len(test)),
		})
	}
	return classify.NewCVSummary(outcomes, pooled), nil
}

func foldKey(f int) string {
	return fmt.Sprintf("fold-%02d", f)
}

// trainingRows collects every row outside fold f, ascending
func trainingRows(folds [][]int, f, n int) []int {
	inTest := make([]bool, n)
	for _, row := range folds[f] {
		inTest[row] = true
	}
	train := make([]int, 0, n-len(folds[f]))
	for row := 0; row < n; row++ {
		if !inTest[row] {
			train = append(train, row)
		}
	}
	return train
}

package model

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"gohar/domain/classify"
)

// StreamFunc returns the deterministic random stream for a named piece of
// work. Ensembles request one stream per tree so results never depend on
// fitting order or worker count.
type StreamFunc func(key string) (*rand.Rand, error)

// BaggedTrees is a bootstrap-aggregated ensemble of unpruned trees. Every
// member trains on a same-size sample drawn with replacement and predictions
// are decided by majority vote.
type BaggedTrees struct {
	NTrees  int
	Workers int

	treeOpts []TreeOption
	classes  []classify.Label
	Trees    []*Tree
}

// EnsembleOption configures a BaggedTrees
type EnsembleOption func(*BaggedTrees)

func WithTreeCount(n int) EnsembleOption { return func(b *BaggedTrees) { b.NTrees = n } }
func WithWorkers(n int) EnsembleOption   { return func(b *BaggedTrees) { b.Workers = n } }

// WithTreeOptions forwards options to every member tree
func WithTreeOptions(opts ...TreeOption) EnsembleOption {
	return func(b *BaggedTrees) { b.treeOpts = append(b.treeOpts, opts...) }
}

// NewBaggedTrees returns an ensemble with defaults suited to the activity
// classification task
func NewBaggedTrees(opts ...EnsembleOption) *BaggedTrees {
	b := &BaggedTrees{NTrees: 64, Workers: 4}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Classes returns the pooled class list shared by all member trees
func (b *BaggedTrees) Classes() []classify.Label {
	return b.classes
}

// Fit trains NTrees member trees. Each tree draws its bootstrap sample and
// split randomness from its own stream keyed by ordinal, and lands in a
// fixed slot, so the fitted ensemble is identical at any worker count.
func (b *BaggedTrees) Fit(ctx context.Context, X [][]float64, y []classify.Label, streams StreamFunc) error {
	if b.NTrees < 1 {
		return fmt.Errorf("ensemble: tree count %d", b.NTrees)
	}
	if len(X) == 0 {
		return fmt.Errorf("ensemble: no rows")
	}
	if len(y) != len(X) {
		return fmt.Errorf("ensemble: %d rows but %d labels", len(X), len(y))
	}
	if streams == nil {
		return fmt.Errorf("ensemble: nil stream source")
	}

	n := len(X)
	b.classes = classify.ClassesOf(y)
	b.Trees = make([]*Tree, b.NTrees)

	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for k := 0; k < b.NTrees; k++ {
		k := k
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rnd, err := streams(treeKey(k))
			if err != nil {
				return fmt.Errorf("tree %d stream: %w", k, err)
			}
			idx := make([]int, n)
			for j := range idx {
				idx[j] = rnd.Intn(n)
			}
			opts := make([]TreeOption, 0, len(b.treeOpts)+1)
			opts = append(opts, b.treeOpts...)
			opts = append(opts, WithClasses(b.classes))
			tree := NewTree(opts...)
			if err := tree.FitIndices(X, y, idx, rnd); err != nil {
				return fmt.Errorf("tree %d: %w", k, err)
			}
			b.Trees[k] = tree
			return nil
		})
	}
	return g.Wait()
}

func treeKey(k int) string {
	return fmt.Sprintf("tree-%04d", k)
}

// Predict returns the majority-vote label per row
func (b *BaggedTrees) Predict(X [][]float64) ([]classify.Label, error) {
	preds, err := b.PredictWithVotes(X)
	if err != nil {
		return nil, err
	}
	return classify.Labels(preds), nil
}

// PredictWithVotes returns per-row predictions with the full vote tally.
// Ties break toward the lowest class index, which is the first class in
// sorted order.
func (b *BaggedTrees) PredictWithVotes(X [][]float64) ([]classify.Prediction, error) {
	if len(b.Trees) == 0 {
		return nil, fmt.Errorf("ensemble: not fitted")
	}

	votes := make([][]int, len(X))
	for i := range votes {
		votes[i] = make([]int, len(b.classes))
	}
	for k, tree := range b.Trees {
		labels, err := tree.Predict(X)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", k, err)
		}
		for i, lab := range labels {
			ci, ok := b.classIndex(lab)
			if !ok {
				return nil, fmt.Errorf("tree %d voted unknown class %q", k, lab)
			}
			votes[i][ci]++
		}
	}

	out := make([]classify.Prediction, len(X))
	for i, tally := range votes {
		winner := 0
		for ci := 1; ci < len(tally); ci++ {
			if tally[ci] > tally[winner] {
				winner = ci
			}
		}
		voteMap := make(map[classify.Label]int, len(tally))
		for ci, c := range tally {
			if c > 0 {
				voteMap[b.classes[ci]] = c
			}
		}
		out[i] = classify.Prediction{Row: i, Label: b.classes[winner], Votes: voteMap}
	}
	return out, nil
}

func (b *BaggedTrees) classIndex(l classify.Label) (int, bool) {
	for i, c := range b.classes {
		if c == l {
			return i, true
		}
	}
	return 0, false
}

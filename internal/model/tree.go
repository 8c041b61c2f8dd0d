package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gohar/domain/classify"
)

// Tree is a CART-style classifier: binary splits on numeric features chosen
// by Gini impurity. Encoded categorical features arrive as level codes and
// split on the same threshold rule. Inputs must be fully observed; a NaN
// cell is rejected at fit and predict time rather than routed heuristically.
type Tree struct {
	MaxDepth        int     // 0 means no depth limit
	MinSamplesSplit int     // minimum rows to attempt a split
	MinSamplesLeaf  int     // minimum rows in each child
	MaxFeatures     int     // 0 means consider every feature at each split
	ComplexityParam float64 // minimum gain as a fraction of root impurity

	classes []classify.Label
	root    *treeNode
	width   int
}

type treeNode struct {
	leaf      bool
	feature   int
	threshold float64 // x <= threshold goes left
	left      *treeNode
	right     *treeNode

	n    int
	pred int // class index, majority of rows at this node
}

// TreeOption configures a Tree
type TreeOption func(*Tree)

func WithMaxDepth(d int) TreeOption        { return func(t *Tree) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) TreeOption { return func(t *Tree) { t.MinSamplesSplit = n } }
func WithMinSamplesLeaf(n int) TreeOption  { return func(t *Tree) { t.MinSamplesLeaf = n } }
func WithMaxFeatures(k int) TreeOption     { return func(t *Tree) { t.MaxFeatures = k } }

// WithComplexityParam sets the minimum relative impurity gain for a split,
// measured against the root's impurity. Nonzero values keep the tree coarse.
func WithComplexityParam(cp float64) TreeOption {
	return func(t *Tree) { t.ComplexityParam = cp }
}

// WithClasses pins the class list and its ordering. Ensembles pin the pooled
// class list so every member tree votes in the same index space even when a
// bootstrap sample misses a class.
func WithClasses(classes []classify.Label) TreeOption {
	return func(t *Tree) { t.classes = append([]classify.Label(nil), classes...) }
}

// NewTree returns a tree with defaults matching an unpruned CART fit
func NewTree(opts ...TreeOption) *Tree {
	t := &Tree{MinSamplesSplit: 2, MinSamplesLeaf: 1}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Classes returns the fitted class list in index order
func (t *Tree) Classes() []classify.Label {
	return t.classes
}

// Fit trains on every row of X. The caller owns rnd so an identical stream
// replays an identical tree.
func (t *Tree) Fit(X [][]float64, y []classify.Label, rnd *rand.Rand) error {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitIndices(X, y, idx, rnd)
}

// FitIndices trains on the rows named by idx. Bootstrap callers pass sampled
// indices, repeats included, so no rows are copied.
func (t *Tree) FitIndices(X [][]float64, y []classify.Label, idx []int, rnd *rand.Rand) error {
	if len(X) == 0 {
		return fmt.Errorf("tree: no rows")
	}
	if len(y) != len(X) {
		return fmt.Errorf("tree: %d rows but %d labels", len(X), len(y))
	}
	if len(idx) == 0 {
		return fmt.Errorf("tree: empty index set")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return fmt.Errorf("tree: row %d has %d features, expected %d", i, len(X[i]), p)
		}
	}
	for _, ii := range idx {
		if ii < 0 || ii >= len(X) {
			return fmt.Errorf("tree: index %d out of range", ii)
		}
		for j, v := range X[ii] {
			if math.IsNaN(v) {
				return fmt.Errorf("tree: NaN at row %d feature %d", ii, j)
			}
		}
	}

	if t.classes == nil {
		t.classes = classify.ClassesOf(y)
	}
	classIdx := make(map[classify.Label]int, len(t.classes))
	for i, c := range t.classes {
		classIdx[c] = i
	}
	yi := make([]int, len(y))
	for i, lab := range y {
		ci, ok := classIdx[lab]
		if !ok {
			return fmt.Errorf("tree: label %q not in class list", lab)
		}
		yi[i] = ci
	}

	t.width = p
	b := &treeBuilder{
		tree:    t,
		X:       X,
		yi:      yi,
		rnd:     rnd,
		nClass:  len(t.classes),
		minGain: 0,
	}
	rootCounts := b.countClasses(idx)
	b.minGain = t.ComplexityParam * gini(rootCounts)
	t.root = b.build(idx, 0)
	return nil
}

// Predict returns one label per row of X
func (t *Tree) Predict(X [][]float64) ([]classify.Label, error) {
	if t.root == nil {
		return nil, fmt.Errorf("tree: not fitted")
	}
	out := make([]classify.Label, len(X))
	for i, row := range X {
		ci, err := t.predictRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = t.classes[ci]
	}
	return out, nil
}

// predictRow walks the tree and returns the class index for one row
func (t *Tree) predictRow(x []float64) (int, error) {
	if len(x) != t.width {
		return 0, fmt.Errorf("tree: %d features, fitted with %d", len(x), t.width)
	}
	node := t.root
	for !node.leaf {
		v := x[node.feature]
		if math.IsNaN(v) {
			return 0, fmt.Errorf("tree: NaN at feature %d", node.feature)
		}
		if v <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.pred, nil
}

// NodeCount returns the number of nodes in the fitted tree
func (t *Tree) NodeCount() int {
	return countNodes(t.root)
}

func countNodes(n *treeNode) int {
	if n == nil {
		return 0
	}
	return 1 + countNodes(n.left) + countNodes(n.right)
}

// treeBuilder carries fit-time state so recursion signatures stay short
type treeBuilder struct {
	tree    *Tree
	X       [][]float64
	yi      []int
	rnd     *rand.Rand
	nClass  int
	minGain float64
}

func (b *treeBuilder) countClasses(idx []int) []int {
	counts := make([]int, b.nClass)
	for _, ii := range idx {
		counts[b.yi[ii]]++
	}
	return counts
}

func (b *treeBuilder) build(idx []int, depth int) *treeNode {
	counts := b.countClasses(idx)
	node := &treeNode{n: len(idx), pred: argmax(counts)}

	if isPure(counts) || len(idx) < b.tree.MinSamplesSplit {
		node.leaf = true
		return node
	}
	if b.tree.MaxDepth > 0 && depth >= b.tree.MaxDepth {
		node.leaf = true
		return node
	}

	feat := b.featureCandidates()
	parent := gini(counts)

	var best split
	for _, f := range feat {
		if s, ok := b.bestSplitOn(f, idx, counts, parent); ok && s.gain > best.gain {
			best = s
		}
	}
	if best.gain <= 0 || best.gain < b.minGain {
		node.leaf = true
		return node
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, ii := range idx {
		if b.X[ii][best.feature] <= best.threshold {
			left = append(left, ii)
		} else {
			right = append(right, ii)
		}
	}

	node.feature = best.feature
	node.threshold = best.threshold
	node.left = b.build(left, depth+1)
	node.right = b.build(right, depth+1)
	return node
}

// featureCandidates returns the features to scan at one node. With
// MaxFeatures set, a random subset is drawn from the node's stream.
func (b *treeBuilder) featureCandidates() []int {
	p := b.tree.width
	if b.tree.MaxFeatures <= 0 || b.tree.MaxFeatures >= p {
		feat := make([]int, p)
		for j := range feat {
			feat[j] = j
		}
		return feat
	}
	perm := b.rnd.Perm(p)
	feat := perm[:b.tree.MaxFeatures]
	sort.Ints(feat)
	return feat
}

type split struct {
	gain      float64
	feature   int
	threshold float64
}

// bestSplitOn scans one feature for its best midpoint threshold. Rows are
// sorted by value once, then class counts shift incrementally from the right
// partition to the left so each candidate costs O(classes).
func (b *treeBuilder) bestSplitOn(f int, idx []int, counts []int, parent float64) (split, bool) {
	order := make([]int, len(idx))
	copy(order, idx)
	sort.Slice(order, func(i, j int) bool { return b.X[order[i]][f] < b.X[order[j]][f] })

	leftCounts := make([]int, b.nClass)
	rightCounts := make([]int, b.nClass)
	copy(rightCounts, counts)

	total := float64(len(order))
	minLeaf := b.tree.MinSamplesLeaf
	best := split{feature: f}
	found := false

	for s := 1; s < len(order); s++ {
		prev := order[s-1]
		leftCounts[b.yi[prev]]++
		rightCounts[b.yi[prev]]--

		prevV := b.X[prev][f]
		currV := b.X[order[s]][f]
		if prevV == currV {
			continue
		}
		if s < minLeaf || len(order)-s < minLeaf {
			continue
		}

		weighted := (float64(s)/total)*gini(leftCounts) + (float64(len(order)-s)/total)*gini(rightCounts)
		gain := parent - weighted
		if gain > best.gain {
			best.gain = gain
			best.threshold = (prevV + currV) / 2
			found = true
		}
	}
	return best, found
}

// gini returns 1 - sum(p_i^2) over class shares
func gini(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 1.0
	for _, c := range counts {
		p := float64(c) / n
		res -= p * p
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func argmax(counts []int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}

package classify

import (
	"fmt"
	"strings"

	"gohar/domain/core"
)

// ConfusionMatrix tallies predictions against actual labels. Rows are
// predicted classes, columns are actual classes. The class set is fixed at
// construction; tallying an unknown label is an error, not a silent grow.
type ConfusionMatrix struct {
	Classes []Label `json:"classes"`
	Counts  [][]int `json:"counts"`

	index map[Label]int
}

// NewConfusionMatrix creates a zeroed matrix over the given class ordering
func NewConfusionMatrix(classes []Label) *ConfusionMatrix {
	m := &ConfusionMatrix{
		Classes: append([]Label(nil), classes...),
		Counts:  make([][]int, len(classes)),
	}
	for i := range m.Counts {
		m.Counts[i] = make([]int, len(classes))
	}
	return m
}

func (m *ConfusionMatrix) classIndex(l Label) (int, bool) {
	if m.index == nil {
		m.index = make(map[Label]int, len(m.Classes))
		for i, c := range m.Classes {
			m.index[c] = i
		}
	}
	i, ok := m.index[l]
	return i, ok
}

// Add tallies one prediction against its actual label
func (m *ConfusionMatrix) Add(predicted, actual Label) error {
	p, ok := m.classIndex(predicted)
	if !ok {
		return fmt.Errorf("%w: predicted %q", core.ErrUnknownClass, predicted)
	}
	a, ok := m.classIndex(actual)
	if !ok {
		return fmt.Errorf("%w: actual %q", core.ErrUnknownClass, actual)
	}
	m.Counts[p][a]++
	return nil
}

// AddAll tallies paired prediction and actual slices
func (m *ConfusionMatrix) AddAll(predicted, actual []Label) error {
	if len(predicted) != len(actual) {
		return fmt.Errorf("prediction count %d does not match actual count %d", len(predicted), len(actual))
	}
	for i := range predicted {
		if err := m.Add(predicted[i], actual[i]); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// Merge adds another matrix's counts. Class orderings must be identical.
func (m *ConfusionMatrix) Merge(other *ConfusionMatrix) error {
	if len(other.Classes) != len(m.Classes) {
		return fmt.Errorf("cannot merge matrices over different class sets")
	}
	for i, c := range m.Classes {
		if other.Classes[i] != c {
			return fmt.Errorf("cannot merge matrices over different class sets")
		}
	}
	for i := range m.Counts {
		for j := range m.Counts[i] {
			m.Counts[i][j] += other.Counts[i][j]
		}
	}
	return nil
}

// Count returns the tally for one predicted/actual pair
func (m *ConfusionMatrix) Count(predicted, actual Label) int {
	p, ok := m.classIndex(predicted)
	if !ok {
		return 0
	}
	a, ok := m.classIndex(actual)
	if !ok {
		return 0
	}
	return m.Counts[p][a]
}

// Total returns the number of tallied pairs
func (m *ConfusionMatrix) Total() int {
	n := 0
	for i := range m.Counts {
		for j := range m.Counts[i] {
			n += m.Counts[i][j]
		}
	}
	return n
}

// Trace returns the diagonal sum, the number of correct predictions
func (m *ConfusionMatrix) Trace() int {
	n := 0
	for i := range m.Counts {
		n += m.Counts[i][i]
	}
	return n
}

// Accuracy returns trace over total, 0 for an empty matrix
func (m *ConfusionMatrix) Accuracy() float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	return float64(m.Trace()) / float64(total)
}

// rowSums and colSums are predicted and actual marginals respectively
func (m *ConfusionMatrix) rowSums() []int {
	sums := make([]int, len(m.Classes))
	for i := range m.Counts {
		for j := range m.Counts[i] {
			sums[i] += m.Counts[i][j]
		}
	}
	return sums
}

func (m *ConfusionMatrix) colSums() []int {
	sums := make([]int, len(m.Classes))
	for i := range m.Counts {
		for j := range m.Counts[i] {
			sums[j] += m.Counts[i][j]
		}
	}
	return sums
}

// NoInformationRate returns the largest actual-class share, the accuracy an
// always-majority predictor would score.
func (m *ConfusionMatrix) NoInformationRate() float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	max := 0
	for _, s := range m.colSums() {
		if s > max {
			max = s
		}
	}
	return float64(max) / float64(total)
}

// Kappa returns Cohen's kappa: observed agreement corrected for the
// agreement expected from the marginals alone. Degenerate marginals (expected
// agreement 1) return 0.
func (m *ConfusionMatrix) Kappa() float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	rows := m.rowSums()
	cols := m.colSums()
	po := m.Accuracy()
	pe := 0.0
	for i := range m.Classes {
		pe += float64(rows[i]) * float64(cols[i])
	}
	pe /= float64(total) * float64(total)
	if pe >= 1 {
		return 0
	}
	return (po - pe) / (1 - pe)
}

// ClassStats holds one-vs-rest statistics for a single class
type ClassStats struct {
	Class            Label   `json:"class"`
	Sensitivity      float64 `json:"sensitivity"`
	Specificity      float64 `json:"specificity"`
	PosPredValue     float64 `json:"pos_pred_value"`
	NegPredValue     float64 `json:"neg_pred_value"`
	Prevalence       float64 `json:"prevalence"`
	BalancedAccuracy float64 `json:"balanced_accuracy"`
}

// ByClass returns one-vs-rest statistics per class in class order
func (m *ConfusionMatrix) ByClass() []ClassStats {
	total := m.Total()
	rows := m.rowSums()
	cols := m.colSums()
	out := make([]ClassStats, len(m.Classes))

	ratio := func(num, den int) float64 {
		if den == 0 {
			return 0
		}
		return float64(num) / float64(den)
	}

	for k, class := range m.Classes {
		tp := m.Counts[k][k]
		fn := cols[k] - tp
		fp := rows[k] - tp
		tn := total - tp - fn - fp
		sens := ratio(tp, tp+fn)
		spec := ratio(tn, tn+fp)
		out[k] = ClassStats{
			Class:            class,
			Sensitivity:      sens,
			Specificity:      spec,
			PosPredValue:     ratio(tp, tp+fp),
			NegPredValue:     ratio(tn, tn+fn),
			Prevalence:       ratio(cols[k], total),
			BalancedAccuracy: (sens + spec) / 2,
		}
	}
	return out
}

// String renders an aligned matrix with predicted classes as rows and actual
// classes as columns.
func (m *ConfusionMatrix) String() string {
	width := 9
	for i := range m.Counts {
		for j := range m.Counts[i] {
			if w := len(fmt.Sprintf("%d", m.Counts[i][j])); w+2 > width {
				width = w + 2
			}
		}
	}
	for _, c := range m.Classes {
		if len(string(c))+2 > width {
			width = len(string(c)) + 2
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-10s", "predicted"))
	for _, c := range m.Classes {
		b.WriteString(fmt.Sprintf("%*s", width, string(c)))
	}
	b.WriteString("\n")
	for i, c := range m.Classes {
		b.WriteString(fmt.Sprintf("%-10s", string(c)))
		for j := range m.Classes {
			b.WriteString(fmt.Sprintf("%*d", width, m.Counts[i][j]))
		}
		if i < len(m.Classes)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

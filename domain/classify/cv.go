package classify

// Prediction is one predicted label for a query or held-out row
type Prediction struct {
	Row   int           `json:"row"`
	Label Label         `json:"label"`
	Votes map[Label]int `json:"votes,omitempty"`
}

// Labels extracts the label vector from predictions in slice order
func Labels(preds []Prediction) []Label {
	out := make([]Label, len(preds))
	for i, p := range preds {
		out[i] = p.Label
	}
	return out
}

// Agree reports whether two prediction vectors carry identical labels row by
// row. The first disagreeing row index is returned alongside false.
func Agree(a, b []Prediction) (bool, int) {
	if len(a) != len(b) {
		return false, 0
	}
	for i := range a {
		if a[i].Label != b[i].Label {
			return false, i
		}
	}
	return true, -1
}

// FoldOutcome is the held-out score of one cross-validation fold
type FoldOutcome struct {
	Fold     int     `json:"fold"`
	TestRows int     `json:"test_rows"`
	Accuracy float64 `json:"accuracy"`
}

// CVSummary aggregates fold outcomes with the pooled held-out matrix
type CVSummary struct {
	Folds        []FoldOutcome    `json:"folds"`
	MeanAccuracy float64          `json:"mean_accuracy"`
	MinAccuracy  float64          `json:"min_accuracy"`
	MaxAccuracy  float64          `json:"max_accuracy"`
	Pooled       *ConfusionMatrix `json:"pooled"`
}

// NewCVSummary computes aggregate accuracy figures from fold outcomes
func NewCVSummary(folds []FoldOutcome, pooled *ConfusionMatrix) CVSummary {
	s := CVSummary{Folds: folds, Pooled: pooled}
	if len(folds) == 0 {
		return s
	}
	s.MinAccuracy = folds[0].Accuracy
	s.MaxAccuracy = folds[0].Accuracy
	sum := 0.0
	for _, f := range folds {
		sum += f.Accuracy
		if f.Accuracy < s.MinAccuracy {
			s.MinAccuracy = f.Accuracy
		}
		if f.Accuracy > s.MaxAccuracy {
			s.MaxAccuracy = f.Accuracy
		}
	}
	s.MeanAccuracy = sum / float64(len(folds))
	return s
}

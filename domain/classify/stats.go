package classify

import "fmt"

// EvaluationStats is the overall block of a held-out classification report:
// accuracy with its exact 95% binomial interval, the no-information rate
// with a one-sided test of accuracy against it, and Cohen's kappa.
type EvaluationStats struct {
	Accuracy float64 `json:"accuracy"`
	CILower  float64 `json:"ci_lower"`
	CIUpper  float64 `json:"ci_upper"`
	NIR      float64 `json:"nir"`
	PValue   float64 `json:"p_value"`
	Kappa    float64 `json:"kappa"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
}

// String renders the block the way held-out reports usually print it
func (s EvaluationStats) String() string {
	return fmt.Sprintf(
		"Accuracy : %.4f\n95%% CI  : (%.4f, %.4f)\nNIR      : %.4f\nP-Value [Acc > NIR] : %.4g\nKappa    : %.4f",
		s.Accuracy, s.CILower, s.CIUpper, s.NIR, s.PValue, s.Kappa)
}

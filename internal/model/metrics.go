package model

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"gohar/domain/classify"
)

// Evaluate derives the summary statistics block from a confusion matrix
func Evaluate(m *classify.ConfusionMatrix) (classify.EvaluationStats, error) {
	total := m.Total()
	if total == 0 {
		return classify.EvaluationStats{}, fmt.Errorf("evaluate: empty confusion matrix")
	}
	correct := m.Trace()
	nir := m.NoInformationRate()

	lower, upper := clopperPearson(correct, total, 0.95)
	return classify.EvaluationStats{
		Accuracy: m.Accuracy(),
		CILower:  lower,
		CIUpper:  upper,
		NIR:      nir,
		PValue:   accuracyPValue(correct, total, nir),
		Kappa:    m.Kappa(),
		Correct:  correct,
		Total:    total,
	}, nil
}

// clopperPearson returns the exact binomial confidence interval for x
// successes in n trials, via beta distribution quantiles.
func clopperPearson(x, n int, level float64) (float64, float64) {
	alpha := 1 - level
	lower := 0.0
	if x > 0 {
		lower = distuv.Beta{Alpha: float64(x), Beta: float64(n - x + 1)}.Quantile(alpha / 2)
	}
	upper := 1.0
	if x < n {
		upper = distuv.Beta{Alpha: float64(x + 1), Beta: float64(n - x)}.Quantile(1 - alpha/2)
	}
	return lower, upper
}

// accuracyPValue is the one-sided binomial probability of observing at
// least x correct out of n if true accuracy were the no-information rate
func accuracyPValue(x, n int, nir float64) float64 {
	if nir <= 0 {
		if x > 0 {
			return 0
		}
		return 1
	}
	if nir >= 1 {
		return 1
	}
	if x == 0 {
		return 1
	}
	bin := distuv.Binomial{N: float64(n), P: nir}
	p := 1 - bin.CDF(float64(x-1))
	if p < 0 {
		p = 0
	}
	return p
}

package model

import (
	"math"
	"strings"
	"testing"

	"gohar/domain/classify"
)

func TestClopperPearsonKnownIntervals(t *testing.T) {
	// All 20 correct: R binom.test(20, 20) gives (0.8316, 1.0000)
	lower, upper := clopperPearson(20, 20, 0.95)
	if math.Abs(lower-0.8316) > 5e-4 {
		t.Errorf("lower bound %f, want about 0.8316", lower)
	}
	if upper != 1 {
		t.Errorf("upper bound %f, want 1", upper)
	}

	// None correct mirrors it
	lower, upper = clopperPearson(0, 20, 0.95)
	if lower != 0 {
		t.Errorf("lower bound %f, want 0", lower)
	}
	if math.Abs(upper-0.1684) > 5e-4 {
		t.Errorf("upper bound %f, want about 0.1684", upper)
	}

	// Half correct: interval brackets 0.5 symmetrically
	lower, upper = clopperPearson(10, 20, 0.95)
	if !(lower < 0.5 && 0.5 < upper) {
		t.Errorf("interval (%f, %f) should bracket 0.5", lower, upper)
	}
	if math.Abs((0.5-lower)-(upper-0.5)) > 1e-6 {
		t.Errorf("interval (%f, %f) should be symmetric around 0.5", lower, upper)
	}
}

func TestAccuracyPValueAgainstNIR(t *testing.T) {
	// 20/20 correct against NIR 0.5: p = 0.5^20
	p := accuracyPValue(20, 20, 0.5)
	want := math.Pow(0.5, 20)
	if math.Abs(p-want) > 1e-9 {
		t.Errorf("p-value %g, want %g", p, want)
	}

	// Scoring exactly at chance is not evidence
	if p := accuracyPValue(10, 20, 0.5); p < 0.5 {
		t.Errorf("at-chance p-value %f should not look significant", p)
	}

	// Degenerate rates
	if p := accuracyPValue(5, 20, 0); p != 0 {
		t.Errorf("any success against NIR 0 has p %f, want 0", p)
	}
	if p := accuracyPValue(20, 20, 1); p != 1 {
		t.Errorf("against NIR 1 p %f, want 1", p)
	}
	if p := accuracyPValue(0, 20, 0.5); p != 1 {
		t.Errorf("zero successes p %f, want 1", p)
	}
}

func TestEvaluateFromMatrix(t *testing.T) {
	m := classify.NewConfusionMatrix([]classify.Label{"A", "B"})
	// predicted A for 45 actual A and 5 actual B; predicted B for 5 A, 45 B
	for i := 0; i < 45; i++ {
		mustAdd(t, m, "A", "A")
		mustAdd(t, m, "B", "B")
	}
	for i := 0; i < 5; i++ {
		mustAdd(t, m, "A", "B")
		mustAdd(t, m, "B", "A")
	}

	stats, err := Evaluate(m)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if stats.Total != 100 || stats.Correct != 90 {
		t.Fatalf("tally %d/%d, want 90/100", stats.Correct, stats.Total)
	}
	if stats.Accuracy != 0.9 {
		t.Errorf("accuracy %f", stats.Accuracy)
	}
	// Balanced binary at 90%: kappa = 2*0.9 - 1
	if math.Abs(stats.Kappa-0.8) > 1e-12 {
		t.Errorf("kappa %f, want 0.8", stats.Kappa)
	}
	if stats.NIR != 0.5 {
		t.Errorf("NIR %f, want 0.5", stats.NIR)
	}
	if !(stats.CILower < 0.9 && 0.9 < stats.CIUpper) {
		t.Errorf("CI (%f, %f) should bracket the accuracy", stats.CILower, stats.CIUpper)
	}
	if stats.PValue > 1e-10 {
		t.Errorf("90%% against NIR 50%% should be decisive, p=%g", stats.PValue)
	}

	rendered := stats.String()
	for _, want := range []string{"Accuracy", "95% CI", "NIR", "Kappa"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered stats missing %q:\n%s", want, rendered)
		}
	}
}

func TestEvaluateEmptyMatrix(t *testing.T) {
	m := classify.NewConfusionMatrix([]classify.Label{"A", "B"})
	if _, err := Evaluate(m); err == nil {
		t.Fatalf("empty matrix must not evaluate")
	}
}

func mustAdd(t *testing.T, m *classify.ConfusionMatrix, pred, actual classify.Label) {
	t.Helper()
	if err := m.Add(pred, actual); err != nil {
		t.Fatalf("add: %v", err)
	}
}

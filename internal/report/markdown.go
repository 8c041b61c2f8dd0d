package report

import (
	"fmt"
	"sort"
	"strings"

	"gohar/domain/classify"
	"gohar/domain/core"
	"gohar/domain/run"
	"gohar/domain/table"
	"gohar/ports"
)

// profileExcerptRows bounds how many high-missingness columns the report shows
const profileExcerptRows = 5

// RenderMarkdown renders the run report as a markdown document
func RenderMarkdown(r RunReport) (string, error) {
	if r.Manifest == nil {
		return "", core.NewValidationError("report", "run manifest is required")
	}

	var b strings.Builder
	writeHeader(&b, r.Manifest)
	writeInputs(&b, r)
	if r.Schema != nil {
		writeSchema(&b, r.Schema)
	}
	if r.Tree != nil {
		writeEvaluation(&b, "Baseline tree", r.Tree)
	}
	if r.Ensemble != nil {
		writeEvaluation(&b, "Bagged ensemble", r.Ensemble)
	}
	if r.Predictions != nil {
		writePredictions(&b, r.Predictions)
	}
	return b.String(), nil
}

func writeHeader(b *strings.Builder, m *run.RunManifestArtifact) {
	b.WriteString(fmt.Sprintf("# Run Report: %s\n\n", m.RunID))
	b.WriteString(fmt.Sprintf("- **Status**: %s\n", m.Status))
	b.WriteString(fmt.Sprintf("- **Seed**: %d\n", m.Seed))
	b.WriteString(fmt.Sprintf("- **Folds**: %d\n", m.Folds))
	b.WriteString(fmt.Sprintf("- **Trees**: %d\n", m.Trees))
	b.WriteString(fmt.Sprintf("- **Code version**: %s\n", m.CodeVersion))
	b.WriteString(fmt.Sprintf("- **Fingerprint**: `%s`\n", m.Fingerprint.Fingerprint.Short()))
	b.WriteString(fmt.Sprintf("- **Created**: %s\n", m.CreatedAt))
	if m.CompletedAt != nil {
		b.WriteString(fmt.Sprintf("- **Completed**: %s (%d ms)\n",
			*m.CompletedAt, m.CompletedAt.MillisSince(m.CreatedAt)))
	}
	b.WriteString("\n")
}

func writeInputs(b *strings.Builder, r RunReport) {
	m := r.Manifest
	b.WriteString("## Inputs\n\n")
	b.WriteString(fmt.Sprintf("- **Reference**: `%s` (fingerprint `%s`)\n",
		m.ReferencePath, core.Hash(m.ReferenceFingerprint).Short()))
	b.WriteString(fmt.Sprintf("- **Query**: `%s` (fingerprint `%s`)\n",
		m.QueryPath, core.Hash(m.QueryFingerprint).Short()))
	b.WriteString("\n")

	if r.RefProfile != nil {
		writeProfile(b, "Reference profile", r.RefProfile)
	}
	if r.QueryProfile != nil {
		writeProfile(b, "Query profile", r.QueryProfile)
	}
}

func writeProfile(b *strings.Builder, title string, p *ports.TableProfile) {
	withMissing := 0
	for _, c := range p.Columns {
		if c.MissingCount > 0 {
			withMissing++
		}
	}

	b.WriteString(fmt.Sprintf("### %s\n\n", title))
	b.WriteString(fmt.Sprintf("%d rows, %d columns; %d columns carry missing cells.\n\n",
		p.Rows, len(p.Columns), withMissing))
	if withMissing == 0 {
		return
	}

	// Show the worst offenders so a reader sees why columns get dropped.
	excerpt := make([]ports.ColumnProfile, 0, len(p.Columns))
	for _, c := range p.Columns {
		if c.MissingCount > 0 {
			excerpt = append(excerpt, c)
		}
	}
	sort.SliceStable(excerpt, func(i, j int) bool {
		return excerpt[i].MissingRate > excerpt[j].MissingRate
	})
	if len(excerpt) > profileExcerptRows {
		excerpt = excerpt[:profileExcerptRows]
	}

	b.WriteString("| Column | Kind | Missing |\n")
	b.WriteString("|---|---|---|\n")
	for _, c := range excerpt {
		b.WriteString(fmt.Sprintf("| `%s` | %s | %.1f%% |\n", c.Name, c.Kind, c.MissingRate*100))
	}
	b.WriteString("\n")
}

func writeSchema(b *strings.Builder, s *run.SchemaArtifact) {
	numeric, categorical := 0, 0
	for _, f := range s.Schema.Features {
		if f.Kind == table.KindCategorical {
			categorical++
		} else {
			numeric++
		}
	}

	b.WriteString("## Declared schema\n\n")
	b.WriteString(fmt.Sprintf("- **Features**: %d (%d numeric, %d categorical)\n",
		len(s.Schema.Features), numeric, categorical))
	b.WriteString(fmt.Sprintf("- **Outcome**: `%s`\n", s.Schema.Outcome))
	b.WriteString(fmt.Sprintf("- **Subject**: `%s`\n", s.Schema.Subject))
	b.WriteString(fmt.Sprintf("- **Excluded**: %d columns\n", len(s.Schema.Dropped)))
	b.WriteString(fmt.Sprintf("- **Fingerprint**: `%s`\n\n", core.Hash(s.Fingerprint).Short()))
}

func writeEvaluation(b *strings.Builder, title string, e *run.EvaluationArtifact) {
	b.WriteString(fmt.Sprintf("## %s\n\n", title))
	b.WriteString(fmt.Sprintf("Model `%s`, %d-fold cross-validation.\n\n", e.Model, len(e.CV.Folds)))

	if len(e.CV.Folds) > 0 {
		b.WriteString("| Fold | Test rows | Accuracy |\n")
		b.WriteString("|---|---|---|\n")
		for _, f := range e.CV.Folds {
			b.WriteString(fmt.Sprintf("| %d | %d | %.4f |\n", f.Fold, f.TestRows, f.Accuracy))
		}
		b.WriteString(fmt.Sprintf("\nMean accuracy %.4f (min %.4f, max %.4f).\n\n",
			e.CV.MeanAccuracy, e.CV.MinAccuracy, e.CV.MaxAccuracy))
	}

	if e.CV.Pooled != nil {
		writeMatrix(b, e.CV.Pooled)
	}

	b.WriteString("```text\n")
	b.WriteString(e.Stats.String())
	b.WriteString("\n```\n\n")
}

func writeMatrix(b *strings.Builder, m *classify.ConfusionMatrix) {
	b.WriteString("Pooled held-out confusion matrix:\n\n")
	b.WriteString("| predicted / actual |")
	for _, c := range m.Classes {
		b.WriteString(fmt.Sprintf(" %s |", c))
	}
	b.WriteString("\n|---|")
	for range m.Classes {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for i, c := range m.Classes {
		b.WriteString(fmt.Sprintf("| **%s** |", c))
		for j := range m.Classes {
			b.WriteString(fmt.Sprintf(" %d |", m.Counts[i][j]))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writePredictions(b *strings.Builder, p *run.PredictionsArtifact) {
	b.WriteString("## Query predictions\n\n")

	b.WriteString("| Row | Label |\n")
	b.WriteString("|---|---|\n")
	for _, pred := range p.FullRefit {
		b.WriteString(fmt.Sprintf("| %d | %s |\n", pred.Row+1, pred.Label))
	}
	b.WriteString("\n")

	if p.Agree {
		b.WriteString(fmt.Sprintf(
			"Cross-validated and fully refit models agree on all %d rows.\n", len(p.FullRefit)))
		return
	}

	cvLabel, refitLabel := "?", "?"
	if p.DisagreeRow >= 0 && p.DisagreeRow < len(p.CVVariant) {
		cvLabel = string(p.CVVariant[p.DisagreeRow].Label)
	}
	if p.DisagreeRow >= 0 && p.DisagreeRow < len(p.FullRefit) {
		refitLabel = string(p.FullRefit[p.DisagreeRow].Label)
	}
	b.WriteString(fmt.Sprintf(
		"Disagreement at query row %d: cross-validated model predicted %s, refit model predicted %s.\n",
		p.DisagreeRow+1, cvLabel, refitLabel))
}

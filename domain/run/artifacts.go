package run

import (
	"gohar/domain/classify"
	"gohar/domain/core"
	"gohar/domain/table"
)

// SchemaArtifact records the declared feature schema a run worked against
type SchemaArtifact struct {
	RunID       core.RunID             `json:"run_id"`
	Schema      *table.Schema          `json:"schema"`
	Fingerprint core.SchemaFingerprint `json:"fingerprint"`
}

// ToCoreArtifact wraps the schema payload for ledger storage
func (a SchemaArtifact) ToCoreArtifact() core.Artifact {
	return core.Artifact{ID: core.NewID(), Kind: core.ArtifactSchema, Payload: a, CreatedAt: core.Now()}
}

// FoldAssignmentArtifact records which rows each CV fold held out
type FoldAssignmentArtifact struct {
	RunID core.RunID `json:"run_id"`
	Folds [][]int    `json:"folds"`
	Seed  int64      `json:"seed"`
}

// ToCoreArtifact wraps the fold assignment for ledger storage
func (a FoldAssignmentArtifact) ToCoreArtifact() core.Artifact {
	return core.Artifact{ID: core.NewID(), Kind: core.ArtifactFoldAssignment, Payload: a, CreatedAt: core.Now()}
}

// EvaluationArtifact pairs one model's cross-validation summary with its
// derived statistics block
type EvaluationArtifact struct {
	RunID core.RunID               `json:"run_id"`
	Model string                   `json:"model"`
	CV    classify.CVSummary       `json:"cv"`
	Stats classify.EvaluationStats `json:"stats"`
}

// ToCoreArtifact wraps an evaluation under the matching artifact kind
func (a EvaluationArtifact) ToCoreArtifact(kind core.ArtifactKind) core.Artifact {
	return core.Artifact{ID: core.NewID(), Kind: kind, Payload: a, CreatedAt: core.Now()}
}

// PredictionsArtifact records the query predictions of the cross-validated
// variant and the full refit, which must agree row for row
type PredictionsArtifact struct {
	RunID       core.RunID            `json:"run_id"`
	CVVariant   []classify.Prediction `json:"cv_variant"`
	FullRefit   []classify.Prediction `json:"full_refit"`
	Agree       bool                  `json:"agree"`
	DisagreeRow int                   `json:"disagree_row"`
}

// ToCoreArtifact wraps the predictions payload for ledger storage
func (a PredictionsArtifact) ToCoreArtifact() core.Artifact {
	return core.Artifact{ID: core.NewID(), Kind: core.ArtifactPredictions, Payload: a, CreatedAt: core.Now()}
}

// ReportArtifact stores one rendered run report
type ReportArtifact struct {
	RunID   core.RunID `json:"run_id"`
	Format  string     `json:"format"`
	Content string     `json:"content"`
}

// ToCoreArtifact wraps the rendered report for ledger storage
func (a ReportArtifact) ToCoreArtifact() core.Artifact {
	return core.Artifact{ID: core.NewID(), Kind: core.ArtifactReport, Payload: a, CreatedAt: core.Now()}
}

package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"gohar/domain/classify"
	"gohar/domain/core"
	"gohar/domain/run"
	"gohar/domain/table"
	"gohar/internal/logging"
	"gohar/internal/model"
	"gohar/internal/prep"
	"gohar/internal/report"
	"gohar/ports"
)

// PipelineService orchestrates the full activity classification run: ingest,
// preparation, baseline and ensemble evaluation, query prediction, and the
// artifact trail in the ledger.
type PipelineService struct {
	reader   ports.TableReaderPort
	profiler ports.ProfilerPort
	ledger   ports.LedgerPort
	rng      ports.RNGPort
	logger   *logging.Logger
}

// NewPipelineService creates a pipeline service from its ports
func NewPipelineService(reader ports.TableReaderPort, profiler ports.ProfilerPort,
	ledger ports.LedgerPort, rng ports.RNGPort, logger *logging.Logger) *PipelineService {

	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &PipelineService{
		reader:   reader,
		profiler: profiler,
		ledger:   ledger,
		rng:      rng,
		logger:   logger,
	}
}

// PipelineRequest defines the inputs of one run. Every source of randomness
// derives from Seed; two requests with equal inputs replay identically.
type PipelineRequest struct {
	RunID         core.RunID
	ReferencePath string
	QueryPath     string
	Seed          int64
	Folds         int
	Trees         int
	Complexity    float64
	MaxDepth      int
	MinLeaf       int
	MinSplit      int
	MaxWorkers    int
	CodeVersion   string
}

// PipelineResult carries the run outputs alongside the stored manifest
type PipelineResult struct {
	RunID       core.RunID
	Manifest    *run.RunManifestArtifact
	Schema      run.SchemaArtifact
	Tree        run.EvaluationArtifact
	Ensemble    run.EvaluationArtifact
	Predictions run.PredictionsArtifact
	Report      report.RunReport
	RuntimeMs   int64
}

// Run executes the pipeline end to end. The manifest is stored first and
// finalized last, so the ledger always shows how far a run got.
func (s *PipelineService) Run(ctx context.Context, req PipelineRequest) (*PipelineResult, error) {
	start := time.Now()
	if err := validatePipelineRequest(&req); err != nil {
		return nil, err
	}
	runID := req.RunID
	if runID == "" {
		runID = core.RunID(core.NewID())
	}
	s.logger.Info("[Pipeline] run %s: seed=%d folds=%d trees=%d", runID, req.Seed, req.Folds, req.Trees)

	rawRef, err := s.reader.ReadTable(ctx, req.ReferencePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference table: %w", err)
	}
	rawQuery, err := s.reader.ReadTable(ctx, req.QueryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read query table: %w", err)
	}

	// Reports route profile artifacts by these names
	rawRef = rawRef.Rename("reference")
	rawQuery = rawQuery.Rename("query")

	prepared, err := prep.Prepare(rawRef, rawQuery, prep.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("preparation failed: %w", err)
	}
	s.logger.Info("[Pipeline] run %s: %d features declared, %d sentinel cells mapped, %d cells imputed",
		runID, prepared.Schema.NumFeatures(), prepared.SentinelCells,
		prepared.RefImputation.Filled+prepared.QueryImputation.Filled)

	manifest := run.NewRunManifestArtifact(runID, req.ReferencePath, req.QueryPath,
		rawRef.Fingerprint(), rawQuery.Fingerprint(), prepared.Schema.Fingerprint(),
		req.Seed, req.Folds, req.Trees, req.CodeVersion)
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("run manifest invalid: %w", err)
	}
	if err := s.ledger.StoreArtifact(ctx, runID.String(), manifest.ToCoreArtifact()); err != nil {
		return nil, fmt.Errorf("failed to store run manifest: %w", err)
	}

	refProfile, queryProfile, err := s.storeProfiles(ctx, runID, rawRef, rawQuery)
	if err != nil {
		return nil, s.failRun(ctx, manifest, err)
	}

	schemaArt := run.SchemaArtifact{RunID: runID, Schema: prepared.Schema, Fingerprint: prepared.Schema.Fingerprint()}
	if err := s.ledger.StoreArtifact(ctx, runID.String(), schemaArt.ToCoreArtifact()); err != nil {
		return nil, s.failRun(ctx, manifest, fmt.Errorf("failed to store schema artifact: %w", err))
	}

	X, err := prep.FeatureMatrix(prepared.Reference, prepared.Schema)
	if err != nil {
		return nil, s.failRun(ctx, manifest, fmt.Errorf("failed to encode reference matrix: %w", err))
	}
	y, err := prep.OutcomeLabels(prepared.Reference, prepared.Schema)
	if err != nil {
		return nil, s.failRun(ctx, manifest, fmt.Errorf("failed to extract outcome labels: %w", err))
	}
	Xq, err := prep.FeatureMatrix(prepared.Query, prepared.Schema)
	if err != nil {
		return nil, s.failRun(ctx, manifest, fmt.Errorf("failed to encode query matrix: %w", err))
	}

	// Streams scope on the run fingerprint, not the run ID: replaying equal
	// inputs under a fresh ID reproduces the same folds, trees, and labels.
	scope := manifest.Fingerprint.Fingerprint.String()

	if err := s.storeFoldAssignment(ctx, runID, scope, req, len(y)); err != nil {
		return nil, s.failRun(ctx, manifest, err)
	}

	classes := classify.ClassesOf(y)
	treeEval, err := s.evaluateTree(ctx, runID, scope, req, X, y, classes)
	if err != nil {
		return nil, s.failRun(ctx, manifest, err)
	}
	ensembleEval, err := s.evaluateEnsemble(ctx, runID, scope, req, X, y)
	if err != nil {
		return nil, s.failRun(ctx, manifest, err)
	}

	predictions, err := s.predictQuery(ctx, runID, scope, req, X, y, Xq)
	if err != nil {
		return nil, s.failRun(ctx, manifest, err)
	}
	if !predictions.Agree {
		row := predictions.DisagreeRow
		err := core.NewDisagreementError(row,
			predictions.CVVariant[row].Label.String(), predictions.FullRefit[row].Label.String())
		return nil, s.failRun(ctx, manifest, err)
	}

	manifest.Complete(run.RunCompleted)
	if err := s.ledger.StoreArtifact(ctx, runID.String(), manifest.ToCoreArtifact()); err != nil {
		return nil, fmt.Errorf("failed to finalize run manifest: %w", err)
	}

	runReport := report.RunReport{
		Manifest:     manifest,
		RefProfile:   refProfile,
		QueryProfile: queryProfile,
		Schema:       &schemaArt,
		Tree:         &treeEval,
		Ensemble:     &ensembleEval,
		Predictions:  &predictions,
	}
	if err := s.storeReport(ctx, runID, runReport); err != nil {
		return nil, err
	}

	runtimeMs := time.Since(start).Milliseconds()
	s.logger.Info("[Pipeline] run %s completed in %dms: tree %.4f, ensemble %.4f",
		runID, runtimeMs, treeEval.Stats.Accuracy, ensembleEval.Stats.Accuracy)

	return &PipelineResult{
		RunID:       runID,
		Manifest:    manifest,
		Schema:      schemaArt,
		Tree:        treeEval,
		Ensemble:    ensembleEval,
		Predictions: predictions,
		Report:      runReport,
		RuntimeMs:   runtimeMs,
	}, nil
}

// Prepare runs ingest and preparation without touching the ledger. The
// prepare CLI verb uses it to inspect the declared schema.
func (s *PipelineService) Prepare(ctx context.Context, referencePath, queryPath string) (*prep.Result, error) {
	rawRef, err := s.reader.ReadTable(ctx, referencePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference table: %w", err)
	}
	rawQuery, err := s.reader.ReadTable(ctx, queryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read query table: %w", err)
	}
	result, err := prep.Prepare(rawRef.Rename("reference"), rawQuery.Rename("query"), prep.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("preparation failed: %w", err)
	}
	return result, nil
}

// Profile reads one file and returns its raw column profile
func (s *PipelineService) Profile(ctx context.Context, path string) (*ports.TableProfile, error) {
	t, err := s.reader.ReadTable(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	profile, err := s.profiler.ProfileTable(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to profile table: %w", err)
	}
	return profile, nil
}

// storeProfiles profiles both raw tables and stores the results. Profiling
// runs before preparation so all-missing columns still get counted.
func (s *PipelineService) storeProfiles(ctx context.Context, runID core.RunID, rawRef, rawQuery *table.Table) (*ports.TableProfile, *ports.TableProfile, error) {
	refProfile, err := s.profiler.ProfileTable(ctx, rawRef)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to profile reference table: %w", err)
	}
	queryProfile, err := s.profiler.ProfileTable(ctx, rawQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to profile query table: %w", err)
	}
	for _, profile := range []*ports.TableProfile{refProfile, queryProfile} {
		art := core.Artifact{ID: core.NewID(), Kind: core.ArtifactDataProfile, Payload: profile, CreatedAt: core.Now()}
		if err := s.ledger.StoreArtifact(ctx, runID.String(), art); err != nil {
			return nil, nil, fmt.Errorf("failed to store %s profile: %w", profile.Table, err)
		}
	}
	return refProfile, queryProfile, nil
}

// failRun records the failed manifest and hands the cause back
func (s *PipelineService) failRun(ctx context.Context, manifest *run.RunManifestArtifact, cause error) error {
	manifest.Complete(run.RunFailed)
	if err := s.ledger.StoreArtifact(ctx, manifest.RunID.String(), manifest.ToCoreArtifact()); err != nil {
		s.logger.Error("[Pipeline] run %s: failed to record failure: %v", manifest.RunID, err)
	}
	return cause
}

// storeFoldAssignment derives the shared fold partition and stores it. The
// cv fold stream re-derives identically for every consumer, so the stored
// assignment is exactly the partition both model evaluations saw.
func (s *PipelineService) storeFoldAssignment(ctx context.Context, runID core.RunID, scope string, req PipelineRequest, n int) error {
	foldRnd, err := s.rng.Stream(ctx, scope, "cv", "folds", req.Seed)
	if err != nil {
		return fmt.Errorf("failed to derive fold stream: %w", err)
	}
	folds, err := model.KFold(n, req.Folds, foldRnd)
	if err != nil {
		return fmt.Errorf("fold assignment failed: %w", err)
	}
	art := run.FoldAssignmentArtifact{RunID: runID, Folds: folds, Seed: req.Seed}
	if err := s.ledger.StoreArtifact(ctx, runID.String(), art.ToCoreArtifact()); err != nil {
		return fmt.Errorf("failed to store fold assignment: %w", err)
	}
	return nil
}

// evaluateTree cross-validates the pruned single-tree baseline
func (s *PipelineService) evaluateTree(ctx context.Context, runID core.RunID, scope string, req PipelineRequest,
	X [][]float64, y []classify.Label, classes []classify.Label) (run.EvaluationArtifact, error) {

	foldRnd, err := s.rng.Stream(ctx, scope, "cv", "folds", req.Seed)
	if err != nil {
		return run.EvaluationArtifact{}, fmt.Errorf("failed to derive fold stream: %w", err)
	}

	cv, err := model.CrossValidate(ctx, y, req.Folds, foldRnd,
		func(ctx context.Context, foldKey string, train, test []int) ([]classify.Label, error) {
			rnd, err := s.rng.Stream(ctx, scope, "tree_cv", foldKey, req.Seed)
			if err != nil {
				return nil, err
			}
			opts := append(s.treeOptions(req, req.Complexity), model.WithClasses(classes))
			tree := model.NewTree(opts...)
			if err := tree.FitIndices(X, y, train, rnd); err != nil {
				return nil, err
			}
			return tree.Predict(selectRows(X, test))
		})
	if err != nil {
		return run.EvaluationArtifact{}, fmt.Errorf("decision tree cross-validation failed: %w", err)
	}

	stats, err := model.Evaluate(cv.Pooled)
	if err != nil {
		return run.EvaluationArtifact{}, fmt.Errorf("decision tree evaluation failed: %w", err)
	}
	eval := run.EvaluationArtifact{RunID: runID, Model: "decision_tree", CV: cv, Stats: stats}
	if err := s.ledger.StoreArtifact(ctx, runID.String(), eval.ToCoreArtifact(core.ArtifactTreeEvaluation)); err != nil {
		return run.EvaluationArtifact{}, fmt.Errorf("failed to store tree evaluation: %w", err)
	}
	s.logger.Info("[Pipeline] run %s: decision tree CV accuracy %.4f", runID, stats.Accuracy)
	return eval, nil
}

// evaluateEnsemble cross-validates the bagged ensemble on the same fold
// partition as the baseline
func (s *PipelineService) evaluateEnsemble(ctx context.Context, runID core.RunID, scope string, req PipelineRequest,
	X [][]float64, y []classify.Label) (run.EvaluationArtifact, error) {

	foldRnd, err := s.rng.Stream(ctx, scope, "cv", "folds", req.Seed)
	if err != nil {
		return run.EvaluationArtifact{}, fmt.Errorf("failed to derive fold stream: %w", err)
	}

	cv, err := model.CrossValidate(ctx, y, req.Folds, foldRnd,
		func(ctx context.Context, foldKey string, train, test []int) ([]classify.Label, error) {
			ens := s.newEnsemble(req)
			streams := s.streamsFor(ctx, scope, "ensemble_cv_"+foldKey, req.Seed)
			if err := ens.Fit(ctx, selectRows(X, train), selectLabels(y, train), streams); err != nil {
				return nil, err
			}
			return ens.Predict(selectRows(X, test))
		})
	if err != nil {
		return run.EvaluationArtifact{}, fmt.Errorf("ensemble cross-validation failed: %w", err)
	}

	stats, err := model.Evaluate(cv.Pooled)
	if err != nil {
		return run.EvaluationArtifact{}, fmt.Errorf("ensemble evaluation failed: %w", err)
	}
	eval := run.EvaluationArtifact{RunID: runID, Model: "bagged_trees", CV: cv, Stats: stats}
	if err := s.ledger.StoreArtifact(ctx, runID.String(), eval.ToCoreArtifact(core.ArtifactEnsembleEvaluation)); err != nil {
		return run.EvaluationArtifact{}, fmt.Errorf("failed to store ensemble evaluation: %w", err)
	}
	s.logger.Info("[Pipeline] run %s: ensemble CV accuracy %.4f", runID, stats.Accuracy)
	return eval, nil
}

// predictQuery fits the cross-validated variant and an independent full
// refit on the complete reference data, then compares their query labels
// row for row.
func (s *PipelineService) predictQuery(ctx context.Context, runID core.RunID, scope string, req PipelineRequest,
	X [][]float64, y []classify.Label, Xq [][]float64) (run.PredictionsArtifact, error) {

	cvVariant := s.newEnsemble(req)
	if err := cvVariant.Fit(ctx, X, y, s.streamsFor(ctx, scope, "ensemble_final", req.Seed)); err != nil {
		return run.PredictionsArtifact{}, fmt.Errorf("final ensemble fit failed: %w", err)
	}
	cvPreds, err := cvVariant.PredictWithVotes(Xq)
	if err != nil {
		return run.PredictionsArtifact{}, fmt.Errorf("query prediction failed: %w", err)
	}

	refit := s.newEnsemble(req)
	if err := refit.Fit(ctx, X, y, s.streamsFor(ctx, scope, "ensemble_refit", req.Seed)); err != nil {
		return run.PredictionsArtifact{}, fmt.Errorf("refit ensemble fit failed: %w", err)
	}
	refitPreds, err := refit.PredictWithVotes(Xq)
	if err != nil {
		return run.PredictionsArtifact{}, fmt.Errorf("refit query prediction failed: %w", err)
	}

	agree, row := classify.Agree(cvPreds, refitPreds)
	art := run.PredictionsArtifact{
		RunID:       runID,
		CVVariant:   cvPreds,
		FullRefit:   refitPreds,
		Agree:       agree,
		DisagreeRow: row,
	}
	if err := s.ledger.StoreArtifact(ctx, runID.String(), art.ToCoreArtifact()); err != nil {
		return run.PredictionsArtifact{}, fmt.Errorf("failed to store predictions: %w", err)
	}
	return art, nil
}

// storeReport renders the run report and stores it as an artifact
func (s *PipelineService) storeReport(ctx context.Context, runID core.RunID, r report.RunReport) error {
	md, err := report.RenderMarkdown(r)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	art := run.ReportArtifact{RunID: runID, Format: "markdown", Content: md}
	if err := s.ledger.StoreArtifact(ctx, runID.String(), art.ToCoreArtifact()); err != nil {
		return fmt.Errorf("failed to store report artifact: %w", err)
	}
	return nil
}

// newEnsemble builds the bagged ensemble for this request. Members always
// grow unpruned; the complexity parameter only shapes the baseline tree.
func (s *PipelineService) newEnsemble(req PipelineRequest) *model.BaggedTrees {
	return model.NewBaggedTrees(
		model.WithTreeCount(req.Trees),
		model.WithWorkers(req.MaxWorkers),
		model.WithTreeOptions(s.treeOptions(req, 0)...),
	)
}

// treeOptions maps request knobs onto tree options, leaving constructor
// defaults alone for unset values
func (s *PipelineService) treeOptions(req PipelineRequest, cp float64) []model.TreeOption {
	opts := []model.TreeOption{model.WithComplexityParam(cp)}
	if req.MaxDepth > 0 {
		opts = append(opts, model.WithMaxDepth(req.MaxDepth))
	}
	if req.MinLeaf > 0 {
		opts = append(opts, model.WithMinSamplesLeaf(req.MinLeaf))
	}
	if req.MinSplit > 0 {
		opts = append(opts, model.WithMinSamplesSplit(req.MinSplit))
	}
	return opts
}

// streamsFor adapts the RNG port to the ensemble's per-tree stream source
func (s *PipelineService) streamsFor(ctx context.Context, scope, stage string, seed int64) model.StreamFunc {
	return func(key string) (*rand.Rand, error) {
		return s.rng.Stream(ctx, scope, stage, key, seed)
	}
}

func validatePipelineRequest(req *PipelineRequest) error {
	if strings.TrimSpace(req.ReferencePath) == "" {
		return core.NewValidationError("pipeline", "reference path is required")
	}
	if strings.TrimSpace(req.QueryPath) == "" {
		return core.NewValidationError("pipeline", "query path is required")
	}
	if req.Folds < 2 {
		return core.NewValidationError("pipeline", "folds must be at least 2")
	}
	if req.Trees < 1 {
		return core.NewValidationError("pipeline", "trees must be at least 1")
	}
	if req.Complexity < 0 || req.Complexity >= 1 {
		return core.NewValidationError("pipeline", "complexity must be in [0, 1)")
	}
	if req.MaxWorkers < 1 {
		req.MaxWorkers = 1
	}
	if req.CodeVersion == "" {
		req.CodeVersion = "dev"
	}
	return nil
}

func selectRows(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, row := range idx {
		out[i] = X[row]
	}
	return out
}

func selectLabels(y []classify.Label, idx []int) []classify.Label {
	out := make([]classify.Label, len(idx))
	for i, row := range idx {
		out[i] = y[row]
	}
	return out
}

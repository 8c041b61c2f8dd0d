package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gohar/app"
	"gohar/domain/core"
	"gohar/domain/run"
	"gohar/domain/table"
	"gohar/internal/config"
	"gohar/internal/container"
	"gohar/internal/report"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is stamped into run manifests; it participates in the run
// fingerprint, so a release bump invalidates replay against older runs.
var version = "v0.3.0"

func main() {
	// Values from .env fill in unset environment keys
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gohar",
		Short: "Sensor activity classification with a deterministic artifact trail",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newPrepareCmd(),
		newProfileCmd(),
		newRunsCmd(),
		newReportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var seed int64
	var folds, trees, workers int
	var complexity float64
	var ledgerOn, htmlOut bool
	var reportDir string

	cmd := &cobra.Command{
		Use:   "run [reference-file] [query-file]",
		Short: "Execute the full classification pipeline",
		Long: `Run ingest, preparation, baseline and ensemble cross-validation, and
query prediction end to end, recording every stage as a ledger artifact.

File arguments fall back to REFERENCE_FILE and QUERY_FILE. Two runs with
the same inputs and seed carry the same fingerprint and reproduce the
same folds, trees, and predicted labels.

Example: gohar run data/pml-training.csv data/pml-testing.csv --seed 42 --trees 64`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applyFileArgs(cfg, args)

			// Explicitly set flags win over the environment
			if cmd.Flags().Changed("seed") {
				cfg.Model.Seed = seed
			}
			if cmd.Flags().Changed("folds") {
				cfg.Model.Folds = folds
			}
			if cmd.Flags().Changed("trees") {
				cfg.Model.Trees = trees
			}
			if cmd.Flags().Changed("workers") {
				cfg.Model.MaxWorkers = workers
			}
			if cmd.Flags().Changed("complexity") {
				cfg.Model.Complexity = complexity
			}
			if cmd.Flags().Changed("ledger") {
				cfg.Ledger.Enabled = ledgerOn
			}
			if cmd.Flags().Changed("report-dir") {
				cfg.Report.Dir = reportDir
			}
			if cmd.Flags().Changed("html") {
				cfg.Report.RenderHTML = htmlOut
			}
			return runPipeline(cmd.Context(), cfg)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic operations")
	cmd.Flags().IntVar(&folds, "folds", 5, "Cross-validation fold count")
	cmd.Flags().IntVar(&trees, "trees", 64, "Ensemble member count")
	cmd.Flags().IntVar(&workers, "workers", 4, "Parallel workers for ensemble fitting")
	cmd.Flags().Float64Var(&complexity, "complexity", 0.01, "Baseline tree complexity parameter")
	cmd.Flags().BoolVar(&ledgerOn, "ledger", true, "Persist artifacts to the on-disk ledger")
	cmd.Flags().StringVar(&reportDir, "report-dir", "reports", "Directory for rendered report files")
	cmd.Flags().BoolVar(&htmlOut, "html", false, "Also render the report as HTML")

	return cmd
}

func newPrepareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare [reference-file] [query-file]",
		Short: "Derive and inspect the declared schema without modeling",
		Long: `Ingest both tables and run the preparation contract: sentinel mapping,
schema inference, integer widening, and mean imputation. Prints the
declared schema and the imputation summary. Nothing is persisted.

Example: gohar prepare data/pml-training.csv data/pml-testing.csv`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applyFileArgs(cfg, args)
			return runPrepare(cmd.Context(), cfg)
		},
	}
	return cmd
}

func newProfileCmd() *cobra.Command {
	var missingOnly bool

	cmd := &cobra.Command{
		Use:   "profile [data-file]",
		Short: "Profile one data file column by column",
		Long: `Read a single table and print its per-column statistical profile:
storage kind, missingness, distinct counts, and numeric summaries.

Example: gohar profile data/pml-training.csv --missing-only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runProfile(cmd.Context(), cfg, args[0], missingOnly)
		},
	}

	cmd.Flags().BoolVar(&missingOnly, "missing-only", false, "Show only columns that carry missing cells")

	return cmd
}

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runList(cmd.Context(), cfg, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")

	return cmd
}

func newReportCmd() *cobra.Command {
	var save, htmlOut bool

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Rebuild the report for a recorded run",
		Long: `Reconstruct a run report from the artifacts in the ledger and print it
as markdown. Failed and partial runs reconstruct too, with the missing
sections left out.

Example: gohar report 0190b5e2-... --save --html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("html") {
				cfg.Report.RenderHTML = htmlOut
			}
			return runReport(cmd.Context(), cfg, args[0], save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Also write the report under the report directory")
	cmd.Flags().BoolVar(&htmlOut, "html", false, "Render HTML alongside markdown when saving")

	return cmd
}

// applyFileArgs lets positional file arguments override the configured paths
func applyFileArgs(cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Data.ReferenceFile = args[0]
	}
	if len(args) > 1 {
		cfg.Data.QueryFile = args[1]
	}
}

func runPipeline(ctx context.Context, cfg *config.Config) error {
	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	if err := c.InitLedger(); err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("🏃 Running activity classification pipeline...\n")
	fmt.Printf("Reference: %s\n", cfg.Data.ReferenceFile)
	fmt.Printf("Query: %s\n", cfg.Data.QueryFile)

	result, err := c.Pipeline.Run(ctx, app.PipelineRequest{
		ReferencePath: cfg.Data.ReferenceFile,
		QueryPath:     cfg.Data.QueryFile,
		Seed:          cfg.Model.Seed,
		Folds:         cfg.Model.Folds,
		Trees:         cfg.Model.Trees,
		Complexity:    cfg.Model.Complexity,
		MaxDepth:      cfg.Model.MaxDepth,
		MinLeaf:       cfg.Model.MinSamplesLeaf,
		MinSplit:      cfg.Model.MinSamplesSplit,
		MaxWorkers:    cfg.Model.MaxWorkers,
		CodeVersion:   version,
	})
	if err != nil {
		return err
	}

	m := result.Manifest
	fmt.Printf("\n=== RUN MANIFEST ===\n")
	fmt.Printf("Run ID: %s\n", result.RunID)
	fmt.Printf("Status: %s\n", m.Status)
	fmt.Printf("Seed: %d | Folds: %d | Trees: %d | Code: %s\n", m.Seed, m.Folds, m.Trees, m.CodeVersion)
	fmt.Printf("Fingerprint: %s\n", m.Fingerprint.Fingerprint)
	fmt.Printf("Runtime: %d ms\n", result.RuntimeMs)

	printSchema(result.Schema)

	fmt.Printf("\n=== BASELINE TREE ===\n")
	printEvaluation(result.Tree)

	fmt.Printf("\n=== BAGGED ENSEMBLE ===\n")
	printEvaluation(result.Ensemble)

	fmt.Printf("\n=== QUERY PREDICTIONS ===\n")
	for _, p := range result.Predictions.FullRefit {
		fmt.Printf("%3d. %s\n", p.Row+1, p.Label)
	}
	fmt.Printf("Cross-validated and refit models agree on all %d rows.\n", len(result.Predictions.FullRefit))

	if err := writeReportFiles(cfg, result.RunID, result.Report); err != nil {
		return err
	}

	fmt.Printf("\n✅ PIPELINE COMPLETED SUCCESSFULLY\n")
	fmt.Printf("Replay with the same inputs and --seed %d to reproduce fingerprint %s.\n",
		m.Seed, m.Fingerprint.Fingerprint.Short())

	return nil
}

func runPrepare(ctx context.Context, cfg *config.Config) error {
	// Inspection verbs never persist anything
	cfg.Ledger.Enabled = false

	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	if err := c.InitLedger(); err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("🔬 Preparing %s against %s...\n", cfg.Data.ReferenceFile, cfg.Data.QueryFile)

	res, err := c.Pipeline.Prepare(ctx, cfg.Data.ReferenceFile, cfg.Data.QueryFile)
	if err != nil {
		return err
	}

	s := res.Schema
	fmt.Printf("\n=== DECLARED SCHEMA ===\n")
	fmt.Printf("Outcome: %s | Subject: %s | Fingerprint: %s\n",
		s.Outcome, s.Subject, core.Hash(s.Fingerprint()).Short())
	fmt.Printf("Features: %d\n", s.NumFeatures())
	for i, f := range s.Features {
		fmt.Printf("%3d. %-36s %s\n", i+1, f.Name, f.Kind)
	}

	if len(s.Dropped) > 0 {
		fmt.Printf("\n=== EXCLUDED COLUMNS (%d) ===\n", len(s.Dropped))
		for _, name := range s.Dropped {
			fmt.Printf("• %s\n", name)
		}
	}

	fmt.Printf("\n=== PREPARATION SUMMARY ===\n")
	fmt.Printf("Sentinel cells mapped to missing: %d\n", res.SentinelCells)
	fmt.Printf("Imputed cells: reference %d, query %d\n", res.RefImputation.Filled, res.QueryImputation.Filled)
	for _, ci := range res.RefImputation.Columns {
		fmt.Printf("• %s: %d cells filled with mean %.4f\n", ci.Column, ci.Filled, ci.Mean)
	}

	fmt.Printf("\n✅ Both tables conform to the declared schema with no missing cells.\n")
	return nil
}

func runProfile(ctx context.Context, cfg *config.Config, path string, missingOnly bool) error {
	cfg.Ledger.Enabled = false

	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	if err := c.InitLedger(); err != nil {
		return err
	}
	defer c.Close()

	p, err := c.Pipeline.Profile(ctx, path)
	if err != nil {
		return err
	}

	fmt.Printf("📊 PROFILE: %s\n", path)
	fmt.Printf("%d rows, %d columns (%d ms)\n\n", p.Rows, len(p.Columns), p.DurationMs)

	shown := 0
	for _, col := range p.Columns {
		if missingOnly && col.MissingCount == 0 {
			continue
		}
		shown++
		line := fmt.Sprintf("%-36s %-12s missing %5.1f%%  distinct %5d",
			col.Name, col.Kind, col.MissingRate*100, col.DistinctCount)
		switch table.ColumnKind(col.Kind) {
		case table.KindNumeric, table.KindInteger:
			line += fmt.Sprintf("  mean %10.4f  [%g, %g]", col.Mean, col.Min, col.Max)
		case table.KindCategorical:
			if len(col.TopLevels) > 0 {
				line += fmt.Sprintf("  top %s (%d)", col.TopLevels[0].Token, col.TopLevels[0].Count)
			}
		}
		fmt.Println(line)
	}
	if missingOnly {
		fmt.Printf("\n%d of %d columns carry missing cells.\n", shown, len(p.Columns))
	}
	return nil
}

func runList(ctx context.Context, cfg *config.Config, limit int) error {
	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	if err := c.InitLedger(); err != nil {
		return err
	}
	defer c.Close()

	runs, err := c.Reports.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-38s %-10s %6s %9s %9s  %s\n", "RUN", "STATUS", "SEED", "ACCURACY", "TIME", "CREATED")
	for _, r := range runs {
		acc := "-"
		if r.EnsembleAccuracy > 0 {
			acc = fmt.Sprintf("%.4f", r.EnsembleAccuracy)
		}
		fmt.Printf("%-38s %-10s %6d %9s %7dms  %s\n",
			r.ID, r.Status, r.Seed, acc, r.DurationMs, r.CreatedAt)
	}
	return nil
}

func runReport(ctx context.Context, cfg *config.Config, runIDArg string, save bool) error {
	runID, err := core.ParseRunID(runIDArg)
	if err != nil {
		return err
	}

	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	if err := c.InitLedger(); err != nil {
		return err
	}
	defer c.Close()

	r, err := c.Reports.BuildReport(ctx, runID)
	if err != nil {
		return err
	}

	md, err := report.RenderMarkdown(r)
	if err != nil {
		return err
	}
	fmt.Print(md)

	if save {
		return writeReportFiles(cfg, runID, r)
	}
	return nil
}

// writeReportFiles renders the report to disk under the configured directory
func writeReportFiles(cfg *config.Config, runID core.RunID, r report.RunReport) error {
	if err := os.MkdirAll(cfg.Report.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	md, err := report.RenderMarkdown(r)
	if err != nil {
		return err
	}
	mdPath := filepath.Join(cfg.Report.Dir, fmt.Sprintf("run_%s.md", runID))
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Printf("\n💾 Report saved to: %s\n", mdPath)

	if cfg.Report.RenderHTML {
		html, err := report.RenderHTML(r)
		if err != nil {
			return err
		}
		htmlPath := filepath.Join(cfg.Report.Dir, fmt.Sprintf("run_%s.html", runID))
		if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
			return fmt.Errorf("failed to write HTML report: %w", err)
		}
		fmt.Printf("💾 HTML report saved to: %s\n", htmlPath)
	}
	return nil
}

func printSchema(s run.SchemaArtifact) {
	numeric, categorical := 0, 0
	for _, f := range s.Schema.Features {
		if f.Kind == table.KindCategorical {
			categorical++
		} else {
			numeric++
		}
	}
	fmt.Printf("\n=== DECLARED SCHEMA ===\n")
	fmt.Printf("Features: %d (%d numeric, %d categorical) | Outcome: %s | Subject: %s\n",
		s.Schema.NumFeatures(), numeric, categorical, s.Schema.Outcome, s.Schema.Subject)
	fmt.Printf("Excluded columns: %d | Fingerprint: %s\n",
		len(s.Schema.Dropped), core.Hash(s.Fingerprint).Short())
}

func printEvaluation(e run.EvaluationArtifact) {
	fmt.Printf("Model: %s | %d-fold cross-validation\n", e.Model, len(e.CV.Folds))
	for _, f := range e.CV.Folds {
		fmt.Printf("Fold %d: %4d held-out rows, accuracy %.4f\n", f.Fold, f.TestRows, f.Accuracy)
	}
	fmt.Printf("Mean accuracy %.4f (min %.4f, max %.4f)\n\n", e.CV.MeanAccuracy, e.CV.MinAccuracy, e.CV.MaxAccuracy)
	fmt.Println(e.Stats.String())
}

package app

import (
	"context"
	"fmt"

	"gohar/domain/core"
	"gohar/domain/run"
	"gohar/internal/logging"
	"gohar/internal/report"
	"gohar/ports"
)

// ReportService rebuilds run reports and listings from the ledger
type ReportService struct {
	ledger ports.LedgerReaderPort
	logger *logging.Logger
}

// NewReportService creates a report service over a read-only ledger
func NewReportService(ledger ports.LedgerReaderPort, logger *logging.Logger) *ReportService {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &ReportService{ledger: ledger, logger: logger}
}

// BuildReport reconstructs the report for one run from its stored artifacts.
// Failed and partial runs reconstruct too; missing sections stay empty.
func (s *ReportService) BuildReport(ctx context.Context, runID core.RunID) (report.RunReport, error) {
	manifest, err := s.ledger.GetRunManifest(ctx, runID)
	if err != nil {
		return report.RunReport{}, fmt.Errorf("failed to load run manifest: %w", err)
	}
	artifacts, err := s.ledger.GetArtifactsByRun(ctx, runID)
	if err != nil {
		return report.RunReport{}, fmt.Errorf("failed to load run artifacts: %w", err)
	}
	r, err := report.FromArtifacts(manifest, artifacts)
	if err != nil {
		return report.RunReport{}, err
	}
	s.logger.Debug("[Report] run %s rebuilt from %d artifacts", runID, len(artifacts))
	return r, nil
}

// ListRuns returns the most recent runs, newest first
func (s *ReportService) ListRuns(ctx context.Context, limit int) ([]run.RunSummary, error) {
	runs, err := s.ledger.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

package app

import (
	"context"
	"time"

	"dqengine/domain/anomaly"
	"dqengine/domain/core"
	"dqengine/domain/table"
	"dqengine/domain/validation"
	"dqengine/internal"
	"dqengine/internal/errors"
	"dqengine/internal/report"
	"dqengine/internal/suite"
	"dqengine/ports"
)

// QualityService runs a compiled suite against a snapshot: anomaly detection
// first, then rule validation, then the gate
type QualityService struct {
	repo   ports.ReportRepository
	policy GatePolicy
	logger ports.Logger
}

// CheckRequest defines the inputs of one check run
type CheckRequest struct {
	Suite      *suite.Compiled
	Current    table.Dataset
	Historical table.Dataset // optional; nil disables volatility comparisons
	RunID      core.RunID    // optional, will be generated if empty
}

// CheckResult contains both reports and the gate outcome
type CheckResult struct {
	RunID        core.RunID `json:"run_id"`
	Suite        string     `json:"suite"`
	SuiteHash    core.Hash  `json:"suite_fingerprint"`
	Table        string     `json:"table"`
	CheckedAt    time.Time  `json:"checked_at"`
	RuntimeMs    int64      `json:"runtime_ms"`
	HealthScore  float64    `json:"health_score"`
	QualityScore float64    `json:"quality_score"`
	Passed       bool       `json:"passed"`
	Violations   []string   `json:"violations,omitempty"`
	// RejectedCells counts, per column of the current snapshot, source cells
	// that could not be read as the column's type and were checked as missing
	RejectedCells map[string]int     `json:"rejected_cells,omitempty"`
	Anomalies     *anomaly.Report    `json:"anomalies"`
	Validation    *validation.Report `json:"validation"`
}

// NewQualityService creates a quality service. repo may be nil to skip persistence.
func NewQualityService(repo ports.ReportRepository, policy GatePolicy, logger ports.Logger) *QualityService {
	return &QualityService{
		repo:   repo,
		policy: policy,
		logger: internal.Component(logger, "quality"),
	}
}

// Policy is the gate policy applied to every check
func (s *QualityService) Policy() GatePolicy { return s.policy }

// Check runs the suite. A persistence failure is logged and does not fail the check.
func (s *QualityService) Check(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	if req.Suite == nil {
		return nil, errors.InvalidInput("suite is required")
	}
	if req.Current == nil {
		return nil, errors.InvalidInput("current dataset is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled("check", err)
	}

	startTime := time.Now()

	runID := req.RunID
	if runID == "" {
		runID = core.NewRunID()
	}

	anomalies := req.Suite.Detector.Detect(req.Current, req.Historical)

	validationReport, err := req.Suite.Engine.Validate(ctx, req.Current)
	if err != nil {
		return nil, errors.Wrapf(err, "suite %s", req.Suite.Suite.Name)
	}

	result := &CheckResult{
		RunID:        runID,
		Suite:        req.Suite.Suite.Name,
		SuiteHash:    req.Suite.Fingerprint,
		Table:        req.Suite.Suite.Table,
		CheckedAt:    time.Now().UTC(),
		RuntimeMs:    time.Since(startTime).Milliseconds(),
		HealthScore:  anomalies.HealthScore,
		QualityScore: validationReport.QualityScore,
		Anomalies:    anomalies,
		Validation:   validationReport,
	}

	if rr, ok := req.Current.(ports.RejectionReporter); ok {
		result.RejectedCells = rr.Rejected()
		for column, n := range result.RejectedCells {
			s.logger.Warn("Run %s: %d cells in %s were unreadable and checked as missing", runID, n, column)
		}
	}

	result.Violations = s.policy.Violations(result)
	result.Passed = len(result.Violations) == 0

	s.logger.Info("Run %s on %s: health %.0f, quality %.2f%%, passed=%t",
		runID, result.Table, result.HealthScore, result.QualityScore*100, result.Passed)

	if s.repo != nil {
		if err := s.repo.Save(ctx, result.Record()); err != nil {
			s.logger.Error("Failed to save run %s: %v", runID, err)
		}
	}

	return result, nil
}

// LoadAndCheck pulls the snapshots through loader and runs the suite.
// An empty historicalSource runs without history.
func (s *QualityService) LoadAndCheck(ctx context.Context, loader ports.DatasetLoader, compiled *suite.Compiled, currentSource, historicalSource string) (*CheckResult, error) {
	current, err := loader.LoadDataset(ctx, currentSource)
	if err != nil {
		return nil, errors.Wrapf(err, "load current snapshot %s", currentSource)
	}

	req := CheckRequest{Suite: compiled, Current: current}
	if historicalSource != "" {
		historical, err := loader.LoadDataset(ctx, historicalSource)
		if err != nil {
			return nil, errors.Wrapf(err, "load historical snapshot %s", historicalSource)
		}
		req.Historical = historical
	}

	return s.Check(ctx, req)
}

// History lists the newest stored runs for a table
func (s *QualityService) History(ctx context.Context, tableName string, limit int) ([]ports.CheckRecord, error) {
	if s.repo == nil {
		return nil, errors.NotFound("check history store")
	}
	return s.repo.ListByTable(ctx, tableName, limit)
}

// Record converts the result into its persisted form
func (r *CheckResult) Record() *ports.CheckRecord {
	return &ports.CheckRecord{
		RunID:        r.RunID,
		Suite:        r.Suite,
		TableName:    r.Table,
		HealthScore:  r.HealthScore,
		QualityScore: r.QualityScore,
		Passed:       r.Passed,
		Anomalies:    r.Anomalies,
		Validation:   r.Validation,
		CreatedAt:    r.CheckedAt,
	}
}

// Document is the renderable view of the result
func (r *CheckResult) Document() report.Document {
	return report.Document{
		RunID:       r.RunID.String(),
		Suite:       r.Suite,
		SuiteHash:   r.SuiteHash.Short(),
		Table:       r.Table,
		GeneratedAt: r.CheckedAt,
		Anomalies:   r.Anomalies,
		Validation:  r.Validation,
		Violations:  r.Violations,
		Rejected:    r.RejectedCells,
	}
}

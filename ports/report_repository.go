package ports

import (
	"context"
	"time"

	"dqengine/domain/anomaly"
	"dqengine/domain/core"
	"dqengine/domain/validation"
)

// CheckRecord is one persisted quality check run
type CheckRecord struct {
	RunID        core.RunID         `json:"run_id" db:"run_id"`
	Suite        string             `json:"suite" db:"suite"`
	TableName    string             `json:"table_name" db:"table_name"`
	HealthScore  float64            `json:"health_score" db:"health_score"`
	QualityScore float64            `json:"quality_score" db:"quality_score"`
	Passed       bool               `json:"passed" db:"passed"`
	Anomalies    *anomaly.Report    `json:"anomalies" db:"-"`
	Validation   *validation.Report `json:"validation" db:"-"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
}

// ReportRepository stores check run history
type ReportRepository interface {
	Save(ctx context.Context, record *CheckRecord) error
	ListByTable(ctx context.Context, tableName string, limit int) ([]CheckRecord, error)
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"dqengine/domain/core"
	"dqengine/internal/errors"
	"dqengine/ports"
)

// reportRepository implements ports.ReportRepository on dq_check_runs
type reportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new check run repository
func NewReportRepository(db *sqlx.DB) ports.ReportRepository {
	return &reportRepository{db: db}
}

// checkRow mirrors a dq_check_runs row; the reports are stored as JSONB
type checkRow struct {
	RunID        string    `db:"run_id"`
	Suite        string    `db:"suite"`
	TableName    string    `db:"table_name"`
	HealthScore  float64   `db:"health_score"`
	QualityScore float64   `db:"quality_score"`
	Passed       bool      `db:"passed"`
	Anomalies    []byte    `db:"anomalies"`
	Validation   []byte    `db:"validation"`
	CreatedAt    time.Time `db:"created_at"`
}

// Save inserts a check run
func (r *reportRepository) Save(ctx context.Context, record *ports.CheckRecord) error {
	anomaliesJSON, err := marshalNullable(record.Anomalies != nil, record.Anomalies)
	if err != nil {
		return fmt.Errorf("failed to marshal anomaly report: %w", err)
	}
	validationJSON, err := marshalNullable(record.Validation != nil, record.Validation)
	if err != nil {
		return fmt.Errorf("failed to marshal validation report: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `INSERT INTO dq_check_runs (
		run_id, suite, table_name, health_score, quality_score, passed, anomalies, validation, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		record.RunID.String(), record.Suite, record.TableName, record.HealthScore, record.QualityScore,
		record.Passed, anomaliesJSON, validationJSON, createdAt,
	)
	if err != nil {
		return errors.Wrapf(errors.DatabaseError(err.Error()), "failed to save check run %s", record.RunID)
	}

	return nil
}

// ListByTable returns the newest runs for a table first
func (r *reportRepository) ListByTable(ctx context.Context, tableName string, limit int) ([]ports.CheckRecord, error) {
	query := `SELECT run_id, suite, table_name, health_score, quality_score, passed, anomalies, validation, created_at
	FROM dq_check_runs
	WHERE table_name = $1
	ORDER BY created_at DESC`

	args := []interface{}{tableName}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	var rows []checkRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrapf(errors.DatabaseError(err.Error()), "failed to list check runs for %s", tableName)
	}

	records := make([]ports.CheckRecord, 0, len(rows))
	for _, row := range rows {
		record := ports.CheckRecord{
			RunID:        core.RunID(row.RunID),
			Suite:        row.Suite,
			TableName:    row.TableName,
			HealthScore:  row.HealthScore,
			QualityScore: row.QualityScore,
			Passed:       row.Passed,
			CreatedAt:    row.CreatedAt,
		}
		if len(row.Anomalies) > 0 {
			if err := json.Unmarshal(row.Anomalies, &record.Anomalies); err != nil {
				return nil, fmt.Errorf("failed to unmarshal anomaly report for run %s: %w", row.RunID, err)
			}
		}
		if len(row.Validation) > 0 {
			if err := json.Unmarshal(row.Validation, &record.Validation); err != nil {
				return nil, fmt.Errorf("failed to unmarshal validation report for run %s: %w", row.RunID, err)
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// marshalNullable returns a nil argument for absent reports so the column stays NULL
func marshalNullable(present bool, v interface{}) (interface{}, error) {
	if !present {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Package detection implements the three-tier anomaly detector: schema and
// business rule validation, statistical outliers and volatility against a
// historical snapshot.
package detection

import (
	"time"

	"dqengine/domain/anomaly"
	"dqengine/domain/table"
	"dqengine/internal"
	"dqengine/ports"
)

// Detector runs tier 1, tier 2 and tier 3 in that order and builds a report
type Detector struct {
	Table string
	Tier1 *Validator
	Tier2 *OutlierDetector
	Tier3 *VolatilityAnalyzer

	logger ports.Logger
	now    func() time.Time
}

// NewDetector creates a detector with empty tiers for a table
func NewDetector(tableName string, opts ...Option) *Detector {
	s := newSettings(opts)
	return &Detector{
		Table:  tableName,
		Tier1:  newValidator(tableName, s),
		Tier2:  newOutlierDetector(tableName, s),
		Tier3:  newVolatilityAnalyzer(tableName, s),
		logger: internal.Component(s.logger, "anomaly."+tableName),
		now:    s.now,
	}
}

// Detect evaluates current (and historical, which may be nil) and always
// returns a report. Failing checks are logged and excluded.
func (d *Detector) Detect(current, historical table.Dataset) *anomaly.Report {
	var all []anomaly.Anomaly

	tier1 := d.Tier1.Detect(current)
	all = append(all, tier1...)
	d.logger.Info("Tier 1 (Validation): %d anomalies", len(tier1))

	tier2 := d.Tier2.Detect(current)
	all = append(all, tier2...)
	d.logger.Info("Tier 2 (Outliers): %d anomalies", len(tier2))

	tier3 := d.Tier3.Detect(current, historical)
	all = append(all, tier3...)
	d.logger.Info("Tier 3 (Volatility): %d anomalies", len(tier3))

	report := anomaly.NewReport(d.Table, current.Len(), all, d.now())
	if report.TotalAnomalies > 0 {
		d.logger.Warn("%s: %d anomalies, health score %.0f", d.Table, report.TotalAnomalies, report.HealthScore)
	}
	return report
}

// QuickAnomalyCheck requires the given columns and runs a default IQR check on
// each numeric column
func QuickAnomalyCheck(ds, historical table.Dataset, tableName string, required, numeric []string, opts ...Option) (*anomaly.Report, error) {
	if tableName == "" {
		tableName = "data"
	}
	d := NewDetector(tableName, opts...)

	if len(required) > 0 {
		if err := d.Tier1.RequireColumns(required...); err != nil {
			return nil, err
		}
	}
	for _, col := range numeric {
		if err := d.Tier2.AddIQRCheck(col, DefaultIQRMultiplier, anomaly.SeverityMedium); err != nil {
			return nil, err
		}
	}
	return d.Detect(ds, historical), nil
}

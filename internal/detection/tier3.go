package detection

import (
	"fmt"
	"time"

	"dqengine/domain/anomaly"
	"dqengine/domain/table"
	"dqengine/internal"
	"dqengine/internal/errors"
	"dqengine/ports"
)

// VolatilityKind is a tier 3 check type
type VolatilityKind string

const (
	KindSpike   VolatilityKind = "spike"
	KindDrop    VolatilityKind = "drop"
	KindVolume  VolatilityKind = "volume"
	KindRolling VolatilityKind = "rolling"
)

// Defaults for volatility checks
const (
	DefaultSpikeThresholdPct = 200.0
	DefaultDropThresholdPct  = 50.0
	DefaultWindowSize        = 7
	DefaultThresholdStd      = 2.0
	DefaultDateColumn        = "date"

	// RecordCountColumn is the pseudo-column volume anomalies are reported against
	RecordCountColumn = "_record_count"
)

// VolatilityCheck is one registered tier 3 check
type VolatilityCheck struct {
	Kind         VolatilityKind
	Column       string
	ThresholdPct float64
	ExpectedMin  int
	ExpectedMax  int
	WindowSize   int
	ThresholdStd float64
	DateColumn   string
	Severity     anomaly.Severity
}

// VolatilityAnalyzer is tier 3: changes against history and volume bounds
type VolatilityAnalyzer struct {
	table  string
	logger ports.Logger
	now    func() time.Time
	checks []VolatilityCheck
}

// NewVolatilityAnalyzer creates a tier 3 analyzer for a table
func NewVolatilityAnalyzer(tableName string, opts ...Option) *VolatilityAnalyzer {
	return newVolatilityAnalyzer(tableName, newSettings(opts))
}

func newVolatilityAnalyzer(tableName string, s settings) *VolatilityAnalyzer {
	return &VolatilityAnalyzer{
		table:  tableName,
		logger: internal.Component(s.logger, "anomaly.tier3."+tableName),
		now:    s.now,
	}
}

// AddSpikeDetection flags a column whose total grew by more than thresholdPct
func (a *VolatilityAnalyzer) AddSpikeDetection(column string, thresholdPct float64, severity anomaly.Severity) error {
	if thresholdPct <= 0 {
		return errors.RuleInvalid(column, "spike threshold must be positive")
	}
	return a.add(VolatilityCheck{Kind: KindSpike, Column: column, ThresholdPct: thresholdPct, Severity: severity})
}

// AddDropDetection flags a column whose total retained less than thresholdPct
// percent of its historical value
func (a *VolatilityAnalyzer) AddDropDetection(column string, thresholdPct float64, severity anomaly.Severity) error {
	if thresholdPct < 0 || thresholdPct > 100 {
		return errors.RuleInvalid(column, "drop threshold must be within [0, 100]")
	}
	return a.add(VolatilityCheck{Kind: KindDrop, Column: column, ThresholdPct: thresholdPct, Severity: severity})
}

// AddVolumeCheck flags record counts outside [expectedMin, expectedMax]
func (a *VolatilityAnalyzer) AddVolumeCheck(expectedMin, expectedMax int, severity anomaly.Severity) error {
	if expectedMin < 0 || expectedMax < expectedMin {
		return errors.RuleInvalid(RecordCountColumn, fmt.Sprintf("invalid volume bounds [%d, %d]", expectedMin, expectedMax))
	}
	return a.add(VolatilityCheck{Kind: KindVolume, Column: RecordCountColumn, ExpectedMin: expectedMin, ExpectedMax: expectedMax, Severity: severity})
}

// AddRollingAverageCheck registers a rolling-average deviation check. The
// configuration is kept but evaluation is not implemented and never reports.
func (a *VolatilityAnalyzer) AddRollingAverageCheck(column string, windowSize int, thresholdStd float64, dateColumn string, severity anomaly.Severity) error {
	if windowSize < 1 {
		return errors.RuleInvalid(column, "rolling window size must be at least 1")
	}
	if dateColumn == "" {
		dateColumn = DefaultDateColumn
	}
	return a.add(VolatilityCheck{
		Kind:         KindRolling,
		Column:       column,
		WindowSize:   windowSize,
		ThresholdStd: thresholdStd,
		DateColumn:   dateColumn,
		Severity:     severity,
	})
}

func (a *VolatilityAnalyzer) add(check VolatilityCheck) error {
	if check.Column == "" {
		return errors.RuleInvalid(string(check.Kind), "column is required")
	}
	if !check.Severity.IsValid() {
		return errors.RuleInvalid(check.Column, fmt.Sprintf("unknown severity %q", check.Severity))
	}
	a.checks = append(a.checks, check)
	return nil
}

// Checks returns the registered checks in order
func (a *VolatilityAnalyzer) Checks() []VolatilityCheck {
	return append([]VolatilityCheck(nil), a.checks...)
}

// Detect runs every check against current; historical may be nil, in which
// case checks that need history report nothing
func (a *VolatilityAnalyzer) Detect(current, historical table.Dataset) []anomaly.Anomaly {
	var out []anomaly.Anomaly
	for _, check := range a.checks {
		check := check
		name := fmt.Sprintf("%s check on %s", check.Kind, check.Column)

		found, err := guard(name, func() ([]anomaly.Anomaly, error) {
			switch check.Kind {
			case KindSpike:
				return a.detectSpike(current, historical, check)
			case KindDrop:
				return a.detectDrop(current, historical, check)
			case KindVolume:
				return a.detectVolume(current, check), nil
			case KindRolling:
				a.logger.Debug("Rolling average check on %s (window %d) is not implemented; skipping", check.Column, check.WindowSize)
				return nil, nil
			}
			return nil, fmt.Errorf("unknown volatility check %q", check.Kind)
		})
		if err != nil {
			a.logger.Error("Volatility %s failed: %v", name, err)
			continue
		}
		out = append(out, found...)
	}
	return out
}

// totals returns the current and historical column sums; ok is false when
// the comparison is inconclusive
func totals(current, historical table.Dataset, column string) (cur, hist float64, ok bool, err error) {
	if historical == nil || !current.HasColumn(column) {
		return 0, 0, false, nil
	}
	cur, err = current.Sum(column)
	if err != nil {
		return 0, 0, false, err
	}
	if !historical.HasColumn(column) {
		return cur, 0, false, nil
	}
	hist, err = historical.Sum(column)
	if err != nil {
		return 0, 0, false, err
	}
	if hist == 0 {
		return cur, 0, false, nil
	}
	return cur, hist, true, nil
}

func (a *VolatilityAnalyzer) detectSpike(current, historical table.Dataset, check VolatilityCheck) ([]anomaly.Anomaly, error) {
	cur, hist, ok, err := totals(current, historical, check.Column)
	if err != nil || !ok {
		return nil, err
	}

	change := (cur - hist) / hist * 100
	if change <= check.ThresholdPct {
		return nil, nil
	}

	return []anomaly.Anomaly{{
		ID:             fmt.Sprintf("volatility_spike_%s", check.Column),
		Type:           anomaly.TypeVolatility,
		Severity:       check.Severity,
		Column:         check.Column,
		DetectedAt:     a.now(),
		Description:    fmt.Sprintf("Sudden spike in '%s': +%.1f%% (threshold: %g%%)", check.Column, change, check.ThresholdPct),
		Value:          table.NewNumericValue(cur),
		DeviationScore: change,
		Metadata: anomaly.Metadata{
			"current_value":    anomaly.Number(cur),
			"historical_value": anomaly.Number(hist),
			"change_pct":       anomaly.Number(change),
		},
	}}, nil
}

func (a *VolatilityAnalyzer) detectDrop(current, historical table.Dataset, check VolatilityCheck) ([]anomaly.Anomaly, error) {
	cur, hist, ok, err := totals(current, historical, check.Column)
	if err != nil || !ok {
		return nil, err
	}

	drop := (hist - cur) / hist * 100
	limit := 100 - check.ThresholdPct
	if drop <= limit {
		return nil, nil
	}

	return []anomaly.Anomaly{{
		ID:             fmt.Sprintf("volatility_drop_%s", check.Column),
		Type:           anomaly.TypeVolatility,
		Severity:       check.Severity,
		Column:         check.Column,
		DetectedAt:     a.now(),
		Description:    fmt.Sprintf("Sudden drop in '%s': -%.1f%% (threshold: %g%%)", check.Column, drop, limit),
		Value:          table.NewNumericValue(cur),
		DeviationScore: drop,
		Metadata: anomaly.Metadata{
			"current_value":    anomaly.Number(cur),
			"historical_value": anomaly.Number(hist),
			"change_pct":       anomaly.Number(-drop),
		},
	}}, nil
}

func (a *VolatilityAnalyzer) detectVolume(current table.Dataset, check VolatilityCheck) []anomaly.Anomaly {
	count := current.Len()
	expected := &anomaly.Range{Low: float64(check.ExpectedMin), High: float64(check.ExpectedMax)}

	switch {
	case count < check.ExpectedMin:
		return []anomaly.Anomaly{{
			ID:            "volatility_volume_low",
			Type:          anomaly.TypeMissing,
			Severity:      check.Severity,
			Column:        RecordCountColumn,
			DetectedAt:    a.now(),
			Description:   fmt.Sprintf("Record count (%d) below expected minimum (%d)", count, check.ExpectedMin),
			Value:         table.NewNumericValue(float64(count)),
			ExpectedRange: expected,
			Metadata:      anomaly.Metadata{"missing_records": anomaly.Number(float64(check.ExpectedMin - count))},
		}}
	case count > check.ExpectedMax:
		return []anomaly.Anomaly{{
			ID:            "volatility_volume_high",
			Type:          anomaly.TypeVolatility,
			Severity:      check.Severity,
			Column:        RecordCountColumn,
			DetectedAt:    a.now(),
			Description:   fmt.Sprintf("Record count (%d) above expected maximum (%d)", count, check.ExpectedMax),
			Value:         table.NewNumericValue(float64(count)),
			ExpectedRange: expected,
			Metadata:      anomaly.Metadata{"excess_records": anomaly.Number(float64(count - check.ExpectedMax))},
		}}
	}
	return nil
}

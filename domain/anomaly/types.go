package anomaly

import (
	"time"

	"dqengine/domain/table"
)

// Type classifies what kind of problem an anomaly describes
type Type string

const (
	TypeValidation Type = "validation" // Tier 1: schema/business rule violation
	TypeOutlier    Type = "outlier"    // Tier 2: statistical outlier
	TypeVolatility Type = "volatility" // Tier 3: sudden change/trend deviation
	TypeMissing    Type = "missing"    // expected data absent
	TypeDrift      Type = "drift"      // distribution drift
)

// AllTypes lists every anomaly type in declaration order
var AllTypes = []Type{TypeValidation, TypeOutlier, TypeVolatility, TypeMissing, TypeDrift}

// Severity of a detected anomaly
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AllSeverities lists every severity from least to most severe
var AllSeverities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// IsValid reports whether s is one of the declared severities
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Weight is the health-score penalty for one anomaly of this severity
func (s Severity) Weight() float64 {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 5
	case SeverityHigh:
		return 15
	case SeverityCritical:
		return 50
	}
	return 0
}

// Range is a closed numeric interval [Low, High]
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether x lies inside the interval
func (r Range) Contains(x float64) bool {
	return x >= r.Low && x <= r.High
}

// Anomaly represents a single detected anomaly. Detectors build it once and
// never modify it afterwards.
type Anomaly struct {
	ID              string        `json:"anomaly_id"`
	Type            Type          `json:"anomaly_type"`
	Severity        Severity      `json:"severity"`
	Column          string        `json:"column"`
	DetectedAt      time.Time     `json:"detected_at"`
	Description     string        `json:"description"`
	Value           table.Value   `json:"value"`
	ExpectedRange   *Range        `json:"expected_range,omitempty"`
	DeviationScore  float64       `json:"deviation_score"`
	AffectedRecords int           `json:"affected_records"`
	SampleRecords   []table.Value `json:"sample_records,omitempty"`
	Metadata        Metadata      `json:"metadata,omitempty"`
}

// Report is the outcome of one Detect call
type Report struct {
	TableName           string           `json:"table_name"`
	DetectionTimestamp  time.Time        `json:"detection_timestamp"`
	TotalRecords        int              `json:"total_records"`
	TotalAnomalies      int              `json:"total_anomalies"`
	AnomaliesByType     map[Type]int     `json:"anomalies_by_type"`
	AnomaliesBySeverity map[Severity]int `json:"anomalies_by_severity"`
	Anomalies           []Anomaly        `json:"anomalies"`
	HealthScore         float64          `json:"health_score"` // 0-100
}

// NewReport counts anomalies by type and severity and computes the health score.
// Every declared type and severity is present in the count maps, zero or not.
func NewReport(tableName string, totalRecords int, anomalies []Anomaly, at time.Time) *Report {
	byType := make(map[Type]int, len(AllTypes))
	for _, t := range AllTypes {
		byType[t] = 0
	}
	bySeverity := make(map[Severity]int, len(AllSeverities))
	for _, s := range AllSeverities {
		bySeverity[s] = 0
	}

	for _, a := range anomalies {
		byType[a.Type]++
		bySeverity[a.Severity]++
	}

	if anomalies == nil {
		anomalies = []Anomaly{}
	}

	return &Report{
		TableName:           tableName,
		DetectionTimestamp:  at,
		TotalRecords:        totalRecords,
		TotalAnomalies:      len(anomalies),
		AnomaliesByType:     byType,
		AnomaliesBySeverity: bySeverity,
		Anomalies:           anomalies,
		HealthScore:         HealthScore(bySeverity),
	}
}

// HealthScore is 100 minus the severity-weighted anomaly count, floored at 0
func HealthScore(bySeverity map[Severity]int) float64 {
	penalty := 0.0
	for _, s := range AllSeverities {
		penalty += float64(bySeverity[s]) * s.Weight()
	}
	score := 100 - penalty
	if score < 0 {
		score = 0
	}
	return score
}

// HasCritical reports whether any critical anomaly was found
func (r *Report) HasCritical() bool {
	return r.AnomaliesBySeverity[SeverityCritical] > 0
}

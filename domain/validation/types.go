package validation

import (
	"strings"
	"time"

	"dqengine/domain/table"
)

// Severity level for validation rules
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// IsValid reports whether s is one of the declared severities
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// Weight is the rule's share of the quality score
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 10
	case SeverityError:
		return 5
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// RuleType is the closed set of rule kinds the engine can evaluate
type RuleType string

const (
	RuleNotNull       RuleType = "not_null"
	RuleUnique        RuleType = "unique"
	RuleRange         RuleType = "range"
	RulePattern       RuleType = "pattern"
	RuleAllowedValues RuleType = "allowed_values"
	RuleReferential   RuleType = "referential"
	RuleCompleteness  RuleType = "completeness"
	RuleCustom        RuleType = "custom"
	RuleFreshness     RuleType = "freshness"
)

// CustomCheck returns a row mask where true marks a valid row
type CustomCheck func(ds table.Dataset) (table.Mask, error)

// Params carries the rule-type-specific parameters. Only the fields relevant
// to a rule's type are read.
type Params struct {
	Min       *float64      `json:"min,omitempty"`       // range
	Max       *float64      `json:"max,omitempty"`       // range
	Pattern   string        `json:"pattern,omitempty"`   // pattern
	Values    []table.Value `json:"values,omitempty"`    // allowed_values
	Reference string        `json:"reference,omitempty"` // referential
	Threshold *float64      `json:"threshold,omitempty"` // completeness, fraction in [0,1]
	MaxAge    time.Duration `json:"max_age,omitempty"`   // freshness
}

// Rule is the definition of a validation rule
type Rule struct {
	Name        string      `json:"name"`
	Type        RuleType    `json:"rule_type"`
	Column      string      `json:"column,omitempty"`
	Columns     []string    `json:"columns,omitempty"`
	Severity    Severity    `json:"severity"`
	Params      Params      `json:"params"`
	Description string      `json:"description,omitempty"`
	Check       CustomCheck `json:"-"`
}

// TargetColumns returns Columns when set, otherwise the single Column
func (r Rule) TargetColumns() []string {
	if len(r.Columns) > 0 {
		return r.Columns
	}
	if r.Column != "" {
		return []string{r.Column}
	}
	return nil
}

// DisplayColumn joins the rule's columns for reports
func (r Rule) DisplayColumn() string {
	return strings.Join(r.TargetColumns(), ", ")
}

// Result of a single validation rule execution
type Result struct {
	RuleName          string        `json:"rule_name"`
	RuleType          RuleType      `json:"rule_type"`
	Column            string        `json:"column,omitempty"`
	Severity          Severity      `json:"severity"`
	Passed            bool          `json:"passed"`
	TotalRecords      int           `json:"total_records"`
	ValidRecords      int           `json:"valid_records"`
	InvalidRecords    int           `json:"invalid_records"`
	InvalidPercentage float64       `json:"invalid_percentage"`
	Message           string        `json:"message"`
	SampleInvalid     []table.Value `json:"sample_invalid,omitempty"`
	ExecutionTime     time.Duration `json:"execution_time"`
}

// NewResult fills the record counts from total and invalid so that
// valid+invalid == total and passed <=> invalid == 0 always hold.
func NewResult(rule Rule, total, invalid int, message string) Result {
	if invalid < 0 {
		invalid = 0
	}
	if invalid > total {
		invalid = total
	}
	pct := 0.0
	if total > 0 {
		pct = float64(invalid) / float64(total) * 100
	}
	return Result{
		RuleName:          rule.Name,
		RuleType:          rule.Type,
		Column:            rule.DisplayColumn(),
		Severity:          rule.Severity,
		Passed:            invalid == 0,
		TotalRecords:      total,
		ValidRecords:      total - invalid,
		InvalidRecords:    invalid,
		InvalidPercentage: pct,
		Message:           message,
	}
}

// FailedResult marks every record invalid; used when a rule could not be evaluated
func FailedResult(rule Rule, total int, message string) Result {
	return Result{
		RuleName:          rule.Name,
		RuleType:          rule.Type,
		Column:            rule.DisplayColumn(),
		Severity:          rule.Severity,
		Passed:            false,
		TotalRecords:      total,
		ValidRecords:      0,
		InvalidRecords:    total,
		InvalidPercentage: 100,
		Message:           message,
	}
}

// ValidFraction is the share of valid records; an empty dataset counts as fully valid
func (r Result) ValidFraction() float64 {
	if r.TotalRecords == 0 {
		if r.Passed {
			return 1
		}
		return 0
	}
	return float64(r.ValidRecords) / float64(r.TotalRecords)
}

// Report is the outcome of one Validate call
type Report struct {
	TableName           string    `json:"table_name"`
	ValidationTimestamp time.Time `json:"validation_timestamp"`
	TotalRules          int       `json:"total_rules"`
	PassedRules         int       `json:"passed_rules"`
	FailedRules         int       `json:"failed_rules"`
	TotalRecords        int       `json:"total_records"`
	QualityScore        float64   `json:"overall_quality_score"` // 0-1
	Results             []Result  `json:"results"`
	CriticalFailures    int       `json:"critical_failures"`
	ErrorFailures       int       `json:"error_failures"`
	WarningFailures     int       `json:"warning_failures"`
}

// NewReport summarises results in the order given
func NewReport(tableName string, totalRecords int, results []Result, at time.Time) *Report {
	if results == nil {
		results = []Result{}
	}
	report := &Report{
		TableName:           tableName,
		ValidationTimestamp: at,
		TotalRules:          len(results),
		TotalRecords:        totalRecords,
		Results:             results,
		QualityScore:        QualityScore(results),
	}

	for _, r := range results {
		if r.Passed {
			report.PassedRules++
			continue
		}
		report.FailedRules++
		switch r.Severity {
		case SeverityCritical:
			report.CriticalFailures++
		case SeverityError:
			report.ErrorFailures++
		case SeverityWarning:
			report.WarningFailures++
		}
	}

	return report
}

// QualityScore is the severity-weighted mean of each rule's valid fraction.
// No rules means nothing failed, so the score is 1.
func QualityScore(results []Result) float64 {
	totalWeight := 0.0
	weighted := 0.0
	for _, r := range results {
		w := r.Severity.Weight()
		totalWeight += w
		weighted += w * r.ValidFraction()
	}
	if totalWeight == 0 {
		return 1.0
	}

	score := weighted / totalWeight
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Failed returns the results that did not pass, in report order
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

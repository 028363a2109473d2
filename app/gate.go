package app

import (
	"fmt"

	"dqengine/domain/anomaly"
	"dqengine/internal/config"
	"dqengine/internal/errors"
)

// GatePolicy decides when a check result blocks a pipeline
type GatePolicy struct {
	FailOnCritical  bool    `json:"fail_on_critical"`
	MinHealthScore  float64 `json:"min_health_score"`  // 0-100, 0 disables
	MinQualityScore float64 `json:"min_quality_score"` // 0-1, 0 disables
}

// PolicyFromConfig maps the gate config section
func PolicyFromConfig(cfg config.GateConfig) GatePolicy {
	return GatePolicy{
		FailOnCritical:  cfg.FailOnCritical,
		MinHealthScore:  cfg.MinHealthScore,
		MinQualityScore: cfg.MinQualityScore,
	}
}

// Violations lists every way result breaches the policy, in a fixed order
func (p GatePolicy) Violations(result *CheckResult) []string {
	var out []string

	if p.FailOnCritical {
		if result.Anomalies != nil && result.Anomalies.HasCritical() {
			out = append(out, fmt.Sprintf("%d critical anomalies", result.Anomalies.AnomaliesBySeverity[anomaly.SeverityCritical]))
		}
		if result.Validation != nil && result.Validation.CriticalFailures > 0 {
			out = append(out, fmt.Sprintf("%d critical rule failures", result.Validation.CriticalFailures))
		}
	}
	if p.MinHealthScore > 0 && result.HealthScore < p.MinHealthScore {
		out = append(out, fmt.Sprintf("health score %.0f below minimum %.0f", result.HealthScore, p.MinHealthScore))
	}
	if p.MinQualityScore > 0 && result.QualityScore < p.MinQualityScore {
		out = append(out, fmt.Sprintf("quality score %.2f%% below minimum %.2f%%", result.QualityScore*100, p.MinQualityScore*100))
	}

	return out
}

// Gate returns a *errors.DataQualityError when result breaches policy, nil otherwise
func Gate(result *CheckResult, policy GatePolicy) error {
	violations := policy.Violations(result)
	if len(violations) == 0 {
		return nil
	}
	return &errors.DataQualityError{Table: result.Table, Violations: violations}
}

package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewResultInvariants(t *testing.T) {
	rule := Rule{Name: "qty_range", Type: RuleRange, Column: "quantity", Severity: SeverityError}

	tests := []struct {
		name        string
		total       int
		invalid     int
		wantInvalid int
		wantPassed  bool
	}{
		{"clean", 10, 0, 0, true},
		{"some invalid", 10, 3, 3, false},
		{"clamped above total", 10, 12, 10, false},
		{"clamped below zero", 10, -1, 0, true},
		{"empty dataset", 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResult(rule, tt.total, tt.invalid, "msg")
			assert.Equal(t, tt.wantInvalid, r.InvalidRecords)
			assert.Equal(t, tt.total, r.ValidRecords+r.InvalidRecords)
			assert.Equal(t, tt.wantPassed, r.Passed)
			assert.Equal(t, r.Passed, r.InvalidRecords == 0)
		})
	}
}

func TestFailedResult(t *testing.T) {
	rule := Rule{Name: "broken", Type: RuleCustom, Severity: SeverityCritical}
	r := FailedResult(rule, 5, "Rule execution error: boom")

	assert.False(t, r.Passed)
	assert.Equal(t, 5, r.InvalidRecords)
	assert.Equal(t, 0, r.ValidRecords)
	assert.Equal(t, 100.0, r.InvalidPercentage)
}

func TestQualityScore(t *testing.T) {
	t.Run("no rules is perfect", func(t *testing.T) {
		assert.Equal(t, 1.0, QualityScore(nil))
	})

	t.Run("severity weighted", func(t *testing.T) {
		critical := Rule{Name: "c", Severity: SeverityCritical}
		info := Rule{Name: "i", Severity: SeverityInfo}
		results := []Result{
			NewResult(critical, 10, 0, ""), // 1.0 * 10
			NewResult(info, 10, 10, ""),    // 0.0 * 1
		}
		assert.InDelta(t, 10.0/11.0, QualityScore(results), 1e-9)
	})

	t.Run("bounded", func(t *testing.T) {
		r := NewResult(Rule{Name: "w", Severity: SeverityWarning}, 4, 4, "")
		score := QualityScore([]Result{r})
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	})
}

func TestNewReportCounts(t *testing.T) {
	results := []Result{
		NewResult(Rule{Name: "a", Severity: SeverityCritical}, 2, 1, ""),
		NewResult(Rule{Name: "b", Severity: SeverityError}, 2, 2, ""),
		NewResult(Rule{Name: "c", Severity: SeverityWarning}, 2, 1, ""),
		NewResult(Rule{Name: "d", Severity: SeverityInfo}, 2, 1, ""),
		NewResult(Rule{Name: "e", Severity: SeverityInfo}, 2, 0, ""),
	}

	report := NewReport("orders", 2, results, time.Now())

	assert.Equal(t, 5, report.TotalRules)
	assert.Equal(t, 1, report.PassedRules)
	assert.Equal(t, 4, report.FailedRules)
	assert.Equal(t, 1, report.CriticalFailures)
	assert.Equal(t, 1, report.ErrorFailures)
	assert.Equal(t, 1, report.WarningFailures)
	assert.Len(t, report.Failed(), 4)
}

func TestRuleDisplayColumn(t *testing.T) {
	assert.Equal(t, "sku, location", Rule{Columns: []string{"sku", "location"}}.DisplayColumn())
	assert.Equal(t, "sku", Rule{Column: "sku"}.DisplayColumn())
	assert.Equal(t, "", Rule{}.DisplayColumn())
}

package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqengine/domain/anomaly"
	"dqengine/domain/table"
	"dqengine/domain/validation"
)

var at = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func sampleDocument() Document {
	anomalies := anomaly.NewReport("orders", 6, []anomaly.Anomaly{{
		ID:              "validation_amount_negative",
		Type:            anomaly.TypeValidation,
		Severity:        anomaly.SeverityHigh,
		Column:          "amount",
		Description:     "Column 'amount' has 1 negative values",
		AffectedRecords: 1,
	}}, at)

	results := []validation.Result{
		validation.NewResult(validation.Rule{Name: "id_unique", Type: validation.RuleUnique, Columns: []string{"order_id"}, Severity: validation.SeverityCritical}, 6, 1, "1 duplicate records found"),
		validation.NewResult(validation.Rule{Name: "status|known", Type: validation.RuleAllowedValues, Column: "status", Severity: validation.SeverityWarning}, 6, 0, "All values allowed"),
	}

	return Document{
		RunID:       "run-1",
		Suite:       "orders_daily",
		SuiteHash:   "3f2a9c01b7de",
		Table:       "orders",
		GeneratedAt: at,
		Anomalies:   anomalies,
		Validation:  validation.NewReport("orders", 6, results, at),
		Violations:  []string{"1 critical rule failures"},
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatJSON, "JSON": FormatJSON, "md": FormatMarkdown, "html": FormatHTML}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleDocument())

	assert.Contains(t, md, "# Data quality report: orders")
	assert.Contains(t, md, "- Suite: orders_daily (`3f2a9c01b7de`)")
	assert.Contains(t, md, "Health score: **85/100** (1 anomalies in 6 records)")
	assert.Contains(t, md, "| high | validation | amount | Column 'amount' has 1 negative values | 1 |")
	assert.Contains(t, md, "| id_unique | unique | order_id | critical | FAIL | 1 (16.67%) | 1 duplicate records found |")
	assert.Contains(t, md, `status\|known`)
	assert.Contains(t, md, "## Gate")

	// critical rows come before low in the severity table
	assert.Less(t, strings.Index(md, "| critical | 0 |"), strings.Index(md, "| low | 0 |"))
}

func TestMarkdownInvalidSamplesAndRejectedCells(t *testing.T) {
	rangeRule := validation.Rule{Name: "amount_range", Type: validation.RuleRange, Column: "amount"}
	failed := validation.NewResult(rangeRule, 4, 2, "2 values outside range [0, ∞]")
	failed.SampleInvalid = table.Values(-5, -1.5)
	passed := validation.NewResult(validation.Rule{Name: "id_not_null", Type: validation.RuleNotNull, Column: "order_id"}, 4, 0, "No null values")

	doc := Document{
		Table:      "orders",
		Validation: validation.NewReport("orders", 4, []validation.Result{failed, passed}, at),
		Rejected:   map[string]int{"quantity": 1, "amount": 3},
	}
	md := Markdown(doc)

	assert.Contains(t, md, "### Invalid samples")
	assert.Contains(t, md, "- amount_range: `-5`, `-1.5`")
	assert.NotContains(t, md, "- id_not_null:")

	assert.Contains(t, md, "## Ingest")
	assert.Less(t, strings.Index(md, "| amount | 3 |"), strings.Index(md, "| quantity | 1 |"))

	md = Markdown(sampleDocument())
	assert.NotContains(t, md, "## Ingest")
	assert.NotContains(t, md, "### Invalid samples")
}

func TestMarkdownEmptyReports(t *testing.T) {
	md := Markdown(Document{
		Table:      "t",
		Anomalies:  anomaly.NewReport("t", 0, nil, at),
		Validation: validation.NewReport("t", 0, nil, at),
	})
	assert.Contains(t, md, "No anomalies detected.")
	assert.Contains(t, md, "No rules configured.")
	assert.Contains(t, md, "Quality score: **100.00%**")
	assert.NotContains(t, md, "## Gate")
}

func TestHTML(t *testing.T) {
	page := string(HTML(sampleDocument()))
	assert.Contains(t, page, "<title>Data quality report: orders</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "id_unique")
}

func TestRenderJSON(t *testing.T) {
	data, err := Render(sampleDocument(), FormatJSON)
	require.NoError(t, err)

	var back map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "run-1", back["run_id"])
	assert.Contains(t, back, "validation")
}

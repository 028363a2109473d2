package suite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqengine/adapters/frame"
	"dqengine/domain/anomaly"
	"dqengine/domain/validation"
	"dqengine/internal"
	"dqengine/internal/detection"
	"dqengine/internal/errors"
)

const ordersSuite = `
name: orders_daily
table: orders
tier1:
  required: [order_id, amount]
  non_negative: [amount]
tier2:
  - column: amount
    method: iqr
  - column: amount
    method: zscore
    threshold: 2.5
    severity: high
tier3:
  - type: volume
    expected_min: 2
    expected_max: 100
  - type: spike
    column: amount
    threshold_pct: 150
references:
  statuses: [open, closed]
rules:
  - name: order_id_unique
    type: unique
    columns: [order_id]
    severity: critical
  - name: status_known
    type: referential
    column: status
    reference: statuses
  - name: created_recent
    type: freshness
    column: created
    max_age: 72h
    severity: warning
`

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	s, err := Parse([]byte(ordersSuite))
	require.NoError(t, err)

	assert.Equal(t, "orders_daily", s.Name)
	assert.Equal(t, "orders", s.Table)
	assert.Equal(t, []string{"order_id", "amount"}, s.Tier1.Required)
	require.Len(t, s.Tier2, 2)
	assert.Equal(t, 2.5, *s.Tier2[1].Threshold)
	require.Len(t, s.Rules, 3)
	assert.Equal(t, "72h", s.Rules[2].MaxAge)
}

func TestFingerprint(t *testing.T) {
	a, err := Parse([]byte(ordersSuite))
	require.NoError(t, err)
	b, err := Parse([]byte(ordersSuite))
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint().String(), 64)

	b.Tier1.Required = append(b.Tier1.Required, "status")
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestParseDefaultsNameToTable(t *testing.T) {
	s, err := Parse([]byte("table: orders\n"))
	require.NoError(t, err)
	assert.Equal(t, "orders", s.Name)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing table", "name: x\n"},
		{"unknown key", "table: t\ntier4: []\n"},
		{"bad yaml", "table: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
		})
	}
}

func TestCompile(t *testing.T) {
	s, err := Parse([]byte(ordersSuite))
	require.NoError(t, err)

	compiled, err := Compile(s, CompileOptions{Logger: internal.NewNopLogger(), Clock: func() time.Time { return fixedNow }})
	require.NoError(t, err)

	check, ok := compiled.Detector.Tier2.Check("amount")
	require.True(t, ok)
	assert.Equal(t, detection.MethodZScore, check.Method)
	assert.Equal(t, anomaly.SeverityHigh, check.Severity)

	checks := compiled.Detector.Tier3.Checks()
	require.Len(t, checks, 2)
	assert.Equal(t, anomaly.SeverityMedium, checks[0].Severity)
	assert.Equal(t, anomaly.SeverityHigh, checks[1].Severity)

	assert.Len(t, compiled.Engine.Rules(), 3)
	assert.True(t, compiled.Engine.HasReference("statuses"))
	assert.Equal(t, validation.SeverityError, compiled.Engine.Rules()[1].Severity)
	assert.Equal(t, 72*time.Hour, compiled.Engine.Rules()[2].Params.MaxAge)

	ds := frame.MustNew(
		frame.Col("order_id", "A1", "A2", "A2"),
		frame.Col("amount", 10, 20, 30),
		frame.Col("status", "open", "closed", "lost"),
		frame.Col("created", fixedNow, fixedNow.Add(-time.Hour), fixedNow.Add(-100*time.Hour)),
	)

	report, err := compiled.Engine.Validate(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, 3, report.FailedRules)

	anomalies := compiled.Detector.Detect(ds, nil)
	assert.Equal(t, 0, anomalies.TotalAnomalies)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code string
	}{
		{"custom rule", "table: t\nrules:\n  - {name: r, type: custom}\n", errors.CodeRuleInvalid},
		{"bad max age", "table: t\nrules:\n  - {name: r, type: freshness, column: c, max_age: soon}\n", errors.CodeRuleInvalid},
		{"unknown method", "table: t\ntier2:\n  - {column: c, method: dbscan}\n", errors.CodeConfigInvalid},
		{"unknown severity", "table: t\ntier2:\n  - {column: c, method: iqr, severity: urgent}\n", errors.CodeConfigInvalid},
		{"unknown volatility", "table: t\ntier3:\n  - {type: trend, column: c}\n", errors.CodeConfigInvalid},
		{"bad volume bounds", "table: t\ntier3:\n  - {type: volume, expected_min: 10, expected_max: 1}\n", errors.CodeRuleInvalid},
		{"missing rule column", "table: t\nrules:\n  - {name: r, type: not_null}\n", errors.CodeRuleInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.doc))
			require.NoError(t, err)

			_, err = Compile(s, CompileOptions{})
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.yaml"), []byte(ordersSuite), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.yml"), []byte("table: users\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# suites\n"), 0o644))

	suites, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders_daily", "users"}, Names(suites))
}

func TestLoadDirMissing(t *testing.T) {
	suites, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, suites)
}

func TestLoadDirDuplicateName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("table: orders\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("table: orders\n"), 0o644))

	_, err := LoadDir(dir)
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

package internal

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelError, ParseLogLevel("ERROR"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, LogLevelDebug, ParseLogLevel(" DEBUG "))
	assert.Equal(t, LogLevelTrace, ParseLogLevel("TRACE"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestNamedLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LogLevelInfo, &buf).Named("anomaly.tier1.orders")

	logger.Info("found %d anomalies", 3)
	logger.Debug("suppressed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "anomaly.tier1.orders", entry["component"])
	assert.Equal(t, "found 3 anomalies", entry["message"])
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Named("x").Error("nothing %s", "here")
	})
}

type recordingLogger struct{ lines []string }

func (r *recordingLogger) Debug(format string, args ...interface{}) {
	r.lines = append(r.lines, format)
}
func (r *recordingLogger) Info(format string, args ...interface{}) { r.lines = append(r.lines, format) }
func (r *recordingLogger) Warn(format string, args ...interface{}) { r.lines = append(r.lines, format) }
func (r *recordingLogger) Error(format string, args ...interface{}) {
	r.lines = append(r.lines, format)
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	named := Component(NewLoggerWithWriter(LogLevelInfo, &buf), "validation.orders")
	named.Info("ok")
	assert.Contains(t, buf.String(), `"component":"validation.orders"`)

	other := &recordingLogger{}
	assert.Same(t, other, Component(other, "ignored"))
	assert.NotNil(t, Component(nil, "x"))
}

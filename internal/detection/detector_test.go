package detection

import (
	"encoding/json"
	"math"
	"testing"

	"dqengine/adapters/frame"
	"dqengine/domain/anomaly"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectorRunsTiersInOrder(t *testing.T) {
	d := NewDetector("inventory", WithClock(fixedClock))
	require.NoError(t, d.Tier3.AddVolumeCheck(10, 20, anomaly.SeverityMedium))
	require.NoError(t, d.Tier2.AddIQRCheck("qty", DefaultIQRMultiplier, anomaly.SeverityMedium))
	require.NoError(t, d.Tier1.RequireColumns("sku"))

	ds := frame.MustNew(frame.Col("qty", 1, 2, 3, 4, 5, 100))
	report := d.Detect(ds, nil)

	require.Equal(t, 3, report.TotalAnomalies)
	assert.Equal(t, "validation_sku_missing", report.Anomalies[0].ID)
	assert.Equal(t, "outlier_iqr_qty", report.Anomalies[1].ID)
	assert.Equal(t, "volatility_volume_low", report.Anomalies[2].ID)

	assert.Equal(t, "inventory", report.TableName)
	assert.Equal(t, 6, report.TotalRecords)
	assert.Equal(t, fixedNow, report.DetectionTimestamp)
	assert.Equal(t, 1, report.AnomaliesByType[anomaly.TypeValidation])
	assert.Equal(t, 1, report.AnomaliesByType[anomaly.TypeMissing])
	assert.Equal(t, 1, report.AnomaliesBySeverity[anomaly.SeverityCritical])
	assert.Equal(t, 2, report.AnomaliesBySeverity[anomaly.SeverityMedium])
	assert.Equal(t, 40.0, report.HealthScore)
	assert.True(t, report.HasCritical())
}

func TestDetectorCleanDataset(t *testing.T) {
	d := NewDetector("inventory")
	require.NoError(t, d.Tier1.RequireColumns("sku"))

	report := d.Detect(frame.MustNew(frame.Col("sku", "A", "B")), nil)
	assert.Equal(t, 0, report.TotalAnomalies)
	assert.Equal(t, 100.0, report.HealthScore)
	assert.NotNil(t, report.Anomalies)

	sum := 0
	for _, n := range report.AnomaliesBySeverity {
		sum += n
	}
	assert.Equal(t, report.TotalAnomalies, sum)
}

func TestInfiniteCellsAreMissing(t *testing.T) {
	ds := frame.MustNew(frame.Col("value", 1, 2, 3, 4, 5, math.Inf(1)))

	nulls, err := ds.NullCount("value")
	require.NoError(t, err)
	assert.Equal(t, 1, nulls)

	report, err := QuickAnomalyCheck(ds, nil, "", nil, []string{"value"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalAnomalies)

	_, err = json.Marshal(report)
	assert.NoError(t, err)
}

func TestQuickAnomalyCheck(t *testing.T) {
	ds := frame.MustNew(
		frame.Col("id", "a", "b", nil, "d", "e", "f"),
		frame.Col("value", 1, 2, 3, 4, 5, 100),
	)

	report, err := QuickAnomalyCheck(ds, nil, "", []string{"id"}, []string{"value", "missing"})
	require.NoError(t, err)

	assert.Equal(t, "data", report.TableName)
	require.Equal(t, 2, report.TotalAnomalies)
	assert.Equal(t, "validation_id_nulls", report.Anomalies[0].ID)
	assert.Equal(t, "outlier_iqr_value", report.Anomalies[1].ID)
}

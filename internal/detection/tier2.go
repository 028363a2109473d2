package detection

import (
	stderrors "errors"
	"fmt"
	"math"
	"time"

	"dqengine/domain/anomaly"
	"dqengine/domain/core"
	"dqengine/domain/table"
	"dqengine/internal"
	"dqengine/internal/errors"
	"dqengine/ports"
)

// Method is a tier 2 outlier detection method
type Method string

const (
	MethodIQR        Method = "iqr"
	MethodZScore     Method = "zscore"
	MethodMAD        Method = "mad"
	MethodPercentile Method = "percentile"
)

// Defaults for outlier methods
const (
	DefaultIQRMultiplier   = 1.5
	DefaultZScoreThreshold = 3.0
	DefaultMADThreshold    = 3.5
	DefaultLowerPercentile = 0.01
	DefaultUpperPercentile = 0.99

	// madScale is the 0.75 quantile of the standard normal distribution
	madScale          = 0.6745
	outlierSampleSize = 10
)

// OutlierCheck is the configuration registered for one column
type OutlierCheck struct {
	Method     Method
	Multiplier float64
	Threshold  float64
	Lower      float64
	Upper      float64
	Severity   anomaly.Severity
}

// OutlierDetector is tier 2: one statistical outlier method per column
type OutlierDetector struct {
	table  string
	logger ports.Logger
	now    func() time.Time
	order  []string
	checks map[string]OutlierCheck
}

// NewOutlierDetector creates a tier 2 detector for a table
func NewOutlierDetector(tableName string, opts ...Option) *OutlierDetector {
	return newOutlierDetector(tableName, newSettings(opts))
}

func newOutlierDetector(tableName string, s settings) *OutlierDetector {
	return &OutlierDetector{
		table:  tableName,
		logger: internal.Component(s.logger, "anomaly.tier2."+tableName),
		now:    s.now,
		checks: make(map[string]OutlierCheck),
	}
}

// AddIQRCheck flags values outside [Q1 - k*IQR, Q3 + k*IQR]
func (d *OutlierDetector) AddIQRCheck(column string, multiplier float64, severity anomaly.Severity) error {
	if multiplier <= 0 {
		return errors.RuleInvalid(column, "IQR multiplier must be positive")
	}
	return d.register(column, OutlierCheck{Method: MethodIQR, Multiplier: multiplier, Severity: severity})
}

// AddZScoreCheck flags values with |z| above threshold
func (d *OutlierDetector) AddZScoreCheck(column string, threshold float64, severity anomaly.Severity) error {
	if threshold <= 0 {
		return errors.RuleInvalid(column, "z-score threshold must be positive")
	}
	return d.register(column, OutlierCheck{Method: MethodZScore, Threshold: threshold, Severity: severity})
}

// AddMADCheck flags values whose modified z-score exceeds threshold
func (d *OutlierDetector) AddMADCheck(column string, threshold float64, severity anomaly.Severity) error {
	if threshold <= 0 {
		return errors.RuleInvalid(column, "MAD threshold must be positive")
	}
	return d.register(column, OutlierCheck{Method: MethodMAD, Threshold: threshold, Severity: severity})
}

// AddPercentileCheck flags values outside the [lower, upper] quantiles
func (d *OutlierDetector) AddPercentileCheck(column string, lower, upper float64, severity anomaly.Severity) error {
	if lower < 0 || upper > 1 || lower >= upper {
		return errors.RuleInvalid(column, fmt.Sprintf("percentile bounds [%v, %v] must satisfy 0 <= lower < upper <= 1", lower, upper))
	}
	return d.register(column, OutlierCheck{Method: MethodPercentile, Lower: lower, Upper: upper, Severity: severity})
}

// register stores the check; a later registration for the same column wins
func (d *OutlierDetector) register(column string, check OutlierCheck) error {
	if column == "" {
		return errors.RuleInvalid(string(check.Method), "column is required")
	}
	if !check.Severity.IsValid() {
		return errors.RuleInvalid(column, fmt.Sprintf("unknown severity %q", check.Severity))
	}
	if _, exists := d.checks[column]; !exists {
		d.order = append(d.order, column)
	}
	d.checks[column] = check
	return nil
}

// Check returns the configuration registered for a column
func (d *OutlierDetector) Check(column string) (OutlierCheck, bool) {
	c, ok := d.checks[column]
	return c, ok
}

// Detect evaluates every registered column present in ds
func (d *OutlierDetector) Detect(ds table.Dataset) []anomaly.Anomaly {
	var out []anomaly.Anomaly
	for _, column := range d.order {
		if !ds.HasColumn(column) {
			continue
		}
		check := d.checks[column]
		name := fmt.Sprintf("%s check on %s", check.Method, column)

		found, err := guard(name, func() ([]anomaly.Anomaly, error) {
			found, err := d.detectColumn(ds, column, check)
			if stderrors.Is(err, core.ErrEmptyColumn) {
				return nil, nil
			}
			return found, err
		})
		if err != nil {
			d.logger.Error("Outlier %s failed: %v", name, err)
			continue
		}
		out = append(out, found...)
	}
	return out
}

func (d *OutlierDetector) detectColumn(ds table.Dataset, column string, check OutlierCheck) ([]anomaly.Anomaly, error) {
	switch check.Method {
	case MethodIQR:
		return d.detectIQR(ds, column, check)
	case MethodZScore:
		return d.detectZScore(ds, column, check)
	case MethodMAD:
		return d.detectMAD(ds, column, check)
	case MethodPercentile:
		return d.detectPercentile(ds, column, check)
	}
	return nil, fmt.Errorf("unknown outlier method %q", check.Method)
}

func (d *OutlierDetector) detectIQR(ds table.Dataset, column string, check OutlierCheck) ([]anomaly.Anomaly, error) {
	q1, err := ds.Quantile(column, 0.25)
	if err != nil {
		return nil, err
	}
	q3, err := ds.Quantile(column, 0.75)
	if err != nil {
		return nil, err
	}
	iqr := q3 - q1
	lower := q1 - check.Multiplier*iqr
	upper := q3 + check.Multiplier*iqr

	outliers, samples, err := outside(ds, column, anomaly.Range{Low: lower, High: upper})
	if err != nil || outliers == 0 {
		return nil, err
	}

	return []anomaly.Anomaly{{
		ID:              fmt.Sprintf("outlier_iqr_%s", column),
		Type:            anomaly.TypeOutlier,
		Severity:        check.Severity,
		Column:          column,
		DetectedAt:      d.now(),
		Description:     fmt.Sprintf("IQR outliers in '%s': %d values outside [%.2f, %.2f]", column, outliers, lower, upper),
		Value:           firstOrMissing(samples),
		ExpectedRange:   &anomaly.Range{Low: lower, High: upper},
		AffectedRecords: outliers,
		SampleRecords:   samples,
		Metadata: anomaly.Metadata{
			"method":          anomaly.Text(string(MethodIQR)),
			"q1":              anomaly.Number(q1),
			"q3":              anomaly.Number(q3),
			"iqr":             anomaly.Number(iqr),
			"multiplier":      anomaly.Number(check.Multiplier),
			"sample_outliers": anomaly.Samples(samples),
		},
	}}, nil
}

func (d *OutlierDetector) detectZScore(ds table.Dataset, column string, check OutlierCheck) ([]anomaly.Anomaly, error) {
	mean, err := ds.Mean(column)
	if err != nil {
		return nil, err
	}
	std, err := ds.StdDev(column)
	if err != nil {
		return nil, err
	}
	if std == 0 || math.IsNaN(std) {
		return nil, nil
	}

	maxZ := 0.0
	mask, err := ds.Filter(column, func(c table.Value) bool {
		z := math.Abs((c.AsFloat64() - mean) / std)
		if z > check.Threshold {
			maxZ = math.Max(maxZ, z)
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	outliers := mask.Count()
	if outliers == 0 {
		return nil, nil
	}
	samples, err := ds.Sample(column, mask, outlierSampleSize)
	if err != nil {
		return nil, err
	}

	return []anomaly.Anomaly{{
		ID:              fmt.Sprintf("outlier_zscore_%s", column),
		Type:            anomaly.TypeOutlier,
		Severity:        check.Severity,
		Column:          column,
		DetectedAt:      d.now(),
		Description:     fmt.Sprintf("Z-score outliers in '%s': %d values with |z| > %g", column, outliers, check.Threshold),
		Value:           table.NewMissingValue(),
		DeviationScore:  maxZ,
		AffectedRecords: outliers,
		SampleRecords:   samples,
		Metadata: anomaly.Metadata{
			"method":    anomaly.Text(string(MethodZScore)),
			"mean":      anomaly.Number(mean),
			"std":       anomaly.Number(std),
			"threshold": anomaly.Number(check.Threshold),
		},
	}}, nil
}

func (d *OutlierDetector) detectMAD(ds table.Dataset, column string, check OutlierCheck) ([]anomaly.Anomaly, error) {
	median, err := ds.Median(column)
	if err != nil {
		return nil, err
	}
	mad, err := ds.MAD(column)
	if err != nil {
		return nil, err
	}
	if mad == 0 || math.IsNaN(mad) {
		return nil, nil
	}

	maxZ := 0.0
	mask, err := ds.Filter(column, func(c table.Value) bool {
		z := math.Abs(madScale * (c.AsFloat64() - median) / mad)
		if z > check.Threshold {
			maxZ = math.Max(maxZ, z)
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	outliers := mask.Count()
	if outliers == 0 {
		return nil, nil
	}
	samples, err := ds.Sample(column, mask, outlierSampleSize)
	if err != nil {
		return nil, err
	}

	return []anomaly.Anomaly{{
		ID:              fmt.Sprintf("outlier_mad_%s", column),
		Type:            anomaly.TypeOutlier,
		Severity:        check.Severity,
		Column:          column,
		DetectedAt:      d.now(),
		Description:     fmt.Sprintf("MAD outliers in '%s': %d values with modified z > %g", column, outliers, check.Threshold),
		Value:           table.NewMissingValue(),
		DeviationScore:  maxZ,
		AffectedRecords: outliers,
		SampleRecords:   samples,
		Metadata: anomaly.Metadata{
			"method":    anomaly.Text(string(MethodMAD)),
			"median":    anomaly.Number(median),
			"mad":       anomaly.Number(mad),
			"threshold": anomaly.Number(check.Threshold),
		},
	}}, nil
}

func (d *OutlierDetector) detectPercentile(ds table.Dataset, column string, check OutlierCheck) ([]anomaly.Anomaly, error) {
	lower, err := ds.Quantile(column, check.Lower)
	if err != nil {
		return nil, err
	}
	upper, err := ds.Quantile(column, check.Upper)
	if err != nil {
		return nil, err
	}

	outliers, samples, err := outside(ds, column, anomaly.Range{Low: lower, High: upper})
	if err != nil || outliers == 0 {
		return nil, err
	}

	return []anomaly.Anomaly{{
		ID:              fmt.Sprintf("outlier_percentile_%s", column),
		Type:            anomaly.TypeOutlier,
		Severity:        check.Severity,
		Column:          column,
		DetectedAt:      d.now(),
		Description:     fmt.Sprintf("Percentile outliers in '%s': %d values outside [%.0f%%, %.0f%%]", column, outliers, check.Lower*100, check.Upper*100),
		Value:           table.NewMissingValue(),
		ExpectedRange:   &anomaly.Range{Low: lower, High: upper},
		AffectedRecords: outliers,
		SampleRecords:   samples,
		Metadata: anomaly.Metadata{
			"method":           anomaly.Text(string(MethodPercentile)),
			"lower_percentile": anomaly.Number(check.Lower),
			"upper_percentile": anomaly.Number(check.Upper),
			"bounds":           anomaly.Interval(lower, upper),
		},
	}}, nil
}

// outside counts and samples the cells falling outside [lower, upper]
func outside(ds table.Dataset, column string, bounds anomaly.Range) (int, []table.Value, error) {
	mask, err := ds.Filter(column, func(c table.Value) bool {
		return !bounds.Contains(c.AsFloat64())
	})
	if err != nil {
		return 0, nil, err
	}
	count := mask.Count()
	if count == 0 {
		return 0, nil, nil
	}
	samples, err := ds.Sample(column, mask, outlierSampleSize)
	if err != nil {
		return 0, nil, err
	}
	return count, samples, nil
}

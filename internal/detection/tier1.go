package detection

import (
	"fmt"
	"time"

	"dqengine/domain/anomaly"
	"dqengine/domain/core"
	"dqengine/domain/table"
	"dqengine/internal"
	"dqengine/internal/errors"
	"dqengine/ports"
)

// Condition evaluates a business rule, returning true for every valid row
type Condition func(ds table.Dataset) (table.Mask, error)

const (
	checkRequiredColumns = "required_columns"
	checkNonNegative     = "positive_values"
	checkNotFuture       = "non_future_dates"

	negativeSampleSize = 5
)

type schemaCheck struct {
	name string
	run  func(ds table.Dataset) ([]anomaly.Anomaly, error)
}

// Validator is tier 1: schema and business rule violations
type Validator struct {
	table  string
	logger ports.Logger
	now    func() time.Time
	checks []schemaCheck
}

// NewValidator creates a tier 1 validator for a table
func NewValidator(tableName string, opts ...Option) *Validator {
	s := newSettings(opts)
	return newValidator(tableName, s)
}

func newValidator(tableName string, s settings) *Validator {
	return &Validator{
		table:  tableName,
		logger: internal.Component(s.logger, "anomaly.tier1."+tableName),
		now:    s.now,
	}
}

// set registers a check under name; re-registering replaces it in place
func (v *Validator) set(name string, run func(ds table.Dataset) ([]anomaly.Anomaly, error)) {
	for i := range v.checks {
		if v.checks[i].name == name {
			v.checks[i].run = run
			return
		}
	}
	v.checks = append(v.checks, schemaCheck{name: name, run: run})
}

// RequireColumns flags absent columns and null cells in the given columns
func (v *Validator) RequireColumns(columns ...string) error {
	if len(columns) == 0 {
		return errors.RuleInvalid(checkRequiredColumns, "at least one column is required")
	}
	cols := append([]string(nil), columns...)
	v.set(checkRequiredColumns, func(ds table.Dataset) ([]anomaly.Anomaly, error) {
		return v.checkRequired(ds, cols)
	})
	return nil
}

// RequireNonNegative flags strictly negative values in numeric columns
func (v *Validator) RequireNonNegative(columns ...string) error {
	if len(columns) == 0 {
		return errors.RuleInvalid(checkNonNegative, "at least one column is required")
	}
	cols := append([]string(nil), columns...)
	v.set(checkNonNegative, func(ds table.Dataset) ([]anomaly.Anomaly, error) {
		return v.checkNonNegative(ds, cols)
	})
	return nil
}

// RequireNotFuture flags dates after today in timestamp columns
func (v *Validator) RequireNotFuture(columns ...string) error {
	if len(columns) == 0 {
		return errors.RuleInvalid(checkNotFuture, "at least one column is required")
	}
	cols := append([]string(nil), columns...)
	v.set(checkNotFuture, func(ds table.Dataset) ([]anomaly.Anomaly, error) {
		return v.checkNotFuture(ds, cols)
	})
	return nil
}

// AddBusinessRule registers a custom predicate. An empty description falls
// back to a generic message naming the rule.
func (v *Validator) AddBusinessRule(name string, condition Condition, description string) error {
	if name == "" {
		return errors.RuleInvalid(name, "business rule name is required")
	}
	if condition == nil {
		return errors.RuleInvalid(name, "business rule requires a condition")
	}
	v.set(name, func(ds table.Dataset) ([]anomaly.Anomaly, error) {
		return v.checkCustom(ds, name, condition, description)
	})
	return nil
}

// Detect runs every check; a failing check is logged and contributes nothing
func (v *Validator) Detect(ds table.Dataset) []anomaly.Anomaly {
	var out []anomaly.Anomaly
	for _, check := range v.checks {
		check := check
		found, err := guard(check.name, func() ([]anomaly.Anomaly, error) { return check.run(ds) })
		if err != nil {
			v.logger.Error("Rule %s failed: %v", check.name, err)
			continue
		}
		out = append(out, found...)
	}
	return out
}

func (v *Validator) checkRequired(ds table.Dataset, columns []string) ([]anomaly.Anomaly, error) {
	var out []anomaly.Anomaly
	total := ds.Len()

	for _, col := range columns {
		if !ds.HasColumn(col) {
			out = append(out, anomaly.Anomaly{
				ID:              fmt.Sprintf("validation_%s_missing", col),
				Type:            anomaly.TypeValidation,
				Severity:        anomaly.SeverityCritical,
				Column:          col,
				DetectedAt:      v.now(),
				Description:     fmt.Sprintf("Required column '%s' is missing from data", col),
				Value:           table.NewMissingValue(),
				AffectedRecords: total,
			})
			continue
		}

		nulls, err := ds.NullCount(col)
		if err != nil {
			return nil, err
		}
		if nulls == 0 {
			continue
		}

		fraction := float64(nulls) / float64(total)
		out = append(out, anomaly.Anomaly{
			ID:              fmt.Sprintf("validation_%s_nulls", col),
			Type:            anomaly.TypeValidation,
			Severity:        nullSeverity(fraction),
			Column:          col,
			DetectedAt:      v.now(),
			Description:     fmt.Sprintf("Required column '%s' has %d null values (%.2f%%)", col, nulls, fraction*100),
			Value:           table.NewNumericValue(float64(nulls)),
			AffectedRecords: nulls,
			Metadata:        anomaly.Metadata{"null_fraction": anomaly.Number(fraction)},
		})
	}
	return out, nil
}

func nullSeverity(fraction float64) anomaly.Severity {
	switch {
	case fraction > 0.10:
		return anomaly.SeverityCritical
	case fraction > 0.01:
		return anomaly.SeverityHigh
	default:
		return anomaly.SeverityMedium
	}
}

func (v *Validator) checkNonNegative(ds table.Dataset, columns []string) ([]anomaly.Anomaly, error) {
	var out []anomaly.Anomaly
	for _, col := range columns {
		if !ds.HasColumn(col) {
			continue
		}
		if _, err := ds.Floats(col); err != nil {
			return nil, err
		}

		negative, err := ds.Filter(col, func(c table.Value) bool { return c.AsFloat64() < 0 })
		if err != nil {
			return nil, err
		}
		count := negative.Count()
		if count == 0 {
			continue
		}

		samples, err := ds.Sample(col, negative, negativeSampleSize)
		if err != nil {
			return nil, err
		}
		out = append(out, anomaly.Anomaly{
			ID:              fmt.Sprintf("validation_%s_negative", col),
			Type:            anomaly.TypeValidation,
			Severity:        anomaly.SeverityHigh,
			Column:          col,
			DetectedAt:      v.now(),
			Description:     fmt.Sprintf("Column '%s' has %d negative values", col, count),
			Value:           firstOrMissing(samples),
			AffectedRecords: count,
			SampleRecords:   samples,
			Metadata:        anomaly.Metadata{"sample_values": anomaly.Samples(samples)},
		})
	}
	return out, nil
}

func (v *Validator) checkNotFuture(ds table.Dataset, columns []string) ([]anomaly.Anomaly, error) {
	var out []anomaly.Anomaly
	today := dateOf(v.now())

	for _, col := range columns {
		if !ds.HasColumn(col) {
			continue
		}
		cells, err := ds.Column(col)
		if err != nil {
			return nil, err
		}

		count := 0
		for _, c := range cells {
			if c.IsNull() {
				continue
			}
			if !c.IsTimestamp() {
				return nil, core.NewColumnTypeError(core.ErrNotTimestamp, col)
			}
			if dateOf(c.AsTime()).After(today) {
				count++
			}
		}
		if count == 0 {
			continue
		}

		out = append(out, anomaly.Anomaly{
			ID:              fmt.Sprintf("validation_%s_future", col),
			Type:            anomaly.TypeValidation,
			Severity:        anomaly.SeverityMedium,
			Column:          col,
			DetectedAt:      v.now(),
			Description:     fmt.Sprintf("Column '%s' has %d future dates", col, count),
			Value:           table.NewMissingValue(),
			AffectedRecords: count,
		})
	}
	return out, nil
}

func (v *Validator) checkCustom(ds table.Dataset, name string, condition Condition, description string) ([]anomaly.Anomaly, error) {
	valid, err := condition(ds)
	if err != nil {
		return nil, err
	}
	if len(valid) != ds.Len() {
		return nil, core.NewMaskLengthError(len(valid), ds.Len())
	}

	invalid := valid.Not().Count()
	if invalid == 0 {
		return nil, nil
	}
	if description == "" {
		description = fmt.Sprintf("Business rule '%s' violated", name)
	}
	return []anomaly.Anomaly{{
		ID:              fmt.Sprintf("validation_%s", name),
		Type:            anomaly.TypeValidation,
		Severity:        anomaly.SeverityMedium,
		Column:          name,
		DetectedAt:      v.now(),
		Description:     description,
		Value:           table.NewMissingValue(),
		AffectedRecords: invalid,
	}}, nil
}

// dateOf truncates t to its calendar date in UTC
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func firstOrMissing(vs []table.Value) table.Value {
	if len(vs) == 0 {
		return table.NewMissingValue()
	}
	return vs[0]
}

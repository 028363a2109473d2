package rules

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"dqengine/domain/core"
	"dqengine/domain/table"
	"dqengine/domain/validation"
)

// evaluate dispatches on the rule type
func (e *Engine) evaluate(rule validation.Rule, ds table.Dataset, now time.Time) (validation.Result, error) {
	switch rule.Type {
	case validation.RuleNotNull:
		return checkNotNull(rule, ds)
	case validation.RuleUnique:
		return checkUnique(rule, ds)
	case validation.RuleRange:
		return e.checkRange(rule, ds)
	case validation.RulePattern:
		return e.checkPattern(rule, ds)
	case validation.RuleAllowedValues:
		return e.checkMembership(rule, ds, keySet(rule.Params.Values), "invalid values", "All values allowed")
	case validation.RuleReferential:
		ref, ok := e.references[rule.Params.Reference]
		if !ok {
			return validation.Result{}, fmt.Errorf("reference data not found: %s", rule.Params.Reference)
		}
		return e.checkMembership(rule, ds, ref, "orphan records", "All references valid")
	case validation.RuleCompleteness:
		return checkCompleteness(rule, ds)
	case validation.RuleCustom:
		return checkCustom(rule, ds)
	case validation.RuleFreshness:
		return e.checkFreshness(rule, ds, now)
	}
	return validation.Result{}, fmt.Errorf("unknown rule type: %s", rule.Type)
}

func checkNotNull(rule validation.Rule, ds table.Dataset) (validation.Result, error) {
	nulls, err := ds.NullCount(rule.Column)
	if err != nil {
		return validation.Result{}, err
	}
	msg := "No null values"
	if nulls > 0 {
		msg = fmt.Sprintf("%d null values found", nulls)
	}
	return validation.NewResult(rule, ds.Len(), nulls, msg), nil
}

func checkUnique(rule validation.Rule, ds table.Dataset) (validation.Result, error) {
	kept, err := ds.Deduplicate(rule.TargetColumns(), table.KeepFirst)
	if err != nil {
		return validation.Result{}, err
	}
	duplicates := ds.Len() - len(kept)
	msg := "All records unique"
	if duplicates > 0 {
		msg = fmt.Sprintf("%d duplicate records found", duplicates)
	}
	return validation.NewResult(rule, ds.Len(), duplicates, msg), nil
}

func (e *Engine) checkRange(rule validation.Rule, ds table.Dataset) (validation.Result, error) {
	lo, hi := rule.Params.Min, rule.Params.Max
	bounds := fmt.Sprintf("[%s, %s]", bound(lo, "-∞"), bound(hi, "∞"))

	invalid := 0
	var samples []table.Value
	if lo != nil || hi != nil {
		if _, err := ds.Floats(rule.Column); err != nil {
			return validation.Result{}, err
		}
		mask, err := ds.Filter(rule.Column, func(c table.Value) bool {
			x := c.AsFloat64()
			return (lo != nil && x < *lo) || (hi != nil && x > *hi)
		})
		if err != nil {
			return validation.Result{}, err
		}
		invalid = mask.Count()
		if invalid > 0 {
			if samples, err = ds.DistinctSample(rule.Column, mask, e.sampleSize); err != nil {
				return validation.Result{}, err
			}
		}
	}

	msg := fmt.Sprintf("All values within %s", bounds)
	if invalid > 0 {
		msg = fmt.Sprintf("%d values outside range %s", invalid, bounds)
	}
	res := validation.NewResult(rule, ds.Len(), invalid, msg)
	res.SampleInvalid = samples
	return res, nil
}

func bound(b *float64, unbounded string) string {
	if b == nil {
		return unbounded
	}
	return strconv.FormatFloat(*b, 'g', -1, 64)
}

func (e *Engine) checkPattern(rule validation.Rule, ds table.Dataset) (validation.Result, error) {
	re := e.patterns[rule.Name]
	matches, err := ds.Contains(rule.Column, re, true)
	if err != nil {
		return validation.Result{}, err
	}
	mismatch := matches.Not()
	invalid := mismatch.Count()

	msg := "All values match pattern"
	var samples []table.Value
	if invalid > 0 {
		msg = fmt.Sprintf("%d values don't match pattern", invalid)
		if samples, err = ds.DistinctSample(rule.Column, mismatch, e.sampleSize); err != nil {
			return validation.Result{}, err
		}
	}
	res := validation.NewResult(rule, ds.Len(), invalid, msg)
	res.SampleInvalid = samples
	return res, nil
}

// checkMembership flags non-missing cells whose value is not in valid
func (e *Engine) checkMembership(rule validation.Rule, ds table.Dataset, valid map[string]struct{}, failure, success string) (validation.Result, error) {
	mask, err := ds.Filter(rule.Column, func(c table.Value) bool {
		_, ok := valid[c.Key()]
		return !ok
	})
	if err != nil {
		return validation.Result{}, err
	}
	invalid := mask.Count()

	msg := success
	var samples []table.Value
	if invalid > 0 {
		msg = fmt.Sprintf("%d %s", invalid, failure)
		if samples, err = ds.DistinctSample(rule.Column, mask, e.sampleSize); err != nil {
			return validation.Result{}, err
		}
	}
	res := validation.NewResult(rule, ds.Len(), invalid, msg)
	res.SampleInvalid = samples
	return res, nil
}

func keySet(values []table.Value) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v.Key()] = struct{}{}
	}
	return set
}

// checkCompleteness compares the non-null cell fraction with the threshold.
// A failing rule reports at least one invalid record so that the result's
// pass flag and counts agree.
func checkCompleteness(rule validation.Rule, ds table.Dataset) (validation.Result, error) {
	threshold := DefaultCompleteness
	if rule.Params.Threshold != nil {
		threshold = *rule.Params.Threshold
	}

	rows := ds.Len()
	cells := rows * len(ds.Columns())
	completeness := 1.0
	if cells > 0 {
		completeness = 1 - float64(ds.NullCells())/float64(cells)
	}

	invalid := 0
	if completeness < threshold {
		invalid = int(math.Round((1 - completeness) * float64(rows)))
		if invalid < 1 {
			invalid = 1
		}
	}

	msg := fmt.Sprintf("Completeness: %.2f%% (threshold: %.0f%%)", completeness*100, threshold*100)
	res := validation.NewResult(rule, rows, invalid, msg)
	res.Column = ""
	return res, nil
}

func checkCustom(rule validation.Rule, ds table.Dataset) (validation.Result, error) {
	if rule.Check == nil {
		return validation.Result{}, fmt.Errorf("custom rule must have a check function")
	}
	valid, err := rule.Check(ds)
	if err != nil {
		return validation.Result{}, err
	}
	if len(valid) != ds.Len() {
		return validation.Result{}, core.NewMaskLengthError(len(valid), ds.Len())
	}
	invalid := valid.Not().Count()

	msg := rule.Description
	if msg == "" {
		msg = fmt.Sprintf("%d records failed custom check", invalid)
	}
	return validation.NewResult(rule, ds.Len(), invalid, msg), nil
}

// checkFreshness flags timestamps older than now minus the rule's max age
func (e *Engine) checkFreshness(rule validation.Rule, ds table.Dataset, now time.Time) (validation.Result, error) {
	cells, err := ds.Column(rule.Column)
	if err != nil {
		return validation.Result{}, err
	}
	cutoff := now.Add(-rule.Params.MaxAge)

	stale := table.NewMask(len(cells))
	for i, c := range cells {
		if c.IsNull() {
			continue
		}
		if !c.IsTimestamp() {
			return validation.Result{}, core.NewColumnTypeError(core.ErrNotTimestamp, rule.Column)
		}
		stale[i] = c.AsTime().Before(cutoff)
	}
	invalid := stale.Count()

	msg := fmt.Sprintf("All values newer than %s", rule.Params.MaxAge)
	var samples []table.Value
	if invalid > 0 {
		msg = fmt.Sprintf("%d values older than %s", invalid, rule.Params.MaxAge)
		if samples, err = ds.Sample(rule.Column, stale, e.sampleSize); err != nil {
			return validation.Result{}, err
		}
	}
	res := validation.NewResult(rule, len(cells), invalid, msg)
	res.SampleInvalid = samples
	return res, nil
}

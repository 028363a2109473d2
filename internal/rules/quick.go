package rules

import (
	"context"

	"dqengine/domain/table"
	"dqengine/domain/validation"
)

// ValidateDataset runs common rules: not_null per column, one unique rule over
// all unique columns and a non-negative range per positive column
func ValidateDataset(ctx context.Context, ds table.Dataset, notNull, unique, positive []string, opts ...Option) (*validation.Report, error) {
	e := NewEngine("quick_validation", opts...)

	for _, col := range notNull {
		if err := e.AddRule(validation.Rule{Name: col + "_not_null", Type: validation.RuleNotNull, Column: col}); err != nil {
			return nil, err
		}
	}
	if len(unique) > 0 {
		if err := e.AddRule(validation.Rule{Name: "unique_check", Type: validation.RuleUnique, Columns: unique}); err != nil {
			return nil, err
		}
	}
	zero := 0.0
	for _, col := range positive {
		rule := validation.Rule{
			Name:   col + "_positive",
			Type:   validation.RuleRange,
			Column: col,
			Params: validation.Params{Min: &zero},
		}
		if err := e.AddRule(rule); err != nil {
			return nil, err
		}
	}

	return e.Validate(ctx, ds)
}

// Package rules evaluates declarative validation rules against a dataset
// and scores the outcome.
package rules

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"dqengine/domain/table"
	"dqengine/domain/validation"
	"dqengine/internal"
	"dqengine/internal/errors"
	"dqengine/ports"
)

const (
	// DefaultCompleteness is the required non-null cell fraction when a
	// completeness rule sets no threshold
	DefaultCompleteness = 0.95

	// DefaultSampleSize caps the invalid values reported per rule
	DefaultSampleSize = 5

	defaultPattern = ".*"
)

// Option configures an Engine
type Option func(*Engine)

// WithLogger injects the logger
func WithLogger(logger ports.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock replaces time.Now for report timestamps and freshness cutoffs
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithParallelism evaluates rules concurrently within a budget of n cost
// units. n <= 1 evaluates sequentially.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithSampleSize caps the invalid values kept per result; n < 1 is ignored
func WithSampleSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.sampleSize = n
		}
	}
}

// Engine holds an ordered rule list and the reference sets used by
// referential rules. Rules and references must not change while Validate runs.
type Engine struct {
	table       string
	logger      ports.Logger
	now         func() time.Time
	parallelism int
	sampleSize  int

	rules      []validation.Rule
	names      map[string]struct{}
	patterns   map[string]*regexp.Regexp
	references map[string]map[string]struct{}
}

// NewEngine creates an engine for a table
func NewEngine(tableName string, opts ...Option) *Engine {
	e := &Engine{
		table:       tableName,
		logger:      internal.NewNopLogger(),
		now:         func() time.Time { return time.Now().UTC() },
		parallelism: 1,
		sampleSize:  DefaultSampleSize,
		names:       make(map[string]struct{}),
		patterns:    make(map[string]*regexp.Regexp),
		references:  make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = internal.Component(e.logger, "validation."+tableName)
	return e
}

// Table is the table name reports are labelled with
func (e *Engine) Table() string { return e.table }

// Rules returns the registered rules in evaluation order
func (e *Engine) Rules() []validation.Rule {
	return append([]validation.Rule(nil), e.rules...)
}

// AddRule checks the rule's configuration and appends it. An empty severity
// defaults to error.
func (e *Engine) AddRule(rule validation.Rule) error {
	if rule.Severity == "" {
		rule.Severity = validation.SeverityError
	}
	re, err := e.checkRule(rule)
	if err != nil {
		return err
	}
	if re != nil {
		e.patterns[rule.Name] = re
	}
	e.names[rule.Name] = struct{}{}
	e.rules = append(e.rules, rule)
	return nil
}

// AddRules adds rules in order, stopping at the first invalid one
func (e *Engine) AddRules(rules ...validation.Rule) error {
	for i, rule := range rules {
		if err := e.AddRule(rule); err != nil {
			return errors.Wrapf(err, "rule %d", i)
		}
	}
	return nil
}

// RegisterReference stores a named set of valid values for referential rules.
// Registering the same name again replaces the set.
func (e *Engine) RegisterReference(name string, values []table.Value) error {
	if name == "" {
		return errors.InvalidInput("reference name is required")
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v.Key()] = struct{}{}
	}
	e.references[name] = set
	return nil
}

// RegisterReferenceColumn stores the distinct values of a dataset column as a reference set
func (e *Engine) RegisterReferenceColumn(name string, ds table.Dataset, column string) error {
	if column == "" {
		return errors.InvalidInput("column must be specified for a dataset reference")
	}
	cells, err := ds.Column(column)
	if err != nil {
		return errors.Wrapf(err, "reference %q", name)
	}
	return e.RegisterReference(name, cells)
}

// HasReference reports whether a reference set is registered
func (e *Engine) HasReference(name string) bool {
	_, ok := e.references[name]
	return ok
}

func (e *Engine) checkRule(rule validation.Rule) (*regexp.Regexp, error) {
	if rule.Name == "" {
		return nil, errors.RuleInvalid(rule.Name, "name is required")
	}
	if _, dup := e.names[rule.Name]; dup {
		return nil, errors.RuleInvalid(rule.Name, "duplicate rule name")
	}
	if !rule.Severity.IsValid() {
		return nil, errors.RuleInvalid(rule.Name, fmt.Sprintf("unknown severity %q", rule.Severity))
	}

	needsColumn := func() error {
		if rule.Column == "" {
			return errors.RuleInvalid(rule.Name, fmt.Sprintf("%s rule requires a column", rule.Type))
		}
		return nil
	}

	p := rule.Params
	switch rule.Type {
	case validation.RuleNotNull:
		return nil, needsColumn()
	case validation.RuleUnique:
		if len(rule.TargetColumns()) == 0 {
			return nil, errors.RuleInvalid(rule.Name, "unique rule requires at least one column")
		}
	case validation.RuleRange:
		if err := needsColumn(); err != nil {
			return nil, err
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return nil, errors.RuleInvalid(rule.Name, fmt.Sprintf("min %v exceeds max %v", *p.Min, *p.Max))
		}
	case validation.RulePattern:
		if err := needsColumn(); err != nil {
			return nil, err
		}
		pattern := p.Pattern
		if pattern == "" {
			pattern = defaultPattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.RuleInvalid(rule.Name, fmt.Sprintf("invalid pattern: %v", err))
		}
		return re, nil
	case validation.RuleAllowedValues:
		if err := needsColumn(); err != nil {
			return nil, err
		}
		if len(p.Values) == 0 {
			return nil, errors.RuleInvalid(rule.Name, "allowed_values rule requires at least one value")
		}
	case validation.RuleReferential:
		if err := needsColumn(); err != nil {
			return nil, err
		}
		if p.Reference == "" {
			return nil, errors.RuleInvalid(rule.Name, "referential rule requires a reference name")
		}
	case validation.RuleCompleteness:
		if p.Threshold != nil && (*p.Threshold < 0 || *p.Threshold > 1) {
			return nil, errors.RuleInvalid(rule.Name, "completeness threshold must be within [0, 1]")
		}
	case validation.RuleCustom:
		if rule.Check == nil {
			return nil, errors.RuleInvalid(rule.Name, "custom rule must have a check function")
		}
	case validation.RuleFreshness:
		if err := needsColumn(); err != nil {
			return nil, err
		}
		if p.MaxAge <= 0 {
			return nil, errors.RuleInvalid(rule.Name, "freshness rule requires a positive max age")
		}
	default:
		return nil, errors.RuleInvalid(rule.Name, fmt.Sprintf("unknown rule type %q", rule.Type))
	}
	return nil, nil
}

// Validate evaluates every rule in registration order. A rule that fails to
// evaluate is reported as fully invalid. Errors are returned for a
// referential rule naming an unregistered reference set and for a context
// that ends before every rule has started (CANCELED, no partial report).
func (e *Engine) Validate(ctx context.Context, ds table.Dataset) (*validation.Report, error) {
	for _, rule := range e.rules {
		if rule.Type == validation.RuleReferential && !e.HasReference(rule.Params.Reference) {
			return nil, errors.ReferenceNotFound(rule.Name, rule.Params.Reference)
		}
	}

	now := e.now()
	var results []validation.Result
	if e.parallelism > 1 && len(e.rules) > 1 {
		var err error
		results, err = newExecutor(e.parallelism).run(ctx, e.rules, func(rule validation.Rule) validation.Result {
			return e.execute(rule, ds, now)
		})
		if err != nil {
			return nil, errors.Canceled("validation", err)
		}
	} else {
		results = make([]validation.Result, len(e.rules))
		for i, rule := range e.rules {
			if err := ctx.Err(); err != nil {
				return nil, errors.Canceled("validation", err)
			}
			results[i] = e.execute(rule, ds, now)
		}
	}

	report := validation.NewReport(e.table, ds.Len(), results, now)
	e.logger.Info("Validation complete: %d/%d rules passed, quality score: %.2f%%",
		report.PassedRules, report.TotalRules, report.QualityScore*100)
	return report, nil
}

// execute evaluates one rule, converting errors and panics into a failed result
func (e *Engine) execute(rule validation.Rule, ds table.Dataset, now time.Time) (result validation.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = e.failed(rule, ds.Len(), fmt.Errorf("panic: %v", r))
		}
		result.ExecutionTime = time.Since(start)
	}()

	res, err := e.evaluate(rule, ds, now)
	if err != nil {
		return e.failed(rule, ds.Len(), err)
	}
	return res
}

func (e *Engine) failed(rule validation.Rule, total int, err error) validation.Result {
	e.logger.Error("Rule execution failed: %s - %v", rule.Name, err)
	return validation.FailedResult(rule, total, fmt.Sprintf("Rule execution error: %v", err))
}

package suite

import (
	"fmt"
	"sort"
	"time"

	"dqengine/domain/anomaly"
	"dqengine/domain/core"
	"dqengine/domain/table"
	"dqengine/domain/validation"
	"dqengine/internal/detection"
	"dqengine/internal/errors"
	"dqengine/internal/rules"
	"dqengine/ports"
)

// CompileOptions carries the runtime collaborators shared by both engines
type CompileOptions struct {
	Logger      ports.Logger
	Clock       func() time.Time
	Parallelism int
	SampleSize  int
}

// Compiled is a suite ready to run
type Compiled struct {
	Suite       *Suite
	Fingerprint core.Hash
	Detector    *detection.Detector
	Engine      *rules.Engine
}

// Compile builds the detector and the rule engine described by s
func Compile(s *Suite, opts CompileOptions) (*Compiled, error) {
	detectorOpts := []detection.Option{detection.WithLogger(opts.Logger), detection.WithClock(opts.Clock)}
	d := detection.NewDetector(s.Table, detectorOpts...)

	if err := compileTier1(d.Tier1, s.Tier1); err != nil {
		return nil, err
	}
	for i, spec := range s.Tier2 {
		if err := compileOutlier(d.Tier2, spec); err != nil {
			return nil, errors.Wrapf(err, "tier2[%d]", i)
		}
	}
	for i, spec := range s.Tier3 {
		if err := compileVolatility(d.Tier3, spec); err != nil {
			return nil, errors.Wrapf(err, "tier3[%d]", i)
		}
	}

	engine := rules.NewEngine(s.Table,
		rules.WithLogger(opts.Logger),
		rules.WithClock(opts.Clock),
		rules.WithParallelism(opts.Parallelism),
		rules.WithSampleSize(opts.SampleSize),
	)
	for _, name := range sortedKeys(s.References) {
		if err := engine.RegisterReference(name, referenceValues(s.References[name])); err != nil {
			return nil, err
		}
	}
	for _, spec := range s.Rules {
		rule, err := compileRule(spec)
		if err != nil {
			return nil, err
		}
		if err := engine.AddRule(rule); err != nil {
			return nil, err
		}
	}

	return &Compiled{Suite: s, Fingerprint: s.Fingerprint(), Detector: d, Engine: engine}, nil
}

func compileTier1(v *detection.Validator, spec Tier1Spec) error {
	if len(spec.Required) > 0 {
		if err := v.RequireColumns(spec.Required...); err != nil {
			return err
		}
	}
	if len(spec.NonNegative) > 0 {
		if err := v.RequireNonNegative(spec.NonNegative...); err != nil {
			return err
		}
	}
	if len(spec.NotFuture) > 0 {
		if err := v.RequireNotFuture(spec.NotFuture...); err != nil {
			return err
		}
	}
	return nil
}

func compileOutlier(o *detection.OutlierDetector, spec OutlierSpec) error {
	switch detection.Method(spec.Method) {
	case detection.MethodIQR:
		sev, err := severity(spec.Severity, anomaly.SeverityMedium)
		if err != nil {
			return err
		}
		return o.AddIQRCheck(spec.Column, orDefault(spec.Multiplier, detection.DefaultIQRMultiplier), sev)
	case detection.MethodZScore:
		sev, err := severity(spec.Severity, anomaly.SeverityMedium)
		if err != nil {
			return err
		}
		return o.AddZScoreCheck(spec.Column, orDefault(spec.Threshold, detection.DefaultZScoreThreshold), sev)
	case detection.MethodMAD:
		sev, err := severity(spec.Severity, anomaly.SeverityMedium)
		if err != nil {
			return err
		}
		return o.AddMADCheck(spec.Column, orDefault(spec.Threshold, detection.DefaultMADThreshold), sev)
	case detection.MethodPercentile:
		sev, err := severity(spec.Severity, anomaly.SeverityLow)
		if err != nil {
			return err
		}
		return o.AddPercentileCheck(spec.Column,
			orDefault(spec.Lower, detection.DefaultLowerPercentile),
			orDefault(spec.Upper, detection.DefaultUpperPercentile), sev)
	}
	return errors.ConfigInvalid(fmt.Sprintf("unknown outlier method %q for column %q", spec.Method, spec.Column))
}

func compileVolatility(a *detection.VolatilityAnalyzer, spec VolatilitySpec) error {
	switch detection.VolatilityKind(spec.Type) {
	case detection.KindSpike:
		sev, err := severity(spec.Severity, anomaly.SeverityHigh)
		if err != nil {
			return err
		}
		return a.AddSpikeDetection(spec.Column, orDefault(spec.ThresholdPct, detection.DefaultSpikeThresholdPct), sev)
	case detection.KindDrop:
		sev, err := severity(spec.Severity, anomaly.SeverityHigh)
		if err != nil {
			return err
		}
		return a.AddDropDetection(spec.Column, orDefault(spec.ThresholdPct, detection.DefaultDropThresholdPct), sev)
	case detection.KindVolume:
		sev, err := severity(spec.Severity, anomaly.SeverityMedium)
		if err != nil {
			return err
		}
		return a.AddVolumeCheck(spec.ExpectedMin, spec.ExpectedMax, sev)
	case detection.KindRolling:
		sev, err := severity(spec.Severity, anomaly.SeverityMedium)
		if err != nil {
			return err
		}
		window := spec.WindowSize
		if window == 0 {
			window = detection.DefaultWindowSize
		}
		return a.AddRollingAverageCheck(spec.Column, window, orDefault(spec.ThresholdStd, detection.DefaultThresholdStd), spec.DateColumn, sev)
	}
	return errors.ConfigInvalid(fmt.Sprintf("unknown volatility check type %q", spec.Type))
}

func compileRule(spec RuleSpec) (validation.Rule, error) {
	ruleType := validation.RuleType(spec.Type)
	if ruleType == validation.RuleCustom {
		return validation.Rule{}, errors.RuleInvalid(spec.Name, "custom rules need a predicate and cannot be declared in a suite file")
	}

	maxAge, err := parseMaxAge(spec.Name, spec.MaxAge)
	if err != nil {
		return validation.Rule{}, err
	}

	var values []table.Value
	if len(spec.Values) > 0 {
		values = referenceValues(spec.Values)
	}

	return validation.Rule{
		Name:        spec.Name,
		Type:        ruleType,
		Column:      spec.Column,
		Columns:     spec.Columns,
		Severity:    validation.Severity(spec.Severity),
		Description: spec.Description,
		Params: validation.Params{
			Min:       spec.Min,
			Max:       spec.Max,
			Pattern:   spec.Pattern,
			Values:    values,
			Reference: spec.Reference,
			Threshold: spec.Threshold,
			MaxAge:    maxAge,
		},
	}, nil
}

// severity parses an anomaly severity, falling back to def when unset
func severity(s string, def anomaly.Severity) (anomaly.Severity, error) {
	if s == "" {
		return def, nil
	}
	sev := anomaly.Severity(s)
	if !sev.IsValid() {
		return "", errors.ConfigInvalid(fmt.Sprintf("unknown severity %q", s))
	}
	return sev, nil
}

func sortedKeys(m map[string][]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

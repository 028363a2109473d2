// Package suite reads YAML check suites and compiles them into a configured
// anomaly detector and validation engine.
package suite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dqengine/domain/core"
	"dqengine/domain/table"
	"dqengine/internal/errors"
)

// Suite is one table's checks as written in a suite file
type Suite struct {
	Name       string                   `yaml:"name" json:"name"`
	Table      string                   `yaml:"table" json:"table"`
	Tier1      Tier1Spec                `yaml:"tier1" json:"tier1"`
	Tier2      []OutlierSpec            `yaml:"tier2" json:"tier2,omitempty"`
	Tier3      []VolatilitySpec         `yaml:"tier3" json:"tier3,omitempty"`
	Rules      []RuleSpec               `yaml:"rules" json:"rules,omitempty"`
	References map[string][]interface{} `yaml:"references" json:"references,omitempty"`
}

// Tier1Spec lists the schema checks
type Tier1Spec struct {
	Required    []string `yaml:"required" json:"required,omitempty"`
	NonNegative []string `yaml:"non_negative" json:"non_negative,omitempty"`
	NotFuture   []string `yaml:"not_future" json:"not_future,omitempty"`
}

// OutlierSpec is one tier 2 check. Unset parameters take the method default.
type OutlierSpec struct {
	Column     string   `yaml:"column" json:"column"`
	Method     string   `yaml:"method" json:"method"`
	Multiplier *float64 `yaml:"multiplier" json:"multiplier,omitempty"`
	Threshold  *float64 `yaml:"threshold" json:"threshold,omitempty"`
	Lower      *float64 `yaml:"lower" json:"lower,omitempty"`
	Upper      *float64 `yaml:"upper" json:"upper,omitempty"`
	Severity   string   `yaml:"severity" json:"severity,omitempty"`
}

// VolatilitySpec is one tier 3 check
type VolatilitySpec struct {
	Type         string   `yaml:"type" json:"type"`
	Column       string   `yaml:"column" json:"column,omitempty"`
	ThresholdPct *float64 `yaml:"threshold_pct" json:"threshold_pct,omitempty"`
	ExpectedMin  int      `yaml:"expected_min" json:"expected_min,omitempty"`
	ExpectedMax  int      `yaml:"expected_max" json:"expected_max,omitempty"`
	WindowSize   int      `yaml:"window_size" json:"window_size,omitempty"`
	ThresholdStd *float64 `yaml:"threshold_std" json:"threshold_std,omitempty"`
	DateColumn   string   `yaml:"date_column" json:"date_column,omitempty"`
	Severity     string   `yaml:"severity" json:"severity,omitempty"`
}

// RuleSpec is one validation rule. MaxAge uses Go duration syntax ("36h").
type RuleSpec struct {
	Name        string        `yaml:"name" json:"name"`
	Type        string        `yaml:"type" json:"type"`
	Column      string        `yaml:"column" json:"column,omitempty"`
	Columns     []string      `yaml:"columns" json:"columns,omitempty"`
	Severity    string        `yaml:"severity" json:"severity,omitempty"`
	Min         *float64      `yaml:"min" json:"min,omitempty"`
	Max         *float64      `yaml:"max" json:"max,omitempty"`
	Pattern     string        `yaml:"pattern" json:"pattern,omitempty"`
	Values      []interface{} `yaml:"values" json:"values,omitempty"`
	Reference   string        `yaml:"reference" json:"reference,omitempty"`
	Threshold   *float64      `yaml:"threshold" json:"threshold,omitempty"`
	MaxAge      string        `yaml:"max_age" json:"max_age,omitempty"`
	Description string        `yaml:"description" json:"description,omitempty"`
}

// Fingerprint identifies the suite's content so runs can be traced to the
// exact checks they used
func (s *Suite) Fingerprint() core.Hash {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return core.NewHash(data)
}

// Parse decodes a suite document. Unknown keys are rejected so typos surface.
func Parse(data []byte) (*Suite, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Suite
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "parse suite")
	}

	if strings.TrimSpace(s.Table) == "" {
		return nil, errors.ConfigInvalid("suite table is required")
	}
	if s.Name == "" {
		s.Name = s.Table
	}
	return &s, nil
}

// LoadFile reads and parses one suite file
func LoadFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("suite file %s", path))
		}
		return nil, fmt.Errorf("read suite %s: %w", path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "suite %s", filepath.Base(path))
	}
	return s, nil
}

// LoadDir reads every .yaml/.yml file in dir, keyed by suite name.
// A missing directory yields no suites.
func LoadDir(dir string) (map[string]*Suite, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Suite{}, nil
		}
		return nil, fmt.Errorf("read suites dir %s: %w", dir, err)
	}

	suites := make(map[string]*Suite)
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		s, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, dup := suites[s.Name]; dup {
			return nil, errors.ConfigInvalid(fmt.Sprintf("duplicate suite name %q in %s", s.Name, dir))
		}
		suites[s.Name] = s
	}
	return suites, nil
}

// Names returns suite names in sorted order
func Names(suites map[string]*Suite) []string {
	names := make([]string, 0, len(suites))
	for name := range suites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseMaxAge(rule, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.RuleInvalid(rule, fmt.Sprintf("max_age %q: %v", s, err))
	}
	return d, nil
}

func referenceValues(raw []interface{}) []table.Value {
	return table.Values(raw...)
}

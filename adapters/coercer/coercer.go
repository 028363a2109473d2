package coercer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"dqengine/adapters/frame"
	"dqengine/domain/table"
)

// TypeCoercer handles deterministic conversion of raw text cells into typed values
type TypeCoercer struct {
	config CoercionConfig
	nulls  map[string]struct{}
}

// CoercionConfig defines the type inference thresholds and null tokens
type CoercionConfig struct {
	NumericThreshold   float64  `json:"numeric_threshold"`   // share of non-null cells that must parse as numbers
	BooleanThreshold   float64  `json:"boolean_threshold"`   // share of non-null cells that must parse as booleans
	TimestampThreshold float64  `json:"timestamp_threshold"` // share of non-null cells that must parse as timestamps
	NullTokens         []string `json:"null_tokens"`         // case-insensitive spellings of a missing cell
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold:   0.9,
		BooleanThreshold:   0.95,
		TimestampThreshold: 0.9,
		NullTokens:         []string{"", "null", "nil", "na", "n/a", "nan", "none"},
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	nulls := make(map[string]struct{}, len(config.NullTokens))
	for _, tok := range config.NullTokens {
		nulls[strings.ToLower(strings.TrimSpace(tok))] = struct{}{}
	}
	return &TypeCoercer{config: config, nulls: nulls}
}

// ColumnCoercion summarises how one column was typed
type ColumnCoercion struct {
	Column   string          `json:"column"`
	Type     table.ValueType `json:"type"`
	Rejected int             `json:"rejected"` // non-null cells that did not parse as Type and became missing
	Analysis TypeAnalysis    `json:"analysis"`
}

// CoerceValue converts a single raw value, trying numeric, boolean, then timestamp
func (c *TypeCoercer) CoerceValue(rawValue interface{}) table.Value {
	switch v := rawValue.(type) {
	case nil:
		return table.NewMissingValue()
	case string:
		return c.coerceString(v)
	case []byte:
		return c.coerceString(string(v))
	default:
		return table.ValueOf(v)
	}
}

func (c *TypeCoercer) coerceString(strVal string) table.Value {
	if c.isNull(strVal) {
		return table.NewMissingValue()
	}
	if v, ok := c.tryParseNumeric(strVal); ok {
		return v
	}
	if v, ok := c.tryParseBoolean(strVal); ok {
		return v
	}
	if v, ok := c.tryParseTimestamp(strVal); ok {
		return v
	}
	return table.NewStringValue(strings.TrimSpace(strVal))
}

// CoerceColumn infers one type for the column and converts every cell to it.
// Cells that do not parse as the inferred type become missing.
func (c *TypeCoercer) CoerceColumn(name string, raw []string) ([]table.Value, ColumnCoercion) {
	analysis := c.AnalyzeTypeDistribution(raw)
	report := ColumnCoercion{Column: name, Type: analysis.RecommendedType, Analysis: analysis}

	out := make([]table.Value, len(raw))
	for i, s := range raw {
		if c.isNull(s) {
			out[i] = table.NewMissingValue()
			continue
		}

		var (
			v  table.Value
			ok bool
		)
		switch analysis.RecommendedType {
		case table.ValueTypeNumeric:
			v, ok = c.tryParseNumeric(s)
		case table.ValueTypeBoolean:
			v, ok = c.tryParseBoolean(s)
		case table.ValueTypeTimestamp:
			v, ok = c.tryParseTimestamp(s)
		default:
			v, ok = table.NewStringValue(strings.TrimSpace(s)), true
		}
		if !ok {
			report.Rejected++
			v = table.NewMissingValue()
		}
		out[i] = v
	}
	return out, report
}

// Frame builds a typed frame from a header row and text rows. Short rows are
// padded with missing cells.
func (c *TypeCoercer) Frame(headers []string, rows [][]string) (*frame.Frame, []ColumnCoercion, error) {
	columns := make([]frame.Column, len(headers))
	reports := make([]ColumnCoercion, len(headers))

	for j, h := range headers {
		raw := make([]string, len(rows))
		for i, row := range rows {
			if j < len(row) {
				raw[i] = row[j]
			}
		}
		values, report := c.CoerceColumn(h, raw)
		columns[j] = frame.Column{Name: strings.TrimSpace(h), Values: values}
		reports[j] = report
	}

	f, err := frame.New(columns...)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range reports {
		f.SetRejected(strings.TrimSpace(r.Column), r.Rejected)
	}
	return f, reports, nil
}

// AnalyzeTypeDistribution counts how many non-null cells parse as each type
// and recommends one
func (c *TypeCoercer) AnalyzeTypeDistribution(values []string) TypeAnalysis {
	analysis := TypeAnalysis{
		TotalCount: len(values),
	}

	for _, strVal := range values {
		if c.isNull(strVal) {
			continue
		}
		analysis.ValidCount++

		if _, ok := c.tryParseNumeric(strVal); ok {
			analysis.NumericCount++
		}
		if _, ok := c.tryParseBoolean(strVal); ok {
			analysis.BooleanCount++
		}
		if _, ok := c.tryParseTimestamp(strVal); ok {
			analysis.TimestampCount++
		}
	}

	if analysis.ValidCount > 0 {
		valid := float64(analysis.ValidCount)
		analysis.NumericRatio = float64(analysis.NumericCount) / valid
		analysis.BooleanRatio = float64(analysis.BooleanCount) / valid
		analysis.TimestampRatio = float64(analysis.TimestampCount) / valid
	}

	analysis.RecommendedType = c.determineRecommendedType(analysis)
	return analysis
}

func (c *TypeCoercer) isNull(s string) bool {
	_, ok := c.nulls[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// tryParseNumeric attempts to parse as numeric with strict rules.
// Handles parentheses for negatives, European decimals and currency symbols.
func (c *TypeCoercer) tryParseNumeric(strVal string) (table.Value, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return table.Value{}, false
	}

	// (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "USD", "EUR", "GBP", "JPY"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(cleanVal)
	cleanVal = strings.ReplaceAll(cleanVal, "%", "")

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	switch {
	case hasComma && (hasPeriod || hasSpace):
		// 1.234,56 or 1 234,56 when the comma closes the number
		commaIdx := strings.LastIndex(cleanVal, ",")
		afterComma := cleanVal[commaIdx+1:]
		if len(afterComma) <= 2 && commaIdx > strings.LastIndex(cleanVal, ".") {
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
		}
	case hasComma:
		// 1,5 is a decimal comma; 1,500 is a thousands separator
		commaIdx := strings.LastIndex(cleanVal, ",")
		if strings.Count(cleanVal, ",") == 1 && len(cleanVal)-commaIdx-1 != 3 {
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		}
	default:
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return table.Value{}, false
	}
	return table.NewNumericValue(val), true
}

// tryParseBoolean accepts the common textual boolean spellings
func (c *TypeCoercer) tryParseBoolean(strVal string) (table.Value, bool) {
	switch strings.ToLower(strings.TrimSpace(strVal)) {
	case "true", "yes", "y", "t":
		return table.NewBooleanValue(true), true
	case "false", "no", "n", "f":
		return table.NewBooleanValue(false), true
	}
	return table.Value{}, false
}

var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
}

// tryParseTimestamp attempts the supported layouts; values without a zone are UTC
func (c *TypeCoercer) tryParseTimestamp(strVal string) (table.Value, bool) {
	s := strings.TrimSpace(strVal)
	if s == "" {
		return table.Value{}, false
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return table.NewTimestampValue(t), true
		}
	}
	return table.Value{}, false
}

// determineRecommendedType chooses the most restrictive type meeting its threshold
func (c *TypeCoercer) determineRecommendedType(analysis TypeAnalysis) table.ValueType {
	if analysis.ValidCount == 0 {
		return table.ValueTypeMissing
	}
	if analysis.NumericRatio >= c.config.NumericThreshold {
		return table.ValueTypeNumeric
	}
	if analysis.BooleanRatio >= c.config.BooleanThreshold {
		return table.ValueTypeBoolean
	}
	if analysis.TimestampRatio >= c.config.TimestampThreshold {
		return table.ValueTypeTimestamp
	}
	return table.ValueTypeString
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int             `json:"total_count"`
	ValidCount      int             `json:"valid_count"`
	NumericCount    int             `json:"numeric_count"`
	BooleanCount    int             `json:"boolean_count"`
	TimestampCount  int             `json:"timestamp_count"`
	NumericRatio    float64         `json:"numeric_ratio"`
	BooleanRatio    float64         `json:"boolean_ratio"`
	TimestampRatio  float64         `json:"timestamp_ratio"`
	RecommendedType table.ValueType `json:"recommended_type"`
}

// String is a short human summary used in logs
func (r ColumnCoercion) String() string {
	return fmt.Sprintf("%s:%s (%d rejected)", r.Column, r.Type, r.Rejected)
}

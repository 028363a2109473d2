package anomaly

import (
	"bytes"
	"encoding/json"
	"fmt"

	"dqengine/domain/table"
)

// MetaKind tags which field of a MetaValue is populated
type MetaKind string

const (
	MetaNumber  MetaKind = "number"
	MetaString  MetaKind = "string"
	MetaRange   MetaKind = "range"
	MetaSamples MetaKind = "samples"
)

// MetaValue is one entry of anomaly metadata: a number, a string, a range or
// a list of sample cells.
type MetaValue struct {
	Kind    MetaKind
	Number  float64
	Text    string
	Range   Range
	Samples []table.Value
}

// Number wraps a numeric statistic
func Number(f float64) MetaValue { return MetaValue{Kind: MetaNumber, Number: f} }

// Text wraps a string parameter
func Text(s string) MetaValue { return MetaValue{Kind: MetaString, Text: s} }

// Interval wraps a range
func Interval(low, high float64) MetaValue {
	return MetaValue{Kind: MetaRange, Range: Range{Low: low, High: high}}
}

// Samples wraps sample cells
func Samples(vs []table.Value) MetaValue { return MetaValue{Kind: MetaSamples, Samples: vs} }

// MarshalJSON writes the populated field only
func (m MetaValue) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case MetaNumber:
		return json.Marshal(m.Number)
	case MetaString:
		return json.Marshal(m.Text)
	case MetaRange:
		return json.Marshal(m.Range)
	case MetaSamples:
		if m.Samples == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(m.Samples)
	}
	return []byte("null"), nil
}

// UnmarshalJSON infers the kind from the JSON shape: number, string,
// {"low","high"} object or array of samples.
func (m *MetaValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*m = MetaValue{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*m = Text(s)
	case '{':
		var r Range
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return err
		}
		*m = MetaValue{Kind: MetaRange, Range: r}
	case '[':
		var vs []table.Value
		if err := json.Unmarshal(trimmed, &vs); err != nil {
			return err
		}
		*m = Samples(vs)
	default:
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return fmt.Errorf("metadata value %s: %w", trimmed, err)
		}
		*m = Number(f)
	}
	return nil
}

// Metadata holds method parameters and computed statistics for an anomaly
type Metadata map[string]MetaValue

// Float returns a numeric entry and whether it exists
func (m Metadata) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok || v.Kind != MetaNumber {
		return 0, false
	}
	return v.Number, true
}

// String returns a string entry and whether it exists
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v.Kind != MetaString {
		return "", false
	}
	return v.Text, true
}

// SampleValues returns a samples entry, or nil
func (m Metadata) SampleValues(key string) []table.Value {
	v, ok := m[key]
	if !ok || v.Kind != MetaSamples {
		return nil
	}
	return v.Samples
}

package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Value represents a typed cell with deterministic coercion
type Value struct {
	Type         ValueType  `json:"type"`
	StringVal    *string    `json:"string_val,omitempty"`
	NumericVal   *float64   `json:"numeric_val,omitempty"`
	BooleanVal   *bool      `json:"boolean_val,omitempty"`
	TimestampVal *time.Time `json:"timestamp_val,omitempty"`
	IsMissing    bool       `json:"is_missing"`
}

// ValueType defines the storage type for values
type ValueType string

const (
	ValueTypeString    ValueType = "string"
	ValueTypeNumeric   ValueType = "numeric"
	ValueTypeBoolean   ValueType = "boolean"
	ValueTypeTimestamp ValueType = "timestamp"
	ValueTypeMissing   ValueType = "missing"
)

// NewStringValue creates a string value. Empty strings are kept as values;
// use NewMissingValue for nulls.
func NewStringValue(s string) Value {
	return Value{Type: ValueTypeString, StringVal: &s}
}

// NewNumericValue creates a numeric value. NaN and ±Inf are stored as missing.
func NewNumericValue(n float64) Value {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return NewMissingValue()
	}
	return Value{Type: ValueTypeNumeric, NumericVal: &n}
}

// NewBooleanValue creates a boolean value
func NewBooleanValue(b bool) Value {
	return Value{Type: ValueTypeBoolean, BooleanVal: &b}
}

// NewTimestampValue creates a timestamp value
func NewTimestampValue(t time.Time) Value {
	return Value{Type: ValueTypeTimestamp, TimestampVal: &t}
}

// NewMissingValue creates a missing value
func NewMissingValue() Value {
	return Value{Type: ValueTypeMissing, IsMissing: true}
}

// ValueOf wraps a native Go value. nil becomes missing; unknown kinds are
// stored as their fmt representation.
func ValueOf(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return NewMissingValue()
	case Value:
		return t
	case string:
		return NewStringValue(t)
	case float64:
		return NewNumericValue(t)
	case float32:
		return NewNumericValue(float64(t))
	case int:
		return NewNumericValue(float64(t))
	case int8:
		return NewNumericValue(float64(t))
	case int16:
		return NewNumericValue(float64(t))
	case int32:
		return NewNumericValue(float64(t))
	case int64:
		return NewNumericValue(float64(t))
	case uint:
		return NewNumericValue(float64(t))
	case uint8:
		return NewNumericValue(float64(t))
	case uint16:
		return NewNumericValue(float64(t))
	case uint32:
		return NewNumericValue(float64(t))
	case uint64:
		return NewNumericValue(float64(t))
	case bool:
		return NewBooleanValue(t)
	case time.Time:
		return NewTimestampValue(t)
	case *string:
		if t == nil {
			return NewMissingValue()
		}
		return NewStringValue(*t)
	case *float64:
		if t == nil {
			return NewMissingValue()
		}
		return NewNumericValue(*t)
	case *time.Time:
		if t == nil {
			return NewMissingValue()
		}
		return NewTimestampValue(*t)
	default:
		return NewStringValue(fmt.Sprintf("%v", t))
	}
}

// String returns the string representation of the value
func (v Value) String() string {
	switch v.Type {
	case ValueTypeString:
		if v.StringVal != nil {
			return *v.StringVal
		}
	case ValueTypeNumeric:
		if v.NumericVal != nil {
			return strconv.FormatFloat(*v.NumericVal, 'f', -1, 64)
		}
	case ValueTypeBoolean:
		if v.BooleanVal != nil {
			return strconv.FormatBool(*v.BooleanVal)
		}
	case ValueTypeTimestamp:
		if v.TimestampVal != nil {
			return v.TimestampVal.Format(time.RFC3339)
		}
	case ValueTypeMissing:
		return "<missing>"
	}
	return "<invalid>"
}

// Key is the canonical form used for set membership and grouping.
// Values of different types never share a key.
func (v Value) Key() string {
	if v.IsNull() {
		return "\x00null"
	}
	return string(v.Type) + ":" + v.String()
}

// IsNull reports whether the cell holds no value
func (v Value) IsNull() bool {
	return v.IsMissing || v.Type == ValueTypeMissing || v.Type == ""
}

// IsNumeric returns true if the value represents a valid number
func (v Value) IsNumeric() bool {
	return v.Type == ValueTypeNumeric && v.NumericVal != nil
}

// IsString returns true if the value represents a valid string
func (v Value) IsString() bool {
	return v.Type == ValueTypeString && v.StringVal != nil
}

// IsBoolean returns true if the value represents a valid boolean
func (v Value) IsBoolean() bool {
	return v.Type == ValueTypeBoolean && v.BooleanVal != nil
}

// IsTimestamp returns true if the value represents a valid timestamp
func (v Value) IsTimestamp() bool {
	return v.Type == ValueTypeTimestamp && v.TimestampVal != nil
}

// AsFloat64 returns the numeric value as float64, or 0 if not numeric
func (v Value) AsFloat64() float64 {
	if v.NumericVal != nil {
		return *v.NumericVal
	}
	return 0.0
}

// AsString returns the string value, or empty string if not a string
func (v Value) AsString() string {
	if v.StringVal != nil {
		return *v.StringVal
	}
	return ""
}

// AsBoolean returns the boolean value, or false if not a boolean
func (v Value) AsBoolean() bool {
	if v.BooleanVal != nil {
		return *v.BooleanVal
	}
	return false
}

// AsTime returns the timestamp value, or the zero time if not a timestamp
func (v Value) AsTime() time.Time {
	if v.TimestampVal != nil {
		return *v.TimestampVal
	}
	return time.Time{}
}

// Native returns the underlying Go value (nil for missing)
func (v Value) Native() interface{} {
	switch {
	case v.IsNull():
		return nil
	case v.IsNumeric():
		return *v.NumericVal
	case v.IsString():
		return *v.StringVal
	case v.IsBoolean():
		return *v.BooleanVal
	case v.IsTimestamp():
		return v.TimestampVal.Format(time.RFC3339)
	}
	return nil
}

// MarshalJSON writes the natural JSON form of the cell so report samples stay readable
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// UnmarshalJSON reads the natural JSON form back. Timestamps come back as strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = ValueOf(raw)
	return nil
}

// Values is a convenience constructor for test fixtures and small reference sets
func Values(vs ...interface{}) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = ValueOf(v)
	}
	return out
}

package frame

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"dqengine/domain/core"
	"dqengine/domain/table"
)

// Column is a named slice of typed cells
type Column struct {
	Name   string
	Values []table.Value
}

// Col builds a column from native Go values (nil = missing)
func Col(name string, values ...interface{}) Column {
	return Column{Name: name, Values: table.Values(values...)}
}

// Frame is an in-memory columnar table implementing table.Dataset
type Frame struct {
	names []string
	index map[string]int
	cols  [][]table.Value
	rows  int

	// cells per column that were present in the source but unreadable as
	// the column's type, and so stored as missing
	rejected map[string]int
}

var _ table.Dataset = (*Frame)(nil)

// New builds a frame from columns of equal length with unique names
func New(columns ...Column) (*Frame, error) {
	f := &Frame{
		names: make([]string, 0, len(columns)),
		index: make(map[string]int, len(columns)),
		cols:  make([][]table.Value, 0, len(columns)),
	}

	for i, c := range columns {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := f.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		if i == 0 {
			f.rows = len(c.Values)
		} else if len(c.Values) != f.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, len(c.Values), f.rows)
		}
		f.index[c.Name] = len(f.names)
		f.names = append(f.names, c.Name)
		f.cols = append(f.cols, c.Values)
	}

	return f, nil
}

// MustNew is New for fixtures known to be well formed
func MustNew(columns ...Column) *Frame {
	f, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return f
}

// FromRows builds a frame from row maps; columns follow headers and absent keys are missing
func FromRows(headers []string, rows []map[string]interface{}) (*Frame, error) {
	columns := make([]Column, len(headers))
	for i, h := range headers {
		values := make([]table.Value, len(rows))
		for r, row := range rows {
			values[r] = table.ValueOf(row[h])
		}
		columns[i] = Column{Name: h, Values: values}
	}
	return New(columns...)
}

// SetRejected records n unreadable source cells for column; n <= 0 clears it
func (f *Frame) SetRejected(column string, n int) {
	if n <= 0 {
		delete(f.rejected, column)
		return
	}
	if f.rejected == nil {
		f.rejected = make(map[string]int)
	}
	f.rejected[column] = n
}

// Rejected returns the unreadable cell counts by column, or nil when every
// source cell was read
func (f *Frame) Rejected() map[string]int {
	if len(f.rejected) == 0 {
		return nil
	}
	out := make(map[string]int, len(f.rejected))
	for k, v := range f.rejected {
		out[k] = v
	}
	return out
}

// Len is the number of rows
func (f *Frame) Len() int { return f.rows }

// Columns lists column names in declaration order
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// HasColumn reports whether the column exists
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the cells of a column
func (f *Frame) Column(name string) ([]table.Value, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, core.NewColumnNotFoundError(name)
	}
	return f.cols[i], nil
}

// ColumnType is the most frequent non-missing type of a column
func (f *Frame) ColumnType(name string) (table.ValueType, error) {
	values, err := f.Column(name)
	if err != nil {
		return "", err
	}
	counts := make(map[table.ValueType]int)
	for _, v := range values {
		if !v.IsNull() {
			counts[v.Type]++
		}
	}
	best, bestCount := table.ValueTypeMissing, 0
	for _, t := range []table.ValueType{table.ValueTypeNumeric, table.ValueTypeTimestamp, table.ValueTypeBoolean, table.ValueTypeString} {
		if counts[t] > bestCount {
			best, bestCount = t, counts[t]
		}
	}
	return best, nil
}

// NullCount counts missing cells in a column
func (f *Frame) NullCount(column string) (int, error) {
	values, err := f.Column(column)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range values {
		if v.IsNull() {
			n++
		}
	}
	return n, nil
}

// NullCells counts missing cells across all columns
func (f *Frame) NullCells() int {
	total := 0
	for _, name := range f.names {
		n, _ := f.NullCount(name)
		total += n
	}
	return total
}

// Floats returns the non-missing numeric cells of a column
func (f *Frame) Floats(column string) ([]float64, error) {
	values, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		if !v.IsNumeric() {
			return nil, core.NewColumnTypeError(core.ErrNotNumeric, column)
		}
		out = append(out, v.AsFloat64())
	}
	return out, nil
}

// Filter selects non-missing cells for which pred holds
func (f *Frame) Filter(column string, pred func(table.Value) bool) (table.Mask, error) {
	values, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	mask := table.NewMask(len(values))
	for i, v := range values {
		if !v.IsNull() && pred(v) {
			mask[i] = true
		}
	}
	return mask, nil
}

// Contains selects string cells where re finds a match
func (f *Frame) Contains(column string, re *regexp.Regexp, nullAsFalse bool) (table.Mask, error) {
	values, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	mask := table.NewMask(len(values))
	for i, v := range values {
		if v.IsNull() {
			mask[i] = !nullAsFalse
			continue
		}
		if !v.IsString() {
			return nil, core.NewColumnTypeError(core.ErrNotString, column)
		}
		mask[i] = re.MatchString(v.AsString())
	}
	return mask, nil
}

// Sample returns up to n selected cells in row order
func (f *Frame) Sample(column string, mask table.Mask, n int) ([]table.Value, error) {
	values, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	if len(mask) != len(values) {
		return nil, core.NewMaskLengthError(len(mask), len(values))
	}
	out := make([]table.Value, 0, n)
	for _, i := range mask.Indices() {
		if len(out) >= n {
			break
		}
		out = append(out, values[i])
	}
	return out, nil
}

// DistinctSample returns up to n distinct selected cells in order of first appearance
func (f *Frame) DistinctSample(column string, mask table.Mask, n int) ([]table.Value, error) {
	values, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	if len(mask) != len(values) {
		return nil, core.NewMaskLengthError(len(mask), len(values))
	}
	seen := make(map[string]struct{})
	out := make([]table.Value, 0, n)
	for _, i := range mask.Indices() {
		if len(out) >= n {
			break
		}
		key := values[i].Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, values[i])
	}
	return out, nil
}

// Deduplicate returns the retained row indices, ascending, when rows are made
// unique on columns. Missing cells compare equal to each other.
func (f *Frame) Deduplicate(columns []string, keep table.Keep) ([]int, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("deduplicate requires at least one column")
	}
	cols := make([][]table.Value, len(columns))
	for i, name := range columns {
		values, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = values
	}

	retained := make(map[string]int, f.rows)
	var key strings.Builder
	for r := 0; r < f.rows; r++ {
		key.Reset()
		for c := range cols {
			key.WriteString(cols[c][r].Key())
			key.WriteByte(0x1f)
		}
		k := key.String()
		if _, seen := retained[k]; seen && keep != table.KeepLast {
			continue
		}
		retained[k] = r
	}

	out := make([]int, 0, len(retained))
	for _, r := range retained {
		out = append(out, r)
	}
	sort.Ints(out)
	return out, nil
}

package table

import "regexp"

// Keep selects which row of a duplicate group Deduplicate retains
type Keep string

const (
	KeepFirst Keep = "first"
	KeepLast  Keep = "last"
)

// Dataset is the read-only tabular contract the quality engines evaluate.
// Column-level methods return core.ErrColumnNotFound for unknown columns and
// a type error when the column's cells do not support the operation.
// Aggregates ignore missing cells.
type Dataset interface {
	// Len is the number of rows
	Len() int
	// Columns lists column names in their declared order
	Columns() []string
	HasColumn(name string) bool
	// ColumnType is the dominant non-missing type of a column
	ColumnType(name string) (ValueType, error)

	NullCount(column string) (int, error)
	// NullCells is the horizontal sum of per-column null counts
	NullCells() int

	// Column returns the typed cells of a column; callers must not modify it
	Column(name string) ([]Value, error)
	// Floats returns the non-missing numeric cells of a column
	Floats(column string) ([]float64, error)

	// Filter evaluates pred on every non-missing cell; missing cells are never selected
	Filter(column string, pred func(Value) bool) (Mask, error)
	// Contains selects cells matching re. Missing cells are selected only when nullAsFalse is false.
	Contains(column string, re *regexp.Regexp, nullAsFalse bool) (Mask, error)

	Sum(column string) (float64, error)
	Mean(column string) (float64, error)
	// StdDev is the sample standard deviation (n-1 denominator)
	StdDev(column string) (float64, error)
	Median(column string) (float64, error)
	// MAD is the median absolute deviation from the median
	MAD(column string) (float64, error)
	// Quantile at fraction q in [0,1] with linear interpolation
	Quantile(column string, q float64) (float64, error)

	// Sample returns up to n cells of the selected rows, in row order
	Sample(column string, mask Mask, n int) ([]Value, error)
	// DistinctSample returns up to n distinct cells of the selected rows, in order of first appearance
	DistinctSample(column string, mask Mask, n int) ([]Value, error)

	// Deduplicate returns the row indices retained when rows are made unique on columns
	Deduplicate(columns []string, keep Keep) ([]int, error)
}

package core

import (
	"errors"
	"fmt"
)

// Dataset errors shared by every ports.Dataset implementation
var (
	ErrColumnNotFound = errors.New("column not found")
	ErrNotNumeric     = errors.New("column is not numeric")
	ErrNotString      = errors.New("column is not a string column")
	ErrNotTimestamp   = errors.New("column is not a timestamp column")
	ErrMaskLength     = errors.New("mask length does not match row count")
	ErrEmptyColumn    = errors.New("column has no non-null values")
)

// NewColumnNotFoundError names the missing column
func NewColumnNotFoundError(column string) error {
	return fmt.Errorf("%w: %q", ErrColumnNotFound, column)
}

// NewColumnTypeError names the column whose cells do not match the requested type
func NewColumnTypeError(kind error, column string) error {
	return fmt.Errorf("%w: %q", kind, column)
}

// NewMaskLengthError reports a mask/row-count mismatch
func NewMaskLengthError(got, want int) error {
	return fmt.Errorf("%w: got %d, want %d", ErrMaskLength, got, want)
}

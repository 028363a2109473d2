package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given code
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Predefined error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeRuleInvalid       = "RULE_INVALID"
	CodeReferenceNotFound = "REFERENCE_NOT_FOUND"
	CodeEvaluationFailed  = "EVALUATION_FAILED"
	CodeDatasetError      = "DATASET_ERROR"
	CodeDataQuality       = "DATA_QUALITY"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeCanceled          = "CANCELED"
	CodeNotFound          = "NOT_FOUND"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func RuleInvalid(rule, reason string) *AppError {
	return Newf(CodeRuleInvalid, "rule %q: %s", rule, reason)
}

func ReferenceNotFound(rule, reference string) *AppError {
	return Newf(CodeReferenceNotFound, "rule %q: reference set %q is not registered", rule, reference)
}

func EvaluationFailed(check string, cause error) *AppError {
	return &AppError{
		Code:    CodeEvaluationFailed,
		Message: fmt.Sprintf("%s evaluation failed", check),
		Cause:   cause,
	}
}

func DatasetError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatasetError, Message: message, Cause: cause}
}

// Canceled reports work abandoned because its context ended
func Canceled(what string, cause error) *AppError {
	return &AppError{Code: CodeCanceled, Message: what + " canceled", Cause: cause}
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// DataQualityError is returned when a quality gate rejects a dataset
type DataQualityError struct {
	Table      string
	Violations []string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality gate failed for %s: %s", e.Table, strings.Join(e.Violations, "; "))
}

// Code lets DataQualityError participate in code-based handling
func (e *DataQualityError) Code() string {
	return CodeDataQuality
}

// IsDataQualityError checks whether err is or wraps a DataQualityError
func IsDataQualityError(err error) bool {
	var dq *DataQualityError
	return stderrors.As(err, &dq)
}

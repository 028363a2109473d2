package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := RuleInvalid("email_format", "invalid pattern")
	wrapped := Wrapf(base, "adding rule %d", 3)

	assert.Equal(t, CodeRuleInvalid, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Contains(t, wrapped.Error(), "email_format")
}

func TestCanceledKeepsContextError(t *testing.T) {
	err := Wrap(Canceled("validation", context.DeadlineExceeded), "suite orders")
	assert.Equal(t, CodeCanceled, GetCode(err))
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "suite orders: validation canceled: context deadline exceeded", err.Error())
}

func TestWrapPlainError(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), "loading")
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", ReferenceNotFound("fk", "customers"))
	assert.True(t, HasCode(err, CodeReferenceNotFound))
	assert.True(t, IsAppError(err))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeDatasetError, fmt.Errorf("bad csv"))
	assert.Equal(t, CodeDatasetError, GetCode(err))
	assert.Equal(t, "bad csv", err.Error())
}

func TestDataQualityError(t *testing.T) {
	err := fmt.Errorf("gate: %w", &DataQualityError{
		Table:      "orders",
		Violations: []string{"2 critical anomalies", "quality score 0.40 below 0.90"},
	})

	assert.True(t, IsDataQualityError(err))
	assert.Contains(t, err.Error(), "orders")
	assert.Contains(t, err.Error(), "2 critical anomalies; quality score")
}

package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := NewConfigurationError(CodeInvalidScale, "proposal scale must be positive")
	assert.Equal(t, "INVALID_PROPOSAL_SCALE: proposal scale must be positive", err.Error())

	err.WithDetails("got -1")
	assert.Equal(t, "INVALID_PROPOSAL_SCALE: proposal scale must be positive - got -1", err.Error())

	err.WithContext("scale", -1.0)
	assert.Equal(t, -1.0, err.Context["scale"])
}

func TestCategoryHelpers(t *testing.T) {
	cfg := NewConfigurationError(CodeInvalidCorrelation, "|rho| must be < 1")
	eval := NewEvaluationError(CodeDensityNaN, "NaN density")

	assert.True(t, IsConfigurationError(cfg))
	assert.False(t, IsEvaluationError(cfg))
	assert.True(t, IsEvaluationError(eval))
	assert.False(t, IsConfigurationError(eval))

	wrapped := fmt.Errorf("chain 3: %w", eval)
	assert.True(t, IsEvaluationError(wrapped))

	assert.False(t, IsConfigurationError(errors.New("plain")))
	assert.False(t, IsConfigurationError(nil))
}

func TestAppErrorIsMatchesTypeAndCode(t *testing.T) {
	a := NewConfigurationError(CodeInvalidBurnIn, "first")
	b := NewConfigurationError(CodeInvalidBurnIn, "second")
	c := NewConfigurationError(CodeInvalidChains, "third")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestWrapErrorKeepsCause(t *testing.T) {
	err := WrapError(context.Canceled, ErrorTypeSampling, CodeRunCancelled, "run cancelled")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 500, GetHTTPStatus(err))
}

func TestNotFound(t *testing.T) {
	err := NewNotFoundError("run", "abc")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 404, GetHTTPStatus(err))
	assert.Equal(t, "DATA_NOT_FOUND: run 'abc' not found", err.Error())

	target := WrapError(ErrTargetNotFound, ErrorTypeConfiguration, CodeUnknownTarget, "unknown target")
	assert.True(t, IsNotFound(target))
	assert.Equal(t, 400, GetHTTPStatus(target))

	assert.False(t, IsNotFound(NewStorageError(CodeWriteFailed, "disk full")))
}

func TestGetHTTPStatus(t *testing.T) {
	assert.Equal(t, 400, GetHTTPStatus(NewConfigurationError(CodeInvalidInput, "bad")))
	assert.Equal(t, 422, GetHTTPStatus(NewEvaluationError(CodeDensityNegative, "negative")))
	assert.Equal(t, 500, GetHTTPStatus(NewInternalError("boom")))
	assert.Equal(t, 500, GetHTTPStatus(errors.New("plain")))
}

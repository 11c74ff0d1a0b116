package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing configuration")
	ErrConfigurationLoad    = errors.New("failed to load configuration")

	// Evaluation errors
	ErrInvalidEvaluation = errors.New("invalid target evaluation")

	// Sampling errors
	ErrSamplerNotFound = errors.New("sampler not found")
	ErrTargetNotFound  = errors.New("target density not found")
	ErrRunCancelled    = errors.New("sampling run cancelled")

	// Storage errors
	ErrStorageConnectionFailed = errors.New("storage connection failed")
	ErrStorageWriteFailed      = errors.New("storage write failed")
	ErrStorageReadFailed       = errors.New("storage read failed")
	ErrDataNotFound            = errors.New("data not found")

	// Internal errors
	ErrInternal       = errors.New("internal error")
	ErrNotImplemented = errors.New("not implemented")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeEvaluation    ErrorType = "evaluation"
	ErrorTypeSampling      ErrorType = "sampling"
	ErrorTypeStorage       ErrorType = "storage"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Cause:      sentinelFor(errType),
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Cause:      err,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// NewConfigurationError reports parameters rejected before any iteration runs.
func NewConfigurationError(code, message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, code, message)
}

// NewEvaluationError reports a target density or conditional sampler that
// produced an invalid value during a step.
func NewEvaluationError(code, message string) *AppError {
	return NewAppError(ErrorTypeEvaluation, code, message)
}

// NewSamplingError creates a sampling error
func NewSamplingError(code, message string) *AppError {
	return NewAppError(ErrorTypeSampling, code, message)
}

// NewStorageError creates a storage error
func NewStorageError(code, message string) *AppError {
	return NewAppError(ErrorTypeStorage, code, message)
}

// NewNotFoundError reports a missing stored object. It matches ErrDataNotFound.
func NewNotFoundError(kind, id string) *AppError {
	err := WrapError(ErrDataNotFound, ErrorTypeStorage, CodeDataNotFound, fmt.Sprintf("%s '%s' not found", kind, id))
	err.HTTPStatus = 404
	return err
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, CodeInternal, message)
}

// IsConfigurationError reports whether err is, or wraps, a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsEvaluationError reports whether err is, or wraps, an evaluation error.
func IsEvaluationError(err error) bool {
	return errors.Is(err, ErrInvalidEvaluation)
}

// IsNotFound reports whether err signals a missing run, target or sampler.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDataNotFound) ||
		errors.Is(err, ErrTargetNotFound) ||
		errors.Is(err, ErrSamplerNotFound)
}

// GetHTTPStatus returns the HTTP status carried by err, 500 otherwise.
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return 500
}

func sentinelFor(errType ErrorType) error {
	switch errType {
	case ErrorTypeConfiguration:
		return ErrInvalidConfiguration
	case ErrorTypeEvaluation:
		return ErrInvalidEvaluation
	case ErrorTypeInternal:
		return ErrInternal
	default:
		return nil
	}
}

// getDefaultHTTPStatus returns the default HTTP status for an error type
func getDefaultHTTPStatus(errType ErrorType) int {
	switch errType {
	case ErrorTypeConfiguration:
		return 400
	case ErrorTypeEvaluation:
		return 422
	case ErrorTypeStorage, ErrorTypeSampling, ErrorTypeInternal:
		return 500
	default:
		return 500
	}
}

// ErrorResponse represents an error response for APIs
type ErrorResponse struct {
	Error     *AppError `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// Error codes for different error scenarios
const (
	// Configuration error codes
	CodeInvalidScale       = "INVALID_PROPOSAL_SCALE"
	CodeInvalidCorrelation = "INVALID_CORRELATION"
	CodeInvalidIterations  = "INVALID_ITERATIONS"
	CodeInvalidBurnIn      = "INVALID_BURN_IN"
	CodeInvalidState       = "INVALID_INITIAL_STATE"
	CodeInvalidDimension   = "INVALID_DIMENSION"
	CodeInvalidChains      = "INVALID_CHAIN_COUNT"
	CodeMissingTarget      = "MISSING_TARGET"
	CodeInvalidInput       = "INVALID_INPUT"

	// Evaluation error codes
	CodeDensityNaN      = "DENSITY_NAN"
	CodeDensityNegative = "DENSITY_NEGATIVE"
	CodeDensityInfinite = "DENSITY_INFINITE"
	CodeDrawInvalid     = "CONDITIONAL_DRAW_INVALID"

	// Sampling error codes
	CodeRunCancelled       = "RUN_CANCELLED"
	CodeUnsupportedSampler = "UNSUPPORTED_SAMPLER"
	CodeUnknownTarget      = "UNKNOWN_TARGET"

	// Storage error codes
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeDataNotFound     = "DATA_NOT_FOUND"
	CodeWriteFailed      = "WRITE_FAILED"
	CodeReadFailed       = "READ_FAILED"

	// Internal
	CodeInternal = "INTERNAL_ERROR"
)

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error.
type ErrorType string

const (
	ErrorTypeInvalidBuffer ErrorType = "INVALID_BUFFER_SIZE"
	ErrorTypeDetector      ErrorType = "DETECTOR_ERROR"
	ErrorTypeShutdown      ErrorType = "SHUTDOWN"
	ErrorTypeValidation    ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeInternal      ErrorType = "INTERNAL_ERROR"
)

// AppError represents an application error with additional context.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCode adds an error code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// New creates a new AppError.
func New(errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error.
func Wrap(err error, errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Common error constructors.

// NewInvalidBufferError reports a converter input whose length does not
// match the expected size for its stated dimensions and format. The same
// buffer must not be retried.
func NewInvalidBufferError(format string, want, got int) *AppError {
	return New(ErrorTypeInvalidBuffer,
		fmt.Sprintf("%s buffer has %d bytes, expected %d", format, got, want),
		http.StatusBadRequest).
		WithDetails(map[string]interface{}{"expected": want, "actual": got})
}

// NewInvalidBufferSize reports a buffer whose length breaks a structural
// constraint that is not a single expected byte count.
func NewInvalidBufferSize(message string) *AppError {
	return New(ErrorTypeInvalidBuffer, message, http.StatusBadRequest)
}

// NewDetectorError wraps an opaque detector failure. Delivered to the
// caller like a result; never retried by the pipeline.
func NewDetectorError(err error) *AppError {
	return Wrap(err, ErrorTypeDetector, "detection failed", http.StatusInternalServerError)
}

// NewShutdownError marks work arriving after shutdown. Steady-state
// teardown behavior, not surfaced to callers.
func NewShutdownError(what string) *AppError {
	return New(ErrorTypeShutdown, fmt.Sprintf("%s after shutdown", what), http.StatusConflict)
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *AppError {
	return New(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// WrapInternalError wraps an error as internal server error.
func WrapInternalError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeInternal, message, http.StatusInternalServerError)
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error.
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsInvalidBuffer reports whether err is an invalid-buffer-size error.
func IsInvalidBuffer(err error) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Type == ErrorTypeInvalidBuffer
}

// IsDetectorError reports whether err is a detector failure.
func IsDetectorError(err error) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Type == ErrorTypeDetector
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := New(ErrorTypeValidation, "bad input", http.StatusBadRequest)
	assert.Equal(t, "VALIDATION_ERROR: bad input", err.Error())

	wrapped := Wrap(errors.New("boom"), ErrorTypeInternal, "processing failed", http.StatusInternalServerError)
	assert.Equal(t, "INTERNAL_ERROR: processing failed (caused by: boom)", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, ErrorTypeDetector, "detection failed", http.StatusInternalServerError)

	assert.ErrorIs(t, err, cause)
}

func TestNewInvalidBufferError(t *testing.T) {
	err := NewInvalidBufferError("nv21", 460800, 1024)

	assert.Equal(t, ErrorTypeInvalidBuffer, err.Type)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Contains(t, err.Message, "460800")
	assert.Contains(t, err.Message, "1024")
	assert.Equal(t, 460800, err.Details["expected"])
	assert.Equal(t, 1024, err.Details["actual"])
	assert.True(t, IsInvalidBuffer(err))
	assert.False(t, IsDetectorError(err))
}

func TestNewDetectorError(t *testing.T) {
	cause := errors.New("model not loaded")
	err := NewDetectorError(cause)

	assert.True(t, IsDetectorError(err))
	assert.ErrorIs(t, err, cause)
}

func TestNewShutdownError(t *testing.T) {
	err := NewShutdownError("submit")
	assert.Equal(t, ErrorTypeShutdown, err.Type)
	assert.Contains(t, err.Message, "submit after shutdown")
}

func TestGetAppError_WrappedChain(t *testing.T) {
	inner := NewValidationError("bad plane stride")
	outer := fmt.Errorf("converting frame: %w", inner)

	appErr, ok := GetAppError(outer)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeValidation, appErr.Type)

	assert.True(t, IsAppError(outer))
	assert.False(t, IsAppError(errors.New("plain")))
}

func TestWithCodeAndDetails(t *testing.T) {
	err := NewInternalError("oops").
		WithCode("E100").
		WithDetails(map[string]interface{}{"k": "v"})

	assert.Equal(t, "E100", err.Code)
	assert.Equal(t, "v", err.Details["k"])
}

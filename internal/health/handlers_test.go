package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vispipe/vispipe/internal/logger"
)

func TestHandleHealth_OK(t *testing.T) {
	m := NewManager(logger.NewNullLogger())
	m.Register(&stubChecker{name: "pipeline"})
	h := NewHandler(m)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusOK, resp.Status)
	require.Contains(t, resp.Checks, "pipeline")
	assert.NotEmpty(t, resp.Uptime)
}

func TestHandleHealth_Down(t *testing.T) {
	m := NewManager(logger.NewNullLogger())
	m.Register(&stubChecker{name: "sink_redis", err: errors.New("refused")})
	h := NewHandler(m)

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleReady(t *testing.T) {
	m := NewManager(logger.NewNullLogger())
	h := NewHandler(m)

	// No checks have run yet; the service is not ready.
	rec := httptest.NewRecorder()
	h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	m.Register(&stubChecker{name: "a"})
	m.RunChecks(context.Background())
	rec = httptest.NewRecorder()
	h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleLive(t *testing.T) {
	h := NewHandler(NewManager(logger.NewNullLogger()))

	rec := httptest.NewRecorder()
	h.HandleLive(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp["status"])
}

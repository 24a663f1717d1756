package server

import (
	"encoding/json"
	"net/http"

	"github.com/vispipe/vispipe/internal/pipeline"
	"github.com/vispipe/vispipe/pkg/version"
)

// handleVersion handles the /version endpoint
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.GetInfo()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if err := json.NewEncoder(w).Encode(versionInfo); err != nil {
		s.logger.WithError(err).Error("Failed to encode version response")
		s.errorHandler.HandleError(w, r, err)
	}
}

// statsResponse is the /api/v1/stats payload.
type statsResponse struct {
	State   string                `json:"state"`
	Latency pipeline.LatencyStats `json:"latency"`
}

// handleStats reports the pipeline's latency aggregates and state.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	response := statsResponse{
		State:   s.processor.State().String(),
		Latency: s.processor.Stats(),
	}
	if err := s.writeJSON(w, http.StatusOK, response); err != nil {
		s.logger.WithError(err).Error("Failed to encode stats response")
	}
}

// handleStatsReset zeroes the per-detector aggregates, as a client does
// when it swaps detection models.
func (s *Server) handleStatsReset(w http.ResponseWriter, r *http.Request) {
	s.processor.ResetStats()
	response := statsResponse{
		State:   s.processor.State().String(),
		Latency: s.processor.Stats(),
	}
	if err := s.writeJSON(w, http.StatusOK, response); err != nil {
		s.logger.WithError(err).Error("Failed to encode stats response")
	}
}

// writeJSON is a helper to write JSON responses
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

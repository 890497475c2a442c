package server

import (
	"net/http"
	"strings"

	"dubsy/internal/validation"
)

var features = []string{"audio_extraction", "transcription", "translation", "subtitle_integration"}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status       string          `json:"status"`
	Service      string          `json:"service"`
	Version      string          `json:"version"`
	Features     []string        `json:"features"`
	MaxUpload    string          `json:"max_upload"`
	Dependencies map[string]bool `json:"dependencies"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	statuses := s.depCheck()
	dependencies := make(map[string]bool, len(statuses))
	for _, status := range statuses {
		dependencies[strings.ToLower(status.Name)] = status.Available
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "healthy",
		Service:      ServiceName,
		Version:      ServiceVersion,
		Features:     features,
		MaxUpload:    validation.LimitDescription(s.cfg.Server.MaxUploadBytes),
		Dependencies: dependencies,
	})
}

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// writeJSON serializes v with the shared response headers.
func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	s.setCORSHeaders(w)
	json.NewEncoder(w).Encode(v)
}

// requirePost guards mutation endpoints.
func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// handleGetState returns the current display snapshot.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.controller.Display())
}

// handleToggle requests play if paused, pause if playing.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.controller.TogglePlayPause()
	s.writeJSON(w, s.controller.Display())
}

// handleNext skips forward with wraparound.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.controller.Next()
	s.writeJSON(w, s.controller.Display())
}

// handlePrevious skips backward with wraparound.
func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.controller.Previous()
	s.writeJSON(w, s.controller.Display())
}

// handleVolume sets the volume from a slider value in [0, 100].
func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		Volume *float64 `json:"volume"` // slider range 0-100
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Volume == nil {
		http.Error(w, "Invalid JSON: volume required", http.StatusBadRequest)
		return
	}

	s.controller.SetVolume(*req.Volume / 100)
	s.writeJSON(w, s.controller.Display())
}

// handleMute toggles mute; unmuting restores the fixed default volume.
func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.controller.ToggleMute()
	s.writeJSON(w, s.controller.Display())
}

// handleSeek commits a scrub position as a fraction of the duration.
func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		Fraction *float64 `json:"fraction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Fraction == nil {
		http.Error(w, "Invalid JSON: fraction required", http.StatusBadRequest)
		return
	}

	s.controller.SeekTo(*req.Fraction)
	s.writeJSON(w, s.controller.Display())
}

// handleSeekStart marks the beginning of a scrub-handle drag.
func (s *Server) handleSeekStart(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.controller.BeginSeekDrag()
	s.writeJSON(w, map[string]string{"status": "dragging"})
}

// handleSeekEnd releases the scrub handle.
func (s *Server) handleSeekEnd(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.controller.EndSeekDrag()
	s.writeJSON(w, map[string]string{"status": "released"})
}

// handleGetPlaylist returns the fixed playlist.
func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.controller.Playlist())
}

// handleGetHistory returns recent play-history entries, newest first.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "History disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := s.store.Recent(limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read history")
		http.Error(w, "Failed to read history", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, entries)
}

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	History   string    `json:"history"`
	Tracks    int       `json:"trackCount"`
	Playing   bool      `json:"isPlaying"`
}

// handleHealthCheck returns basic liveness plus dependency checks.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		History:   "ok",
		Tracks:    s.controller.Playlist().Len(),
		Playing:   s.controller.IsPlaying(),
	}

	if s.store == nil {
		health.History = "disabled"
	} else if err := s.store.Ping(); err != nil {
		health.Status = "unhealthy"
		health.History = "error"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(health)
		return
	}

	s.writeJSON(w, health)
}

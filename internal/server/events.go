package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// handleEvents streams display snapshots as server-sent events. Each
// subscriber gets its own buffered channel from the controller; a consumer
// that stops reading is dropped rather than allowed to stall playback.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	s.setCORSHeaders(w)

	subscriberID := uuid.New().String()
	updates := s.controller.Subscribe()
	defer s.controller.Unsubscribe(updates)

	s.logger.WithField("subscriber", subscriberID).Debug("Event stream opened")
	defer s.logger.WithField("subscriber", subscriberID).Debug("Event stream closed")

	// Send the current state immediately so the client can render without
	// waiting for the next change.
	if err := writeEvent(w, s.controller.Display()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, snapshot); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

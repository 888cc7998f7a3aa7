package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cadenza/internal/config"
	"cadenza/internal/playback"
	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// stubPrimitive satisfies playback.Primitive with immediate play success.
type stubPrimitive struct {
	volume   float64
	duration float64
	position float64
	events   chan playback.Event
}

func newStubPrimitive() *stubPrimitive {
	return &stubPrimitive{volume: 1.0, events: make(chan playback.Event, 8)}
}

func (p *stubPrimitive) SetSource(string) { p.position = 0 }
func (p *stubPrimitive) Play() <-chan error {
	ch := make(chan error, 1)
	ch <- nil
	return ch
}
func (p *stubPrimitive) Pause()                        {}
func (p *stubPrimitive) Position() float64             { return p.position }
func (p *stubPrimitive) SetPosition(seconds float64)   { p.position = seconds }
func (p *stubPrimitive) Volume() float64               { return p.volume }
func (p *stubPrimitive) SetVolume(v float64)           { p.volume = v }
func (p *stubPrimitive) Duration() float64             { return p.duration }
func (p *stubPrimitive) Events() <-chan playback.Event { return p.events }
func (p *stubPrimitive) Close() error                  { return nil }

func createTestServer(t *testing.T) (*Server, *stubPrimitive) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	prim := newStubPrimitive()
	pl := &models.Playlist{
		Name: "test",
		Tracks: []models.Track{
			{Title: "One", Artist: "A", Source: "/music/one.mp3", Duration: 100},
			{Title: "Two", Artist: "B", Source: "/music/two.mp3", Duration: 200},
			{Title: "Three", Artist: "C", Source: "/music/three.mp3", Duration: 300},
		},
	}
	controller, err := playback.NewController(prim, pl, logger)
	if err != nil {
		t.Fatalf("NewController() failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.History.Enabled = false
	cfg.Player.WatchSources = false

	return New(cfg, controller, nil, logger), prim
}

func decodeDisplay(t *testing.T, body *httptest.ResponseRecorder) playback.Display {
	t.Helper()
	var d playback.Display
	if err := json.NewDecoder(body.Body).Decode(&d); err != nil {
		t.Fatalf("failed to decode display: %v", err)
	}
	return d
}

func TestGetState(t *testing.T) {
	s, _ := createTestServer(t)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/player/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	d := decodeDisplay(t, rec)
	if d.Title != "One" || d.Index != 0 || d.Playing {
		t.Errorf("initial state = %+v, want track One, index 0, stopped", d)
	}
	if d.Elapsed != "0:00" || d.Total != "1:40" {
		t.Errorf("initial labels = %s/%s, want 0:00/1:40", d.Elapsed, d.Total)
	}
}

func TestTransportEndpointsRequirePost(t *testing.T) {
	s, _ := createTestServer(t)

	paths := []string{
		"/api/player/toggle",
		"/api/player/next",
		"/api/player/previous",
		"/api/player/volume",
		"/api/player/mute",
		"/api/player/seek",
		"/api/player/seek/start",
		"/api/player/seek/end",
	}
	for _, path := range paths {
		rec := httptest.NewRecorder()
		s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s status = %d, want 405", path, rec.Code)
		}
	}
}

func TestNextAndPreviousWrapAround(t *testing.T) {
	s, _ := createTestServer(t)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/player/previous", nil))
	if d := decodeDisplay(t, rec); d.Index != 2 {
		t.Errorf("index after previous from 0 = %d, want 2", d.Index)
	}

	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/player/next", nil))
	if d := decodeDisplay(t, rec); d.Index != 0 {
		t.Errorf("index after next from 2 = %d, want 0", d.Index)
	}
}

func TestVolumeEndpointMapsSliderRange(t *testing.T) {
	tests := []struct {
		body     string
		want     float64
		wantCode int
	}{
		{`{"volume": 0}`, 0, http.StatusOK},
		{`{"volume": 35}`, 0.35, http.StatusOK},
		{`{"volume": 100}`, 1.0, http.StatusOK},
		{`{"volume": 250}`, 1.0, http.StatusOK}, // clamped by the controller
		{`{}`, 0, http.StatusBadRequest},
		{`not json`, 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		s, prim := createTestServer(t)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/player/volume", strings.NewReader(tt.body))
		s.mux.ServeHTTP(rec, req)

		if rec.Code != tt.wantCode {
			t.Errorf("volume body %q status = %d, want %d", tt.body, rec.Code, tt.wantCode)
			continue
		}
		if tt.wantCode == http.StatusOK && prim.volume != tt.want {
			t.Errorf("volume body %q set primitive volume %v, want %v", tt.body, prim.volume, tt.want)
		}
	}
}

func TestMuteEndpointRoundTrip(t *testing.T) {
	s, prim := createTestServer(t)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/player/mute", nil))
	if prim.volume != 0 {
		t.Errorf("volume after mute = %v, want 0", prim.volume)
	}

	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/player/mute", nil))
	if prim.volume != 0.7 {
		t.Errorf("volume after unmute = %v, want 0.7", prim.volume)
	}
}

func TestSeekEndpoint(t *testing.T) {
	s, prim := createTestServer(t)

	// Unknown duration: seek is a silent no-op.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/player/seek", strings.NewReader(`{"fraction": 0.5}`))
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || prim.position != 0 {
		t.Errorf("seek with unknown duration: code=%d position=%v, want 200 and 0", rec.Code, prim.position)
	}

	prim.duration = 120
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/player/seek", strings.NewReader(`{"fraction": 0.5}`))
	s.mux.ServeHTTP(rec, req)
	if prim.position != 60 {
		t.Errorf("seek to 0.5 of 120s moved position to %v, want 60", prim.position)
	}
}

func TestPlaylistEndpoint(t *testing.T) {
	s, _ := createTestServer(t)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/playlist", nil))

	var pl models.Playlist
	if err := json.NewDecoder(rec.Body).Decode(&pl); err != nil {
		t.Fatalf("failed to decode playlist: %v", err)
	}
	if pl.Len() != 3 || pl.Tracks[1].Title != "Two" {
		t.Errorf("playlist = %+v, want the three test tracks", pl)
	}
}

func TestHistoryEndpointDisabled(t *testing.T) {
	s, _ := createTestServer(t)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("history status with store disabled = %d, want 404", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s, _ := createTestServer(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	s.config.Server.APIPasswordHash = string(hash)
	handler := s.authMiddleware(s.mux)

	t.Run("missing token is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/player/state", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/player/state", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("correct token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/player/state", nil)
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("health bypasses auth", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("health status = %d, want 200", rec.Code)
		}
	})
}

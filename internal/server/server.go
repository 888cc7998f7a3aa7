package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cadenza/internal/config"
	"cadenza/internal/history"
	"cadenza/internal/metadata"
	"cadenza/internal/playback"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Server exposes the transport controls over HTTP: play/pause, previous and
// next, volume and mute, the scrub bar, and a state stream for UIs to
// render from.
type Server struct {
	config     *config.Config
	controller *playback.Controller
	store      *history.Store // nil when history is disabled
	extractor  *metadata.Extractor
	watcher    *fsnotify.Watcher
	logger     *logrus.Logger
	mux        *http.ServeMux
	httpServer *http.Server
}

// New creates a control server around the given controller.
func New(cfg *config.Config, controller *playback.Controller, store *history.Store, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	s := &Server{
		config:     cfg,
		controller: controller,
		store:      store,
		extractor:  metadata.NewExtractor(cfg.Player.SupportedFormats),
		logger:     logger,
		mux:        http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	if s.config.Player.WatchSources {
		if err := s.startSourceWatcher(); err != nil {
			s.logger.WithError(err).Warn("Could not start source watcher")
		}
	}

	s.httpServer = &http.Server{
		Addr:        s.config.GetAddress(),
		Handler:     s.requestLoggingMiddleware(s.authMiddleware(s.mux)),
		ReadTimeout: time.Duration(s.config.Server.ReadTimeout) * time.Second,
	}

	s.logger.WithField("address", fmt.Sprintf("http://%s", s.config.GetAddress())).Info("Control server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.config.Server.StaticDir))))

	s.mux.HandleFunc("/api/player/state", s.handleGetState)
	s.mux.HandleFunc("/api/player/toggle", s.handleToggle)
	s.mux.HandleFunc("/api/player/next", s.handleNext)
	s.mux.HandleFunc("/api/player/previous", s.handlePrevious)
	s.mux.HandleFunc("/api/player/volume", s.handleVolume)
	s.mux.HandleFunc("/api/player/mute", s.handleMute)
	s.mux.HandleFunc("/api/player/seek", s.handleSeek)
	s.mux.HandleFunc("/api/player/seek/start", s.handleSeekStart)
	s.mux.HandleFunc("/api/player/seek/end", s.handleSeekEnd)
	s.mux.HandleFunc("/api/player/events", s.handleEvents)

	s.mux.HandleFunc("/api/playlist", s.handleGetPlaylist)
	s.mux.HandleFunc("/api/history", s.handleGetHistory)
	s.mux.HandleFunc("/health", s.handleHealthCheck)
}

// Shutdown gracefully shuts down the control server.
func (s *Server) Shutdown() {
	s.logger.Info("Shutting down control server...")

	s.stopSourceWatcher()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.WithError(err).Warn("HTTP shutdown did not complete cleanly")
		}
	}

	s.logger.Info("Control server shutdown complete")
}

package server

import (
	"os"
	"path/filepath"
	"testing"

	"cadenza/internal/config"
	"cadenza/internal/playback"
	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

func createWatcherTestServer(t *testing.T, tracks []models.Track) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	controller, err := playback.NewController(newStubPrimitive(), &models.Playlist{Name: "test", Tracks: tracks}, logger)
	if err != nil {
		t.Fatalf("NewController() failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.History.Enabled = false

	return New(cfg, controller, nil, logger)
}

func TestSourceWatcherNoWatchableDirectories(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")
	s := createWatcherTestServer(t, []models.Track{
		{Title: "One", Artist: "A", Source: filepath.Join(missing, "one.mp3"), Duration: 100},
	})

	// Must tolerate repeated starts without a live watcher and without
	// leaving a goroutine reading a discarded one.
	for i := 0; i < 10; i++ {
		if err := s.startSourceWatcher(); err != nil {
			t.Fatalf("startSourceWatcher() failed: %v", err)
		}
		if s.watcher != nil {
			t.Fatal("watcher should stay nil when no source directory exists")
		}
		s.stopSourceWatcher()
	}
}

func TestSourceWatcherStartAndStop(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "one.mp3")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	s := createWatcherTestServer(t, []models.Track{
		{Title: "One", Artist: "A", Source: source, Duration: 100},
	})

	if err := s.startSourceWatcher(); err != nil {
		t.Fatalf("startSourceWatcher() failed: %v", err)
	}
	if s.watcher == nil {
		t.Fatal("watcher should be live when a source directory exists")
	}

	s.stopSourceWatcher()
	if s.watcher != nil {
		t.Fatal("stopSourceWatcher() should clear the watcher")
	}
	s.stopSourceWatcher() // idempotent
}

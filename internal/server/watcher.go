package server

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// startSourceWatcher monitors the directories the playlist's local sources
// live in. The watcher is diagnostics only: a vanished file is discovered by
// the engine as a playback failure and auto-skipped, but the log tells the
// operator why.
func (s *Server) startSourceWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dirs := map[string]bool{}
	for _, track := range s.controller.Playlist().Tracks {
		dir := filepath.Dir(track.Source)
		if dirs[dir] {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue // remote or not-yet-existing source
		}
		if err := watcher.Add(dir); err != nil {
			s.logger.WithError(err).WithField("directory", dir).Warn("Could not watch source directory")
			continue
		}
		dirs[dir] = true
	}

	if len(dirs) == 0 {
		watcher.Close()
		return nil
	}

	s.watcher = watcher
	go s.watchSources(watcher)

	s.logger.WithField("directories", len(dirs)).Info("Source watcher started")
	return nil
}

// watchSources selects on watcher channels and dispatches events. It holds
// its own reference to the watcher so a concurrent stopSourceWatcher only
// closes the channels, which ends the loop.
func (s *Server) watchSources(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleSourceEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.WithError(err).Error("Source watcher error")
		}
	}
}

// handleSourceEvent logs appearing and disappearing media files.
func (s *Server) handleSourceEvent(event fsnotify.Event) {
	// Ignore temporary files and hidden files
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}
	if !s.extractor.IsAudioFile(event.Name) {
		return
	}

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if s.isPlaylistSource(event.Name) {
			s.logger.WithField("source", event.Name).Warn("Playlist source removed; playback of it will fail and skip")
		}
	case event.Has(fsnotify.Create):
		if s.isPlaylistSource(event.Name) {
			s.logger.WithField("source", event.Name).Info("Playlist source became available")
		}
	}
}

func (s *Server) isPlaylistSource(path string) bool {
	for _, track := range s.controller.Playlist().Tracks {
		if track.Source == path {
			return true
		}
	}
	return false
}

// stopSourceWatcher closes the watcher (idempotent).
func (s *Server) stopSourceWatcher() {
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}

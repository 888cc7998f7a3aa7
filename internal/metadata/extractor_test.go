package metadata

import (
	"testing"

	"cadenza/pkg/models"
)

func TestIsAudioFile(t *testing.T) {
	extractor := NewExtractor([]string{".mp3", ".flac", ".wav"})

	testCases := []struct {
		filename string
		expected bool
	}{
		{"song.mp3", true},
		{"song.MP3", true},
		{"song.flac", true},
		{"song.FLAC", true},
		{"song.wav", true},
		{"song.ogg", false},
		{"song.txt", false},
		{"song", false},
		{"", false},
	}

	for _, tc := range testCases {
		if got := extractor.IsAudioFile(tc.filename); got != tc.expected {
			t.Errorf("IsAudioFile(%s): expected %v, got %v", tc.filename, tc.expected, got)
		}
	}
}

func TestEnrichLeavesRemoteSourcesAlone(t *testing.T) {
	extractor := NewExtractor([]string{".mp3", ".flac", ".wav"})

	track := models.Track{
		Title:    "Streamed",
		Artist:   "Someone",
		Source:   "https://example.com/stream",
		Duration: 180,
	}

	if got := extractor.Enrich(track); got != track {
		t.Errorf("Enrich() modified a non-local track: %+v", got)
	}
}

func TestEnrichKeepsDeclaredFieldsForMissingFile(t *testing.T) {
	extractor := NewExtractor([]string{".mp3", ".flac", ".wav"})

	track := models.Track{
		Title:    "Declared Title",
		Artist:   "Declared Artist",
		Source:   "/nonexistent/dir/song.mp3",
		Duration: 215,
	}

	got := extractor.Enrich(track)
	if got.Title != track.Title || got.Artist != track.Artist || got.Duration != track.Duration {
		t.Errorf("Enrich() altered declared metadata for an unreadable file: %+v", got)
	}
}

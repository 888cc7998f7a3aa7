package playlist

import (
	"os"
	"path/filepath"
	"testing"

	"cadenza/pkg/models"
)

func TestDefaultPlaylist(t *testing.T) {
	pl := DefaultPlaylist()

	if pl.Len() != 5 {
		t.Errorf("DefaultPlaylist() has %d tracks, want 5", pl.Len())
	}
	if err := Validate(pl); err != nil {
		t.Errorf("DefaultPlaylist() does not validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		playlist  *models.Playlist
		wantError bool
	}{
		{
			name:      "empty playlist",
			playlist:  &models.Playlist{},
			wantError: true,
		},
		{
			name: "track without source",
			playlist: &models.Playlist{
				Tracks: []models.Track{{Title: "Untitled"}},
			},
			wantError: true,
		},
		{
			name: "negative duration",
			playlist: &models.Playlist{
				Tracks: []models.Track{{Source: "a.mp3", Duration: -1}},
			},
			wantError: true,
		},
		{
			name: "single valid track",
			playlist: &models.Playlist{
				Tracks: []models.Track{{Source: "a.mp3", Duration: 120}},
			},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.playlist)
			if tt.wantError && err == nil {
				t.Error("Validate() expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.toml")

	pl, err := Load(path, nil, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if pl.Len() != 5 {
		t.Errorf("Load() on missing file returned %d tracks, want 5", pl.Len())
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Load() did not create the playlist file: %v", err)
	}

	// Loading again reads the file that was just written.
	again, err := Load(path, nil, nil)
	if err != nil {
		t.Fatalf("second Load() failed: %v", err)
	}
	if again.Len() != pl.Len() || again.Tracks[0].Title != pl.Tracks[0].Title {
		t.Errorf("reloaded playlist differs from the one written")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.toml")

	original := &models.Playlist{
		Name: "Test Mix",
		Tracks: []models.Track{
			{Title: "One", Artist: "A", Source: "/music/one.flac", Duration: 61},
			{Title: "Two", Artist: "B", Source: "/music/two.mp3", Duration: 185},
		},
	}
	if err := Save(original, path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load(path, nil, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.Name != original.Name {
		t.Errorf("loaded name = %q, want %q", loaded.Name, original.Name)
	}
	if loaded.Len() != original.Len() {
		t.Fatalf("loaded %d tracks, want %d", loaded.Len(), original.Len())
	}
	for i := range original.Tracks {
		if loaded.Tracks[i] != original.Tracks[i] {
			t.Errorf("track %d = %+v, want %+v", i, loaded.Tracks[i], original.Tracks[i])
		}
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.toml")
	if err := os.WriteFile(path, []byte("name = \"Empty\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path, nil, nil); err == nil {
		t.Error("Load() accepted a playlist with no tracks")
	}
}

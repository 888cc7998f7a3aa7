package playlist

import (
	"fmt"
	"os"

	"cadenza/internal/metadata"
	"cadenza/pkg/models"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// DefaultPlaylist returns the baked-in playlist used when no playlist file
// exists yet. Five placeholder entries, in playback order.
func DefaultPlaylist() *models.Playlist {
	return &models.Playlist{
		Name: "Cadenza Mix",
		Tracks: []models.Track{
			{Title: "Midnight Drive", Artist: "Neon Harbor", Source: "./music/midnight-drive.mp3", Duration: 245},
			{Title: "Glass Horizon", Artist: "Aurelia", Source: "./music/glass-horizon.mp3", Duration: 198},
			{Title: "Paper Planes", Artist: "The Low Tide", Source: "./music/paper-planes.mp3", Duration: 221},
			{Title: "Ember Waltz", Artist: "Cora Vane", Source: "./music/ember-waltz.mp3", Duration: 264},
			{Title: "Northern Wires", Artist: "Field Static", Source: "./music/northern-wires.mp3", Duration: 187},
		},
	}
}

// Load reads the playlist from a TOML file. A missing file is created with
// the default playlist, mirroring how the config loader behaves. Local
// entries with missing titles, artists, or durations are filled from the
// media files themselves.
func Load(path string, extractor *metadata.Extractor, logger *logrus.Logger) (*models.Playlist, error) {
	if logger == nil {
		logger = logrus.New()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		pl := DefaultPlaylist()
		if err := Save(pl, path); err != nil {
			return nil, fmt.Errorf("failed to create default playlist file: %w", err)
		}
		logger.WithField("path", path).Info("Created default playlist file")
		return enrich(pl, extractor), nil
	}

	pl := &models.Playlist{}
	if _, err := toml.DecodeFile(path, pl); err != nil {
		return nil, fmt.Errorf("failed to parse playlist file: %w", err)
	}
	if err := Validate(pl); err != nil {
		return nil, fmt.Errorf("invalid playlist: %w", err)
	}

	return enrich(pl, extractor), nil
}

// Save writes the playlist to a TOML file.
func Save(pl *models.Playlist, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create playlist file: %w", err)
	}
	defer file.Close()

	header := `# Cadenza playlist
# Tracks play in the order listed here. Title, artist, and duration are
# optional for local files; they are read from the media when left out.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write playlist header: %w", err)
	}

	if err := toml.NewEncoder(file).Encode(pl); err != nil {
		return fmt.Errorf("failed to encode playlist to TOML: %w", err)
	}
	return nil
}

// Validate checks that the playlist is playable: at least one track, every
// track with a source, no negative fallback durations.
func Validate(pl *models.Playlist) error {
	if pl.Len() == 0 {
		return fmt.Errorf("playlist must contain at least one track")
	}
	for i, track := range pl.Tracks {
		if track.Source == "" {
			return fmt.Errorf("track %d has no source", i)
		}
		if track.Duration < 0 {
			return fmt.Errorf("track %d has a negative duration", i)
		}
	}
	return nil
}

func enrich(pl *models.Playlist, extractor *metadata.Extractor) *models.Playlist {
	if extractor == nil {
		return pl
	}
	for i, track := range pl.Tracks {
		pl.Tracks[i] = extractor.Enrich(track)
	}
	return pl
}

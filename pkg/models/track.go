package models

// Track represents one playlist entry. The playlist is assembled once at
// startup and never mutated afterwards, so tracks are treated as immutable.
type Track struct {
	Title    string `json:"title" toml:"title"`
	Artist   string `json:"artist" toml:"artist"`
	Source   string `json:"source" toml:"source"`     // file path or URI of the playable media
	Duration int    `json:"duration" toml:"duration"` // fallback duration in seconds, used until real metadata loads
}

// Playlist is an ordered, fixed set of tracks. Insertion order is playback
// order.
type Playlist struct {
	Name   string  `json:"name" toml:"name"`
	Tracks []Track `json:"tracks" toml:"track"`
}

// Len returns the number of tracks in the playlist.
func (p *Playlist) Len() int {
	return len(p.Tracks)
}

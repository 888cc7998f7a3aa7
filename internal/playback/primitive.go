package playback

// EventType identifies a notification fired by the playback primitive.
type EventType int

const (
	EventMetadataReady   EventType = iota // real duration became known
	EventTimeAdvanced                     // playback position moved
	EventPlaybackStarted                  // audio is audibly playing
	EventPlaybackPaused                   // playback was paused
	EventTrackFinished                    // track ran to its natural end
	EventPlaybackFailed                   // media could not be loaded or decoded
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventMetadataReady:
		return "metadata_ready"
	case EventTimeAdvanced:
		return "time_advanced"
	case EventPlaybackStarted:
		return "playback_started"
	case EventPlaybackPaused:
		return "playback_paused"
	case EventTrackFinished:
		return "track_finished"
	case EventPlaybackFailed:
		return "playback_failed"
	default:
		return "unknown"
	}
}

// Event is a notification from the playback primitive. Err is set only for
// EventPlaybackFailed.
type Event struct {
	Type EventType
	Err  error
}

// Primitive is the host-provided audio capability the controller drives:
// source assignment, transport control, time/volume state, and event
// notifications. Implementations must deliver the outcome of a play request
// asynchronously on the returned channel (nil = playback started, non-nil =
// the request was rejected).
type Primitive interface {
	// SetSource points the primitive at new media. It never fails; a bad
	// source is discovered asynchronously on the next play request.
	SetSource(source string)

	// Play requests playback of the current source. The returned channel
	// receives exactly one value when the request settles.
	Play() <-chan error

	// Pause stops audio output without releasing the source.
	Pause()

	// Position returns the current playback position in seconds.
	Position() float64

	// SetPosition seeks to an absolute position in seconds.
	SetPosition(seconds float64)

	// Volume returns the current volume as a fraction in [0, 1].
	Volume() float64

	// SetVolume sets the volume as a fraction in [0, 1].
	SetVolume(v float64)

	// Duration returns the media duration in seconds, or 0 while it is
	// still unknown (metadata not yet resolved).
	Duration() float64

	// Events returns the primitive's notification stream.
	Events() <-chan Event

	// Close releases the primitive's resources.
	Close() error
}

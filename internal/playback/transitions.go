package playback

import (
	"time"

	"cadenza/pkg/models"
)

// TransitionType classifies a playback lifecycle change worth recording.
type TransitionType int

const (
	TransitionStarted  TransitionType = iota // playback began on a track
	TransitionFinished                       // a track ran to its natural end
	TransitionFailed                         // a track could not be played
	TransitionSkipped                        // the user skipped away from a track
)

// String returns the transition name.
func (t TransitionType) String() string {
	switch t {
	case TransitionStarted:
		return "started"
	case TransitionFinished:
		return "finished"
	case TransitionFailed:
		return "failed"
	case TransitionSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Transition is emitted by the controller whenever a track starts, ends,
// fails, or is skipped.
type Transition struct {
	Type  TransitionType `json:"type"`
	Track models.Track   `json:"track"`
	At    time.Time      `json:"at"`
}

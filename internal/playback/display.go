package playback

import (
	"fmt"
	"math"
)

// VolumeIcon is the three-state icon shown next to the volume control.
type VolumeIcon int

const (
	IconMuted VolumeIcon = iota // volume == 0
	IconLow                     // 0 < volume < 0.5
	IconHigh                    // volume >= 0.5
)

// String returns the icon name.
func (v VolumeIcon) String() string {
	switch v {
	case IconMuted:
		return "muted"
	case IconLow:
		return "low"
	case IconHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Display is a snapshot of everything the transport UI shows. Copies are
// handed to subscribers; the controller owns the live value.
type Display struct {
	Index    int        `json:"index"`
	Title    string     `json:"title"`
	Artist   string     `json:"artist"`
	Elapsed  string     `json:"elapsed"`
	Total    string     `json:"total"`
	Progress float64    `json:"progress"` // percent fill of the scrub bar, 0-100
	Playing  bool       `json:"isPlaying"`
	Volume   float64    `json:"volume"` // 0.0 to 1.0
	Icon     VolumeIcon `json:"volumeIcon"`
}

// iconFor maps a volume fraction onto the three-state icon, partitioned at
// 0 and 0.5.
func iconFor(volume float64) VolumeIcon {
	switch {
	case volume == 0:
		return IconMuted
	case volume < 0.5:
		return IconLow
	default:
		return IconHigh
	}
}

// FormatTime renders a second count as a m:ss label. Seconds are truncated,
// never rounded, and the seconds field is zero-padded. Negative or
// non-finite input renders as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	whole := int(seconds)
	return fmt.Sprintf("%d:%02d", whole/60, whole%60)
}

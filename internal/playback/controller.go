package playback

import (
	"fmt"
	"sync"
	"time"

	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// unmuteVolume is the fixed volume restored when unmuting. The pre-mute
// value is deliberately not remembered.
const unmuteVolume = 0.7

// Controller owns the player state (current index, play/pause flag, volume,
// seek-drag flag) and mediates between the transport surfaces and the
// playback primitive. Index-in-range and volume-in-[0,1] are enforced here;
// the fields are never mutated from outside.
type Controller struct {
	mu       sync.Mutex
	prim     Primitive
	playlist *models.Playlist
	logger   *logrus.Logger

	index    int
	playing  bool
	volume   float64
	dragging bool

	// playToken guards against a stale play outcome settling after the
	// state has already moved on. Only the outcome carrying the current
	// token is honored.
	playToken uint64

	display             Display
	displayListeners    []chan Display
	transitionListeners []chan Transition

	done chan struct{}
}

// NewController creates a controller over the given primitive and playlist.
// The playlist must contain at least one track.
func NewController(prim Primitive, playlist *models.Playlist, logger *logrus.Logger) (*Controller, error) {
	if playlist == nil || playlist.Len() == 0 {
		return nil, fmt.Errorf("playlist must contain at least one track")
	}
	if logger == nil {
		logger = logrus.New()
	}

	c := &Controller{
		prim:     prim,
		playlist: playlist,
		logger:   logger,
		volume:   prim.Volume(),
		done:     make(chan struct{}),
	}
	c.display.Volume = c.volume
	c.display.Icon = iconFor(c.volume)

	c.mu.Lock()
	c.loadTrackLocked(0)
	c.mu.Unlock()

	return c, nil
}

// Run consumes the primitive's event stream until Close is called. The
// dispatch is total: every event type has an arm.
func (c *Controller) Run() {
	for {
		select {
		case ev, ok := <-c.prim.Events():
			if !ok {
				return
			}
			c.handleEvent(ev)
		case <-c.done:
			return
		}
	}
}

// Close stops the event loop and closes all subscriber channels.
func (c *Controller) Close() {
	close(c.done)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.displayListeners {
		close(ch)
	}
	c.displayListeners = nil
	for _, ch := range c.transitionListeners {
		close(ch)
	}
	c.transitionListeners = nil
}

func (c *Controller) handleEvent(ev Event) {
	switch ev.Type {
	case EventMetadataReady:
		c.onMetadataLoaded()
	case EventTimeAdvanced:
		c.onTimeUpdate()
	case EventPlaybackStarted:
		c.onPlaybackStarted()
	case EventPlaybackPaused:
		c.onPlaybackPaused()
	case EventTrackFinished:
		c.onNaturalEnd()
	case EventPlaybackFailed:
		c.onPlaybackError(ev.Err)
	default:
		c.logger.WithField("event", ev.Type).Warn("Unhandled primitive event")
	}
}

// Display returns a snapshot of the current display state.
func (c *Controller) Display() Display {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// CurrentTrack returns the track at the current index.
func (c *Controller) CurrentTrack() models.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playlist.Tracks[c.index]
}

// Playlist returns the fixed playlist the controller plays from.
func (c *Controller) Playlist() *models.Playlist {
	return c.playlist
}

// LoadTrack makes the track at index current without starting playback.
// Returns an error if index is out of range.
func (c *Controller) LoadTrack(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= c.playlist.Len() {
		return fmt.Errorf("track index %d out of range [0, %d)", index, c.playlist.Len())
	}
	c.loadTrackLocked(index)
	return nil
}

// loadTrackLocked points the primitive at the track's media, resets the
// elapsed label to 0:00, shows the fallback duration until real metadata
// arrives, and zeroes the progress fill. Playback is not started.
func (c *Controller) loadTrackLocked(index int) {
	// Loading supersedes any play request still in flight.
	c.playToken++

	track := c.playlist.Tracks[index]
	c.index = index
	c.prim.SetSource(track.Source)

	c.display.Index = index
	c.display.Title = track.Title
	c.display.Artist = track.Artist
	c.display.Elapsed = "0:00"
	c.display.Total = FormatTime(float64(track.Duration))
	c.display.Progress = 0
	c.notifyLocked()

	c.logger.WithFields(logrus.Fields{
		"index":  index,
		"title":  track.Title,
		"artist": track.Artist,
	}).Debug("Loaded track")
}

// TogglePlayPause requests a pause if playing, otherwise a play. A rejected
// play request skips to the next track without retrying and without
// auto-starting it.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playing {
		c.playToken++ // a pause also supersedes any play request in flight
		c.prim.Pause()
		c.setPlayingLocked(false)
		return
	}
	c.requestPlayLocked()
}

// requestPlayLocked issues an asynchronous play request tagged with a fresh
// token. Outcomes for superseded tokens are ignored.
func (c *Controller) requestPlayLocked() {
	c.playToken++
	token := c.playToken
	outcome := c.prim.Play()

	go func() {
		err := <-outcome
		c.settlePlay(token, err)
	}()
}

func (c *Controller) settlePlay(token uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.playToken {
		c.logger.WithField("token", token).Debug("Ignoring stale play outcome")
		return
	}
	if err == nil {
		c.setPlayingLocked(true)
		return
	}

	// One automatic skip per failure; the next track is loaded but not
	// played, so a fully broken playlist cannot force a play loop.
	c.logger.WithError(err).WithField("index", c.index).Warn("Play request rejected, skipping track")
	c.setPlayingLocked(false)
	c.emitTransitionLocked(TransitionFailed)
	c.loadTrackLocked(c.wrap(c.index + 1))
}

// Previous skips to the prior track with wraparound, resuming playback only
// if a track was playing before the skip.
func (c *Controller) Previous() {
	c.skipTo(-1)
}

// Next skips to the following track with wraparound, resuming playback only
// if a track was playing before the skip.
func (c *Controller) Next() {
	c.skipTo(+1)
}

func (c *Controller) skipTo(step int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasPlaying := c.playing
	c.emitTransitionLocked(TransitionSkipped)
	c.loadTrackLocked(c.wrap(c.index + step))
	if wasPlaying {
		c.requestPlayLocked()
	}
}

// onNaturalEnd advances to the next track and unconditionally continues
// playing, regardless of the play flag at the moment the track ended.
func (c *Controller) onNaturalEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.emitTransitionLocked(TransitionFinished)
	c.loadTrackLocked(c.wrap(c.index + 1))
	c.requestPlayLocked()
}

// onPlaybackError advances to the next track but does not start it, so a
// run of broken media degrades to silence instead of a play-request storm.
func (c *Controller) onPlaybackError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.WithError(err).WithField("index", c.index).Warn("Playback failed, skipping track")
	c.setPlayingLocked(false)
	c.emitTransitionLocked(TransitionFailed)
	c.loadTrackLocked(c.wrap(c.index + 1))
}

func (c *Controller) onPlaybackStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPlayingLocked(true)
	c.emitTransitionLocked(TransitionStarted)
}

func (c *Controller) onPlaybackPaused() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPlayingLocked(false)
}

// SetVolume clamps the fraction to [0, 1], pushes it to the primitive, and
// refreshes the three-state icon.
func (c *Controller) SetVolume(fraction float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setVolumeLocked(fraction)
}

func (c *Controller) setVolumeLocked(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	c.volume = fraction
	c.prim.SetVolume(fraction)
	c.display.Volume = fraction
	c.display.Icon = iconFor(fraction)
	c.notifyLocked()
}

// AdjustVolume moves the volume by the given number of percentage points,
// clamped at both ends. Keyboard volume keys step by ±10.
func (c *Controller) AdjustVolume(points int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setVolumeLocked(c.volume + float64(points)/100)
}

// ToggleMute drops the volume to 0, or restores the fixed default of 0.7
// when already muted. The pre-mute volume is not remembered.
func (c *Controller) ToggleMute() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.volume > 0 {
		c.setVolumeLocked(0)
	} else {
		c.setVolumeLocked(unmuteVolume)
	}
}

// Volume returns the current volume fraction.
func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// IsPlaying reports whether playback is in progress.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// SeekTo commits a scrub-bar position expressed as a fraction of the total
// duration. It is a no-op while the duration is still unknown.
func (c *Controller) SeekTo(fraction float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	duration := c.prim.Duration()
	if duration <= 0 {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	position := fraction * duration
	c.prim.SetPosition(position)
	c.display.Elapsed = FormatTime(position)
	c.display.Progress = fraction * 100
	c.notifyLocked()
}

// BeginSeekDrag marks the start of a scrub-handle drag. While the drag is
// active, periodic time updates leave the displayed position alone.
func (c *Controller) BeginSeekDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = true
}

// EndSeekDrag releases the scrub handle; the next time update resumes
// driving the display.
func (c *Controller) EndSeekDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = false
}

// onTimeUpdate refreshes the elapsed label and progress fill. No-op while
// dragging or while the duration is unknown.
func (c *Controller) onTimeUpdate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dragging {
		return
	}
	duration := c.prim.Duration()
	if duration <= 0 {
		return
	}

	position := c.prim.Position()
	c.display.Elapsed = FormatTime(position)
	c.display.Progress = position / duration * 100
	c.notifyLocked()
}

// onMetadataLoaded overwrites the fallback total-time label with the real
// duration reported by the primitive.
func (c *Controller) onMetadataLoaded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	duration := c.prim.Duration()
	if duration <= 0 {
		return
	}
	c.display.Total = FormatTime(duration)
	c.display.Progress = c.prim.Position() / duration * 100
	c.notifyLocked()
}

func (c *Controller) setPlayingLocked(playing bool) {
	if c.playing == playing {
		return
	}
	c.playing = playing
	c.display.Playing = playing
	c.notifyLocked()
}

func (c *Controller) wrap(index int) int {
	n := c.playlist.Len()
	return ((index % n) + n) % n
}

// Subscribe adds a display listener. The channel is buffered; slow
// consumers are dropped rather than blocking the controller.
func (c *Controller) Subscribe() <-chan Display {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Display, 16)
	c.displayListeners = append(c.displayListeners, ch)
	return ch
}

// Unsubscribe removes a display listener and closes its channel.
func (c *Controller) Unsubscribe(ch <-chan Display) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, listener := range c.displayListeners {
		if listener == ch {
			close(listener)
			c.displayListeners = append(c.displayListeners[:i], c.displayListeners[i+1:]...)
			break
		}
	}
}

// SubscribeTransitions adds a listener for track lifecycle transitions.
func (c *Controller) SubscribeTransitions() <-chan Transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Transition, 16)
	c.transitionListeners = append(c.transitionListeners, ch)
	return ch
}

// notifyLocked fans the current display out to subscribers (lock held).
func (c *Controller) notifyLocked() {
	snapshot := c.display
	for i := 0; i < len(c.displayListeners); i++ {
		select {
		case c.displayListeners[i] <- snapshot:
		default:
			// Channel is full, drop the listener
			close(c.displayListeners[i])
			c.displayListeners = append(c.displayListeners[:i], c.displayListeners[i+1:]...)
			i--
		}
	}
}

// emitTransitionLocked fans a lifecycle transition out to subscribers (lock held).
func (c *Controller) emitTransitionLocked(t TransitionType) {
	tr := Transition{
		Type:  t,
		Track: c.playlist.Tracks[c.index],
		At:    time.Now(),
	}
	for i := 0; i < len(c.transitionListeners); i++ {
		select {
		case c.transitionListeners[i] <- tr:
		default:
			close(c.transitionListeners[i])
			c.transitionListeners = append(c.transitionListeners[:i], c.transitionListeners[i+1:]...)
			i--
		}
	}
}

package engine

import (
	"fmt"
	"sync"
	"time"

	"cadenza/internal/playback"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
)

// tickInterval is how often a time-advanced event is emitted while playing.
const tickInterval = 500 * time.Millisecond

// Engine is the beep-backed playback primitive. It owns the speaker, a
// mixer with an exponential volume stage in front of it, and at most one
// decoded stream at a time. Sources are only recorded by SetSource; decode
// happens on the next play request, so a bad source surfaces asynchronously
// as a rejected play, never as a synchronous error.
type Engine struct {
	mu     sync.Mutex
	logger *logrus.Logger

	sampleRate beep.SampleRate
	mixer      *beep.Mixer
	volume     *effects.Volume

	source  string
	stream  beep.StreamSeekCloser
	format  beep.Format
	ctrl    *beep.Ctrl
	playing bool
	frac    float64 // volume fraction as last set, 0..1

	// gen is bumped whenever the current stream is superseded so that
	// finish callbacks from torn-down streams are discarded.
	gen int

	events chan playback.Event
	closed bool
	done   chan struct{}
}

// New initializes the speaker at the given sample rate and returns an
// engine ready to accept a source.
func New(sampleRate int, logger *logrus.Logger) (*Engine, error) {
	if logger == nil {
		logger = logrus.New()
	}

	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(time.Second/4)); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	mixer := &beep.Mixer{}
	vol := &effects.Volume{
		Streamer: mixer,
		Base:     2,
		Volume:   0,
		Silent:   false,
	}
	speaker.Play(vol)

	e := &Engine{
		logger:     logger,
		sampleRate: sr,
		mixer:      mixer,
		volume:     vol,
		frac:       1.0,
		events:     make(chan playback.Event, 32),
		done:       make(chan struct{}),
	}
	go e.tickLoop()

	return e, nil
}

// SetSource points the engine at new media, tearing down any open stream.
func (e *Engine) SetSource(source string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.teardownLocked()
	e.source = source
}

// teardownLocked discards the current stream and silences the mixer.
func (e *Engine) teardownLocked() {
	e.gen++
	e.playing = false

	speaker.Lock()
	e.mixer.Clear()
	speaker.Unlock()

	if e.stream != nil {
		e.stream.Close()
		e.stream = nil
	}
	e.ctrl = nil
}

// Play requests playback of the current source. The outcome arrives on the
// returned channel: nil once audio is flowing, an error if the media could
// not be opened or decoded.
func (e *Engine) Play() <-chan error {
	ch := make(chan error, 1)

	go func() {
		e.mu.Lock()

		if e.stream == nil {
			stream, format, err := decode(e.source)
			if err != nil {
				source := e.source
				e.mu.Unlock()
				e.logger.WithError(err).WithField("source", source).Warn("Could not open media")
				ch <- fmt.Errorf("open %s: %w", source, err)
				return
			}
			e.stream = stream
			e.format = format
			e.startStreamLocked()
			e.mu.Unlock()

			// Duration is known as soon as the stream header is parsed.
			e.emit(playback.Event{Type: playback.EventMetadataReady})
			e.emit(playback.Event{Type: playback.EventPlaybackStarted})
			ch <- nil
			return
		}

		// Paused stream, just unpause it.
		speaker.Lock()
		if e.ctrl != nil {
			e.ctrl.Paused = false
		}
		speaker.Unlock()
		e.playing = true
		e.mu.Unlock()

		e.emit(playback.Event{Type: playback.EventPlaybackStarted})
		ch <- nil
	}()

	return ch
}

// startStreamLocked wires the decoded stream through the mixer, resampling
// if the media's rate differs from the speaker's.
func (e *Engine) startStreamLocked() {
	var final beep.Streamer = e.stream
	if e.format.SampleRate != e.sampleRate {
		final = beep.Resample(4, e.format.SampleRate, e.sampleRate, e.stream)
	}

	gen := e.gen
	e.ctrl = &beep.Ctrl{Streamer: final}
	seq := beep.Seq(
		e.ctrl,
		beep.Callback(func() {
			go e.handleStreamDone(gen)
		}),
	)

	e.playing = true
	speaker.Lock()
	e.mixer.Clear()
	e.mixer.Add(seq)
	speaker.Unlock()
}

// handleStreamDone runs when a stream stops producing samples, either at
// its natural end or because decoding broke mid-track.
func (e *Engine) handleStreamDone(gen int) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}

	var streamErr error
	if e.stream != nil {
		streamErr = e.stream.Err()
		e.stream.Close()
		e.stream = nil
	}
	e.ctrl = nil
	e.playing = false
	e.mu.Unlock()

	if streamErr != nil {
		e.logger.WithError(streamErr).Warn("Stream failed mid-playback")
		e.emit(playback.Event{Type: playback.EventPlaybackFailed, Err: streamErr})
		return
	}
	e.emit(playback.Event{Type: playback.EventTrackFinished})
}

// Pause stops audio output, keeping the stream and its position.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing {
		return
	}
	speaker.Lock()
	if e.ctrl != nil {
		e.ctrl.Paused = true
	}
	speaker.Unlock()
	e.playing = false

	e.emitLocked(playback.Event{Type: playback.EventPlaybackPaused})
}

// Position returns the playback position in seconds.
func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		return 0
	}
	speaker.Lock()
	pos := e.stream.Position()
	speaker.Unlock()
	return e.format.SampleRate.D(pos).Seconds()
}

// SetPosition seeks to an absolute position in seconds, clamped to the
// stream bounds. No-op without an open stream.
func (e *Engine) SetPosition(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		return
	}
	max := e.stream.Len() - 1
	if max < 0 {
		return
	}
	n := e.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if n < 0 {
		n = 0
	}
	if n > max {
		n = max
	}

	speaker.Lock()
	err := e.stream.Seek(n)
	speaker.Unlock()
	if err != nil {
		e.logger.WithError(err).Warn("Seek failed")
	}
}

// Volume returns the volume fraction last set, in [0, 1].
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frac
}

// SetVolume maps a [0, 1] fraction onto the exponential volume stage.
// Zero flips the stage silent instead of chasing negative infinity.
func (e *Engine) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.frac = v
	speaker.Lock()
	defer speaker.Unlock()

	if v == 0 {
		e.volume.Silent = true
		return
	}
	e.volume.Silent = false
	e.volume.Volume = v*2 - 1 // maps nicely to log scale
}

// Duration returns the stream duration in seconds, or 0 while no stream is
// open (metadata unknown).
func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		return 0
	}
	speaker.Lock()
	n := e.stream.Len()
	speaker.Unlock()
	return e.format.SampleRate.D(n).Seconds()
}

// Events returns the engine's notification stream.
func (e *Engine) Events() <-chan playback.Event {
	return e.events
}

// Close tears down the current stream and stops the tick loop.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.teardownLocked()
	e.mu.Unlock()

	close(e.done)
	close(e.events)
	return nil
}

// tickLoop emits time-advanced events while playing.
func (e *Engine) tickLoop() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.mu.Lock()
			playing := e.playing && !e.closed
			e.mu.Unlock()
			if playing {
				e.emit(playback.Event{Type: playback.EventTimeAdvanced})
			}
		case <-e.done:
			return
		}
	}
}

// emit delivers an event without ever blocking the audio path. The lock is
// held over the send so a concurrent Close cannot slip between the closed
// check and the channel write.
func (e *Engine) emit(ev playback.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitLocked(ev)
}

// emitLocked is emit for callers already holding the mutex.
func (e *Engine) emitLocked(ev playback.Event) {
	if e.closed {
		return
	}
	select {
	case e.events <- ev:
	default:
		e.logger.WithField("event", ev.Type).Debug("Dropped engine event, channel full")
	}
}

var _ playback.Primitive = (*Engine)(nil)

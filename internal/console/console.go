package console

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"cadenza/internal/playback"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Console is the interactive keyboard transport: raw-mode stdin with the
// transport shortcuts, a status line redrawn from the controller's display
// stream, and a readline prompt for jumping to a track by number.
type Console struct {
	controller *playback.Controller
	logger     *logrus.Logger
}

// escTimeout bounds how long the read loop waits for the tail of an escape
// sequence. A lone ESC press sends nothing after the first byte, so waiting
// forever would freeze the transport until the next key.
const escTimeout = 50 * time.Millisecond

// keyReader serializes raw stdin reads behind a request channel so that the
// jump prompt can take the keyboard over without a competing read in flight:
// the loop only touches stdin when a byte has been asked for.
type keyReader struct {
	requests chan struct{}
	keys     chan byte
	pending  bool
	err      error
}

func newKeyReader() *keyReader {
	r := &keyReader{
		requests: make(chan struct{}),
		keys:     make(chan byte),
	}
	go r.loop()
	return r
}

func (r *keyReader) loop() {
	buf := make([]byte, 1)
	for range r.requests {
		if _, err := os.Stdin.Read(buf); err != nil {
			r.err = err
			close(r.keys)
			return
		}
		r.keys <- buf[0]
	}
}

// next blocks until a byte arrives or stdin fails.
func (r *keyReader) next() (byte, bool) {
	if !r.pending {
		r.requests <- struct{}{}
		r.pending = true
	}
	b, ok := <-r.keys
	r.pending = false
	return b, ok
}

// tryNext waits at most escTimeout for a byte. On timeout the outstanding
// read stays pending and a later call collects its result.
func (r *keyReader) tryNext() (byte, bool) {
	if !r.pending {
		r.requests <- struct{}{}
		r.pending = true
	}
	select {
	case b, ok := <-r.keys:
		r.pending = false
		return b, ok
	case <-time.After(escTimeout):
		return 0, false
	}
}

// New creates a console transport over the controller.
func New(controller *playback.Controller, logger *logrus.Logger) *Console {
	if logger == nil {
		logger = logrus.New()
	}
	return &Console{
		controller: controller,
		logger:     logger,
	}
}

// Run takes over the terminal until the user quits or stdin closes.
func (c *Console) Run() error {
	fmt.Print("\033[H\033[2J")
	fmt.Print("cadenza\r\n")
	fmt.Print("Controls:\tspace=play/pause\t←=prev\t→=next\t↑/↓=volume\tm=mute\t/=go to track\tq=quit\r\n\r\n")

	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer term.Restore(fd, state)

	updates := c.controller.Subscribe()
	defer c.controller.Unsubscribe(updates)
	go func() {
		for snapshot := range updates {
			drawStatus(snapshot)
		}
	}()
	drawStatus(c.controller.Display())

	reader := newKeyReader()
	for {
		first, ok := reader.next()
		if !ok {
			if reader.err == io.EOF {
				return nil
			}
			return reader.err
		}
		k := decodeKey(first, reader.tryNext)

		// The raw read loop never runs while the prompt owns the
		// keyboard, so typing is always false here; the flag exists for
		// the dispatch contract (and its tests).
		switch dispatchKey(k, false) {
		case ActionTogglePlay:
			c.controller.TogglePlayPause()
		case ActionPrevious:
			c.controller.Previous()
		case ActionNext:
			c.controller.Next()
		case ActionVolumeUp:
			c.controller.AdjustVolume(10)
		case ActionVolumeDown:
			c.controller.AdjustVolume(-10)
		case ActionMute:
			c.controller.ToggleMute()
		case ActionPrompt:
			if err := c.runJumpPrompt(fd, state); err != nil {
				c.logger.WithError(err).Warn("Track prompt failed")
			}
		case ActionQuit:
			fmt.Print("\r\n")
			return nil
		}
	}
}

// runJumpPrompt temporarily leaves raw mode and asks for a track number.
// While the prompt is open, transport shortcuts are inert: readline owns
// every key until the line is submitted or aborted.
func (c *Console) runJumpPrompt(fd int, rawState *term.State) error {
	if err := term.Restore(fd, rawState); err != nil {
		return err
	}
	defer func() {
		if _, err := term.MakeRaw(fd); err != nil {
			c.logger.WithError(err).Error("Could not re-enter raw mode")
		}
	}()

	rl, err := readline.New(fmt.Sprintf("\r\ntrack [1-%d]> ", c.controller.Playlist().Len()))
	if err != nil {
		return err
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			return nil // prompt aborted
		}
		return err
	}

	number, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		fmt.Print("not a track number\r\n")
		return nil
	}
	if err := c.controller.LoadTrack(number - 1); err != nil {
		fmt.Printf("%v\r\n", err)
	}
	return nil
}

// drawStatus redraws the single status line in place.
func drawStatus(d playback.Display) {
	symbol := "⏸" // paused
	if d.Playing {
		symbol = "▶"
	}
	fmt.Printf("\r\033[K%s  %s - %s  %s/%s  vol %3.0f%% [%s]",
		symbol, d.Artist, d.Title, d.Elapsed, d.Total, d.Volume*100, d.Icon)
}

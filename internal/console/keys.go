package console

// Action is a transport command decoded from a key press.
type Action int

const (
	ActionNone Action = iota
	ActionTogglePlay
	ActionPrevious
	ActionNext
	ActionVolumeUp
	ActionVolumeDown
	ActionMute
	ActionPrompt
	ActionQuit
)

// key is one decoded key press. arrow holds the final byte of a CSI arrow
// sequence ('A' up, 'B' down, 'C' right, 'D' left) and is zero for plain
// runes.
type key struct {
	r     byte
	arrow byte
}

// decodeKey turns the first byte of a key press into a key, pulling the rest
// of a CSI arrow sequence through next when one follows. next may give up
// (short timeout, closed input), so a bare ESC, or an escape sequence that
// never completes, decodes as a plain ESC key press, which no shortcut is
// bound to.
func decodeKey(first byte, next func() (byte, bool)) key {
	if first != 0x1b {
		return key{r: first}
	}

	b, ok := next()
	if !ok || b != '[' {
		return key{r: first}
	}
	final, ok := next()
	if !ok {
		return key{r: first}
	}
	return key{arrow: final}
}

// dispatchKey maps a key press onto a transport action. While typing is
// true (a text prompt has focus) every transport shortcut is ignored; the
// prompt owns the keyboard.
func dispatchKey(k key, typing bool) Action {
	if typing {
		return ActionNone
	}

	switch k.arrow {
	case 'A':
		return ActionVolumeUp
	case 'B':
		return ActionVolumeDown
	case 'C':
		return ActionNext
	case 'D':
		return ActionPrevious
	}

	switch k.r {
	case ' ':
		return ActionTogglePlay
	case 'm':
		return ActionMute
	case '/':
		return ActionPrompt
	case 'q':
		return ActionQuit
	}
	return ActionNone
}

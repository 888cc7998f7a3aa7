package console

import "testing"

func TestDispatchKey(t *testing.T) {
	tests := []struct {
		name string
		k    key
		want Action
	}{
		{"space toggles", key{r: ' '}, ActionTogglePlay},
		{"left arrow is previous", key{arrow: 'D'}, ActionPrevious},
		{"right arrow is next", key{arrow: 'C'}, ActionNext},
		{"up arrow raises volume", key{arrow: 'A'}, ActionVolumeUp},
		{"down arrow lowers volume", key{arrow: 'B'}, ActionVolumeDown},
		{"m mutes", key{r: 'm'}, ActionMute},
		{"slash opens prompt", key{r: '/'}, ActionPrompt},
		{"q quits", key{r: 'q'}, ActionQuit},
		{"unmapped rune does nothing", key{r: 'x'}, ActionNone},
		{"unmapped arrow does nothing", key{arrow: 'Z'}, ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dispatchKey(tt.k, false); got != tt.want {
				t.Errorf("dispatchKey(%+v, false) = %v, want %v", tt.k, got, tt.want)
			}
		})
	}
}

// feedBytes returns a next function serving the given bytes in order, then
// reporting exhaustion the way a timed-out read does.
func feedBytes(bytes ...byte) func() (byte, bool) {
	i := 0
	return func() (byte, bool) {
		if i >= len(bytes) {
			return 0, false
		}
		b := bytes[i]
		i++
		return b, true
	}
}

func TestDecodeKey(t *testing.T) {
	tests := []struct {
		name  string
		first byte
		rest  []byte
		want  key
	}{
		{"plain rune", 'm', nil, key{r: 'm'}},
		{"arrow sequence", 0x1b, []byte{'[', 'C'}, key{arrow: 'C'}},
		{"bare escape", 0x1b, nil, key{r: 0x1b}},
		{"escape with non-CSI follower", 0x1b, []byte{'O'}, key{r: 0x1b}},
		{"truncated CSI sequence", 0x1b, []byte{'['}, key{r: 0x1b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeKey(tt.first, feedBytes(tt.rest...)); got != tt.want {
				t.Errorf("decodeKey(%#x, %v) = %+v, want %+v", tt.first, tt.rest, got, tt.want)
			}
		})
	}
}

// A bare escape decodes to a key no shortcut is bound to, so the read loop
// keeps running instead of waiting on sequence bytes that never arrive.
func TestDecodeKeyBareEscapeIsInert(t *testing.T) {
	k := decodeKey(0x1b, feedBytes())
	if got := dispatchKey(k, false); got != ActionNone {
		t.Errorf("dispatchKey(bare escape) = %v, want ActionNone", got)
	}
}

// While a text prompt has focus, no key may reach the transport.
func TestDispatchKeyIgnoredWhileTyping(t *testing.T) {
	keys := []key{
		{r: ' '},
		{r: 'm'},
		{r: 'q'},
		{r: '/'},
		{arrow: 'A'},
		{arrow: 'B'},
		{arrow: 'C'},
		{arrow: 'D'},
	}

	for _, k := range keys {
		if got := dispatchKey(k, true); got != ActionNone {
			t.Errorf("dispatchKey(%+v, typing) = %v, want ActionNone", k, got)
		}
	}
}

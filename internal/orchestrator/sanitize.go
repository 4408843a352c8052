package orchestrator

import (
	"regexp"
	"strings"
)

// ansiSequence matches CSI and OSC escape sequences.
var ansiSequence = regexp.MustCompile(`\x1b(\[[0-9;?]*[a-zA-Z]|\][^\x07\x1b]*(\x07|\x1b\\))`)

// SanitizeLine strips characters meaningful to the terminal renderer from
// streamed content before it enters a display buffer: escape sequences,
// carriage returns, and other control characters. Tabs become spaces.
// System/status lines produced by the orchestrator itself bypass this.
func SanitizeLine(s string) string {
	s = ansiSequence.ReplaceAllString(s, "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t':
			b.WriteString("  ")
		case r < 0x20 || r == 0x7f:
			// Drop control characters, including stray \r and \x1b.
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

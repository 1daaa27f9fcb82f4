// Package sanitize cleans build log text for consumers that can't render terminal escapes.
// EAS build output carries colored npm/gradle/xcodebuild lines; MCP tool responses
// and --strip-ansi exports want plain text.
package sanitize

import (
	"regexp"

	"github.com/charmbracelet/x/ansi"
)

// Carriage-return progress redraws: keep only the text after the last \r.
var carriageReturn = regexp.MustCompile(`^.*\r`)

// StripANSI removes ANSI escape sequences (SGR, cursor movement, OSC hyperlinks).
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// PlainLine strips escapes and collapses carriage-return redraws to the final frame.
func PlainLine(s string) string {
	s = StripANSI(s)
	return carriageReturn.ReplaceAllString(s, "")
}

package mcp

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// rewrite is one substitution applied to every compressed line.
type rewrite struct {
	pattern *regexp.Regexp
	with    string
}

var (
	// lineTime is the "[time] " prefix of an aggregated line.
	lineTime = rewrite{regexp.MustCompile(`^\[[^\]]*\] ?`), ""}

	// messageTime is a timestamp the build tool printed itself, e.g.
	// 2024-05-21T10:00:05.123Z, 2024-05-21 10:00:05,123 or 2024-05-21T10:00:05+00:00.
	messageTime = rewrite{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}[.,]?\d*Z?([+-]\d{2}:?\d{2})?\s*`), ""}
)

// noise is applied in order after the time prefixes.
var noise = []rewrite{
	// EAS builders check the project out here; paths below it read better relative.
	{regexp.MustCompile(`/home/expo/workingdir/build/`), "./"},
	// Build, submission and update IDs.
	{regexp.MustCompile(`\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`), "<ID>"},
	// Git SHAs, Pod checksums, container IDs.
	{regexp.MustCompile(`\b[a-f0-9]{12,}\b`), "<HASH>"},
	// Absolute paths with 3+ directories keep only the file (and line number).
	{regexp.MustCompile(`/(?:[^/\s]+/){3,}([^/\s:]+(?::\d+)?)`), ".../$1"},
	{regexp.MustCompile(`\s+`), " "},
}

func (r rewrite) apply(s string) string {
	return r.pattern.ReplaceAllString(s, r.with)
}

// minPrefixLength is the shortest shared prefix worth removing.
const minPrefixLength = 20

// commonPrefix returns the longest prefix shared by all lines, cut back to a
// rune boundary, or "" when it is shorter than minPrefixLength.
func commonPrefix(lines []string) string {
	if len(lines) < 2 {
		return ""
	}
	prefix := lines[0]
	for _, line := range lines[1:] {
		n := 0
		for n < len(prefix) && n < len(line) && prefix[n] == line[n] {
			n++
		}
		prefix = prefix[:n]
	}
	for len(prefix) > 0 && !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}
	if len(prefix) < minPrefixLength {
		return ""
	}
	return prefix
}

// collapseRepeats folds runs of identical lines into one with a count.
func collapseRepeats(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		j := i + 1
		for j < len(lines) && lines[j] == lines[i] {
			j++
		}
		if n := j - i; n > 1 {
			out = append(out, fmt.Sprintf("%s (x%d)", lines[i], n))
		} else {
			out = append(out, lines[i])
		}
		i = j
	}
	return out
}

// CompressLine shrinks one aggregated log line for model consumption.
// keepTime leaves the "[time]" prefix in place.
func CompressLine(line string, keepTime bool) string {
	if !keepTime {
		line = messageTime.apply(lineTime.apply(line))
	}
	for _, r := range noise {
		line = r.apply(line)
	}
	return strings.TrimSpace(line)
}

// CompressLines compresses every line and drops lines left empty. Repeated
// lines are folded and a long prefix shared by all of them is replaced with "... ".
func CompressLines(lines []string, keepTime bool) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if c := CompressLine(line, keepTime); c != "" {
			out = append(out, c)
		}
	}
	out = collapseRepeats(out)

	prefix := commonPrefix(out)
	if prefix == "" {
		return out
	}
	for i, line := range out {
		out[i] = "... " + line[len(prefix):]
	}
	return out
}

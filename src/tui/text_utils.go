package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"easlog/src/sanitize"
)

// CleanLogText prepares a log line for the terminal: escapes and carriage-return
// redraws are dropped and tabs are expanded so width math holds.
func CleanLogText(s string) string {
	s = sanitize.PlainLine(s)
	return strings.TrimRight(strings.ReplaceAll(s, "\t", "    "), " ")
}

// VisualWidth is the number of terminal cells s occupies.
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate trims s and cuts it to maxLen cells, ending in "..." when ellipsis
// is set and there is room for it.
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 {
		return ""
	}

	visualWidth := VisualWidth(s)
	if visualWidth > maxLen {
		if ellipsis && maxLen > 3 {
			return runewidth.Truncate(s, maxLen-3, "") + "..."
		}
		return runewidth.Truncate(s, maxLen, "")
	}
	return s
}

// TruncateAndPad is Truncate padded with spaces to exactly width cells, for
// the list's fixed columns.
func TruncateAndPad(s string, width int, ellipsis bool) string {
	s = Truncate(s, width, ellipsis)
	visualWidth := VisualWidth(s)
	if visualWidth < width {
		return s + strings.Repeat(" ", width-visualWidth)
	}
	return s
}

// Wrap breaks text into lines of at most width cells. Words longer than a
// line (URLs, paths) are split.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	lineLength := 0
	for _, word := range words {
		wordLen := VisualWidth(word)

		if wordLen > width {
			if lineLength > 0 {
				result.WriteString("\n")
				lineLength = 0
			}

			for _, chunk := range splitWidth(word, width) {
				if lineLength > 0 {
					result.WriteString("\n")
				}
				result.WriteString(chunk)
				lineLength = VisualWidth(chunk)
			}
			continue
		}

		if lineLength == 0 {
			result.WriteString(word)
			lineLength = wordLen
		} else if lineLength+1+wordLen <= width {
			result.WriteString(" ")
			result.WriteString(word)
			lineLength += 1 + wordLen
		} else {
			result.WriteString("\n")
			result.WriteString(word)
			lineLength = wordLen
		}
	}

	return result.String()
}

// splitWidth breaks s into pieces no wider than width. A rune wider than
// width gets a piece of its own.
func splitWidth(s string, width int) []string {
	var (
		chunks []string
		cur    strings.Builder
		curW   int
	)
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if curW+w > width && curW > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curW = 0
		}
		cur.WriteRune(r)
		curW += w
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

package tui

import (
	"fmt"
	"strings"
)

// Item is one phase of an aggregated build log as shown in the phase list.
// It implements bubbles/list.Item.
type Item struct {
	Phase string
	Lines []string
	Rank  int
	// Matches counts lines containing the active search query.
	Matches int
}

// FilterValue is the value used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Phase }

// Title returns the primary text for the item (required by list.Item).
func (i Item) Title() string { return i.Phase }

// Description returns the secondary text for the item (required by list.Item).
func (i Item) Description() string { return fmt.Sprintf("%d lines", len(i.Lines)) }

// Count returns the number of lines in the phase.
func (i Item) Count() int {
	return len(i.Lines)
}

// contains reports whether the phase name or any line holds query, and how
// many lines do. query must be lower case.
func (i Item) contains(query string) (bool, int) {
	n := 0
	for _, line := range i.Lines {
		if strings.Contains(strings.ToLower(line), query) {
			n++
		}
	}
	return n > 0 || strings.Contains(strings.ToLower(i.Phase), query), n
}

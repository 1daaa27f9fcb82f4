package aggregate

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// PhaseGroup maps phase name to formatted lines.
// Keys iterate in first-insertion order; lines keep append order.
type PhaseGroup struct {
	phases *orderedmap.OrderedMap[string, []string]
}

// NewPhaseGroup returns an empty group.
func NewPhaseGroup() *PhaseGroup {
	return &PhaseGroup{phases: orderedmap.New[string, []string]()}
}

// Add appends a formatted line to phase, registering the phase if it is new.
func (g *PhaseGroup) Add(phase, formatted string) {
	lines, _ := g.phases.Get(phase)
	g.phases.Set(phase, append(lines, formatted))
}

// Len returns the number of phases.
func (g *PhaseGroup) Len() int {
	return g.phases.Len()
}

// Phases returns phase names in iteration order.
func (g *PhaseGroup) Phases() []string {
	keys := make([]string, 0, g.phases.Len())
	for pair := g.phases.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Lines returns the formatted lines of one phase.
func (g *PhaseGroup) Lines(phase string) []string {
	lines, _ := g.phases.Get(phase)
	return lines
}

// Render serializes the group: per phase a "=== phase ===" header, the lines
// joined by newlines, then a blank line. An empty group renders as "".
func (g *PhaseGroup) Render() string {
	var b strings.Builder
	for pair := g.phases.Oldest(); pair != nil; pair = pair.Next() {
		b.WriteString("=== ")
		b.WriteString(pair.Key)
		b.WriteString(" ===\n")
		b.WriteString(strings.Join(pair.Value, "\n"))
		b.WriteString("\n\n")
	}
	return b.String()
}

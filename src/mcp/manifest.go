package mcp

import (
	"easlog/src/actions"
	"easlog/src/aggregate"
	"easlog/src/artifact"
	"easlog/src/provider"
)

// Output limits. Build failures usually sit at the end of a phase, so
// summaries keep the tail.
const (
	DefaultTailLines = 20
	MaxTailLines     = 200
	DefaultPageLines = 500
	MaxPageLines     = 2000
)

// ToManifest summarizes an aggregation for rec.
func ToManifest(exportID string, rec *provider.BuildRecord, res *aggregate.Result, tail int) Manifest {
	tail = clamp(tail, DefaultTailLines, MaxTailLines)

	m := Manifest{
		ExportID: exportID,
		Build: BuildInfo{
			ID:              rec.ID,
			Slug:            rec.Slug,
			Platform:        rec.Platform,
			BuildProfile:    rec.BuildProfile,
			AppVersion:      rec.AppVersion,
			AppBuildVersion: rec.AppBuildVersion,
			Fragments:       len(rec.LogFragmentURLs),
		},
		Phases:     []PhaseSummary{},
		TotalLines: res.Lines,
		Failures:   len(res.Failures),
		Filename:   artifact.LogsFilename(rec),
		Actions:    actions.For(rec),
	}

	for _, phase := range res.Groups.Phases() {
		lines := res.Groups.Lines(phase)
		m.Phases = append(m.Phases, PhaseSummary{
			Name:      phase,
			Lines:     len(lines),
			Tail:      CompressLines(truncateTail(lines, tail), false),
			Truncated: len(lines) > tail,
		})
	}
	return m
}

// PhasePage returns lines [offset, offset+limit) of phase.
func PhasePage(exportID string, groups *aggregate.PhaseGroup, phase string, offset, limit int, keepTime bool) (PhaseDetail, bool) {
	lines := groups.Lines(phase)
	if lines == nil {
		return PhaseDetail{}, false
	}

	limit = clamp(limit, DefaultPageLines, MaxPageLines)
	if offset < 0 {
		offset = 0
	}
	if offset > len(lines) {
		offset = len(lines)
	}
	end := min(offset+limit, len(lines))

	page := make([]string, 0, end-offset)
	for _, line := range lines[offset:end] {
		page = append(page, CompressLine(line, keepTime))
	}

	return PhaseDetail{
		ExportID:  exportID,
		Phase:     phase,
		Lines:     page,
		Offset:    offset,
		Total:     len(lines),
		Truncated: end < len(lines),
	}, true
}

// truncateTail keeps the last limit lines.
func truncateTail(lines []string, limit int) []string {
	if len(lines) <= limit {
		return lines
	}
	return lines[len(lines)-limit:]
}

func clamp(n, def, upper int) int {
	if n <= 0 {
		return def
	}
	if n > upper {
		return upper
	}
	return n
}

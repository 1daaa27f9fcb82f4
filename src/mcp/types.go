// Package mcp exposes build log export as MCP tools.
package mcp

import "easlog/src/actions"

// BuildInfo contains build metadata.
type BuildInfo struct {
	ID              string `json:"id"`
	Slug            string `json:"slug"`
	Platform        string `json:"platform"`
	BuildProfile    string `json:"build_profile"`
	AppVersion      string `json:"app_version"`
	AppBuildVersion string `json:"app_build_version"`
	Fragments       int    `json:"fragments"`
}

// PhaseSummary describes one phase of an aggregated document.
type PhaseSummary struct {
	Name  string `json:"name"`
	Lines int    `json:"lines"`
	// Tail holds the last lines of the phase, compressed.
	Tail      []string `json:"tail"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Manifest is the export_build_logs response.
// Phases appear in document order; use get_export to read a whole phase.
type Manifest struct {
	ExportID   string           `json:"export_id"`
	Build      BuildInfo        `json:"build"`
	Phases     []PhaseSummary   `json:"phases"`
	TotalLines int              `json:"total_lines"`
	Failures   int              `json:"failures"`
	Filename   string           `json:"filename"`
	Actions    []actions.Action `json:"actions"`
}

// PhaseDetail is the get_export response for a single phase.
type PhaseDetail struct {
	ExportID  string   `json:"export_id"`
	Phase     string   `json:"phase"`
	Lines     []string `json:"lines"`
	Offset    int      `json:"offset"`
	Total     int      `json:"total"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Package contracts defines the messages exchanged over the broker.
package contracts

import "easlog/src/provider"

// BuildDiscovered announces a build record seen in an intercepted response.
// Published to: easlog.builds.discovered
// Key: {build_id}
type BuildDiscovered struct {
	// Build is the extracted record.
	Build *provider.BuildRecord `json:"build"`
	// Source names where the response was observed (cli, browser, server).
	Source string `json:"source"`
	// Timestamp is RFC 3339.
	Timestamp string `json:"timestamp"`
}

// ExportRequest asks an agent to run actions for a build.
// Published to: easlog.exports.requested
// Key: {build_id}
type ExportRequest struct {
	RequestID string `json:"request_id"`
	// BuildURL is a dashboard URL or bare build ID.
	BuildURL string `json:"build_url"`
	// Actions lists kinds to run; empty means every available action.
	Actions   []string `json:"actions,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// ExportResult reports one executed action.
// Published to: easlog.exports.completed
// Key: {build_id}
type ExportResult struct {
	ID         string `json:"id"`
	RequestID  string `json:"request_id,omitempty"`
	BuildID    string `json:"build_id"`
	Action     string `json:"action"`
	Filename   string `json:"filename"`
	Path       string `json:"path,omitempty"`
	Bytes      int64  `json:"bytes"`
	DurationMS int64  `json:"duration_ms"`
	Status     string `json:"status"` // ok, failed
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Topic names
const (
	// TopicBuildsDiscovered carries BuildDiscovered messages.
	TopicBuildsDiscovered = "easlog.builds.discovered"

	// TopicExportRequests carries ExportRequest messages.
	TopicExportRequests = "easlog.exports.requested"

	// TopicExportsCompleted carries ExportResult messages.
	TopicExportsCompleted = "easlog.exports.completed"
)

// Export statuses
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

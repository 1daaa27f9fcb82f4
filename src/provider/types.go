package provider

import "strings"

// BuildRef identifies a build on the EAS dashboard
type BuildRef struct {
	Provider string            // "eas"
	BuildID  string            // Build UUID
	Metadata map[string]string // Provider-specific metadata (account, project)
}

// BuildRecord is one build's export-relevant metadata.
// It is created once per intercepted response entry and never mutated afterwards.
type BuildRecord struct {
	ID              string   `json:"id"`
	Slug            string   `json:"slug"`
	AppVersion      string   `json:"app_version"`
	AppBuildVersion string   `json:"app_build_version"`
	BuildProfile    string   `json:"build_profile"`
	Platform        string   `json:"platform"`
	LogFragmentURLs []string `json:"log_fragment_urls"`
	ArchiveURL      string   `json:"archive_url,omitempty"`
	NativeLogURL    string   `json:"native_log_url,omitempty"`
}

// HasLogs reports whether the build carries at least one log fragment.
func (r *BuildRecord) HasLogs() bool {
	return len(r.LogFragmentURLs) > 0
}

// PlatformLower returns the platform in lower case, as used in log filenames.
func (r *BuildRecord) PlatformLower() string {
	return strings.ToLower(r.Platform)
}

// Clone returns a deep copy so receivers can't alias the fragment slice.
func (r *BuildRecord) Clone() *BuildRecord {
	c := *r
	c.LogFragmentURLs = append([]string(nil), r.LogFragmentURLs...)
	return &c
}

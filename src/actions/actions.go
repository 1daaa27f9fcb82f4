// Package actions defines the per-build download actions and runs them.
package actions

import (
	"errors"
	"fmt"
	"strings"

	"easlog/src/artifact"
	"easlog/src/provider"
)

var (
	// ErrUnavailable means the build has nothing for the requested action.
	ErrUnavailable = errors.New("action not available for this build")
	// ErrAnchorMissing means the page has no "Install" control to attach buttons to.
	ErrAnchorMissing = errors.New("install control not found on page")
	// ErrUnknownAction is returned by ParseKind.
	ErrUnknownAction = errors.New("unknown action")
)

// Kind identifies an action. Values double as metric labels.
type Kind string

const (
	KindLogs      Kind = "logs"
	KindXcodeLogs Kind = "xcode_logs"
	KindApp       Kind = "app"
)

// Label returns the button text for k.
func (k Kind) Label() string {
	switch k {
	case KindLogs:
		return "Logs"
	case KindXcodeLogs:
		return "Xcode Logs"
	case KindApp:
		return "App"
	}
	return string(k)
}

// ParseKind accepts a kind, its label, or the short form "xcode".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "logs":
		return KindLogs, nil
	case "xcode", "xcode_logs", "xcode logs":
		return KindXcodeLogs, nil
	case "app":
		return KindApp, nil
	}
	return "", fmt.Errorf("%w: %q (expected logs, xcode or app)", ErrUnknownAction, s)
}

// Action is one available download for a build.
type Action struct {
	Kind     Kind   `json:"kind"`
	Label    string `json:"label"`
	Filename string `json:"filename"`
	// URL is the single source for xcode_logs and app; empty for logs.
	URL string `json:"url,omitempty"`
	// Fragments is the fragment count for logs.
	Fragments int `json:"fragments,omitempty"`
}

// For lists the actions available for r in display order.
func For(r *provider.BuildRecord) []Action {
	var out []Action
	if r.HasLogs() {
		out = append(out, Action{
			Kind:      KindLogs,
			Label:     KindLogs.Label(),
			Filename:  artifact.LogsFilename(r),
			Fragments: len(r.LogFragmentURLs),
		})
	}
	if r.NativeLogURL != "" {
		out = append(out, Action{
			Kind:     KindXcodeLogs,
			Label:    KindXcodeLogs.Label(),
			Filename: artifact.NativeLogFilename(r),
			URL:      r.NativeLogURL,
		})
	}
	if r.ArchiveURL != "" {
		out = append(out, Action{
			Kind:     KindApp,
			Label:    KindApp.Label(),
			Filename: artifact.ArchiveFilename(r),
			URL:      r.ArchiveURL,
		})
	}
	return out
}

// Lookup returns the action of kind k for r.
func Lookup(r *provider.BuildRecord, k Kind) (Action, error) {
	for _, a := range For(r) {
		if a.Kind == k {
			return a, nil
		}
	}
	return Action{}, fmt.Errorf("%w: %s for build %s", ErrUnavailable, k.Label(), r.ID)
}

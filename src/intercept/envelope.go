package intercept

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"easlog/src/provider"
)

// ErrNotBatch is returned when a response body is not a JSON array of envelopes.
var ErrNotBatch = errors.New("response body is not a JSON array")

// envelope is one entry of a batched GraphQL response. Every level is optional;
// only entries with data.builds.byId carry a build.
type envelope struct {
	Data *struct {
		Builds *struct {
			ByID json.RawMessage `json:"byId"`
		} `json:"builds"`
	} `json:"data"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(data)
	return nil
}

// buildNode mirrors builds.byId in the dashboard's GraphQL schema.
type buildNode struct {
	ID              string     `json:"id"`
	Platform        string     `json:"platform"`
	BuildProfile    string     `json:"buildProfile"`
	AppVersion      flexString `json:"appVersion"`
	AppBuildVersion flexString `json:"appBuildVersion"`
	LogFiles        []string   `json:"logFiles"`
	App             *struct {
		Slug string `json:"slug"`
	} `json:"app"`
	Artifacts *struct {
		ApplicationArchiveURL string `json:"applicationArchiveUrl"`
		XcodeBuildLogsURL     string `json:"xcodeBuildLogsUrl"`
	} `json:"artifacts"`
}

func (n *buildNode) record() *provider.BuildRecord {
	rec := &provider.BuildRecord{
		ID:              n.ID,
		Platform:        n.Platform,
		BuildProfile:    n.BuildProfile,
		AppVersion:      string(n.AppVersion),
		AppBuildVersion: string(n.AppBuildVersion),
		LogFragmentURLs: append([]string(nil), n.LogFiles...),
	}
	if n.App != nil {
		rec.Slug = n.App.Slug
	}
	if n.Artifacts != nil {
		rec.ArchiveURL = n.Artifacts.ApplicationArchiveURL
		rec.NativeLogURL = n.Artifacts.XcodeBuildLogsURL
	}
	return rec
}

// Extraction summarizes one body.
type Extraction struct {
	Records []*provider.BuildRecord
	// Skipped counts envelopes without a build.
	Skipped int
	// Invalid counts envelopes whose build node failed to decode.
	Invalid int
}

// ExtractBuilds pulls every build record out of a batched response body.
// Envelopes without data.builds.byId are skipped; that is not an error.
func ExtractBuilds(body []byte) (*Extraction, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotBatch
	}

	var envelopes []json.RawMessage
	if err := json.Unmarshal(trimmed, &envelopes); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	ex := &Extraction{}
	for _, raw := range envelopes {
		node, err := buildFrom(raw)
		switch {
		case err != nil:
			ex.Invalid++
		case node == nil:
			ex.Skipped++
		default:
			ex.Records = append(ex.Records, node.record())
		}
	}
	return ex, nil
}

// buildFrom returns nil, nil when the envelope has no build.
func buildFrom(raw json.RawMessage) (*buildNode, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Not an object (or a differently shaped one): nothing to extract.
		return nil, nil
	}
	if env.Data == nil || env.Data.Builds == nil {
		return nil, nil
	}
	byID := bytes.TrimSpace(env.Data.Builds.ByID)
	if len(byID) == 0 || string(byID) == "null" {
		return nil, nil
	}
	if byID[0] != '{' {
		return nil, fmt.Errorf("builds.byId is not an object")
	}

	var node buildNode
	if err := json.Unmarshal(byID, &node); err != nil {
		return nil, fmt.Errorf("failed to decode build: %w", err)
	}
	return &node, nil
}

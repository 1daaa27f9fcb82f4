// Package eas provides a client for the Expo EAS dashboard GraphQL API.
package eas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"easlog/src/intercept"
	"easlog/src/provider"
)

const (
	// APIURL is the GraphQL endpoint the dashboard talks to.
	APIURL = intercept.DefaultEndpoint

	buildOperation = "BuildQuery"
	buildQuery     = `query BuildQuery($buildId: ID!) {
  builds {
    byId(buildId: $buildId) {
      id
      platform
      buildProfile
      appVersion
      appBuildVersion
      logFiles
      app { id slug }
      artifacts { applicationArchiveUrl xcodeBuildLogsUrl }
    }
  }
}`
)

// Client is an EAS GraphQL client.
// Requests go out as single-entry batches, the shape the dashboard uses.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIURL points the client at a different endpoint.
func WithAPIURL(url string) Option {
	return func(c *Client) { c.apiURL = url }
}

// WithTransport routes requests through rt, e.g. an interceptor.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// NewClient creates a new EAS API client. token may be empty.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		apiURL: APIURL,
		token:  token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLRequest struct {
	OperationName string                 `json:"operationName"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		ErrorCode string `json:"errorCode"`
	} `json:"extensions"`
}

// GetBuild fetches a build's record.
func (c *Client) GetBuild(ctx context.Context, buildID string) (*provider.BuildRecord, error) {
	payload, err := json.Marshal([]graphQLRequest{{
		OperationName: buildOperation,
		Query:         buildQuery,
		Variables:     map[string]interface{}{"buildId": buildID},
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if err := statusError(resp.StatusCode, body); err != nil {
		return nil, err
	}

	ex, err := intercept.ExtractBuilds(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	for _, rec := range ex.Records {
		if rec.ID == buildID || len(ex.Records) == 1 {
			return rec, nil
		}
	}

	if gqlErr := firstGraphQLError(body); gqlErr != nil {
		if gqlErr.Extensions.ErrorCode == "UNAUTHORIZED_ERROR" {
			return nil, fmt.Errorf("%w: %s", provider.ErrAuthFailed, gqlErr.Message)
		}
		if strings.Contains(strings.ToLower(gqlErr.Message), "not found") {
			return nil, fmt.Errorf("%w: %s", provider.ErrBuildNotFound, gqlErr.Message)
		}
		return nil, fmt.Errorf("GraphQL error: %s", gqlErr.Message)
	}

	return nil, fmt.Errorf("%w: build %s", provider.ErrNoBuildData, buildID)
}

func statusError(code int, body []byte) error {
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d", provider.ErrAuthFailed, code)
	case http.StatusNotFound:
		return fmt.Errorf("%w: status %d", provider.ErrBuildNotFound, code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", provider.ErrRateLimited, code)
	case http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", provider.ErrNetworkTimeout, code)
	default:
		return fmt.Errorf("API request failed with status %d: %s", code, string(body))
	}
}

func firstGraphQLError(body []byte) *graphQLError {
	var entries []struct {
		Errors []graphQLError `json:"errors"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil
	}
	for _, e := range entries {
		if len(e.Errors) > 0 {
			return &e.Errors[0]
		}
	}
	return nil
}

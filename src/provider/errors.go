package provider

import (
	"errors"
	"strings"
)

var (
	ErrAuthFailed     = errors.New("authentication failed")
	ErrBuildNotFound  = errors.New("build not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrNetworkTimeout = errors.New("network timeout")
	ErrNoBuildData    = errors.New("response carried no build data")
)

// UserError is an error with a message and hint meant for people, not logs.
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Hint != "" {
		b.WriteString("\n\nHint: ")
		b.WriteString(e.Hint)
	}
	if e.Err != nil {
		b.WriteString("\n\nDetails: ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// explanation turns a class of failure into a UserError.
type explanation struct {
	// sentinels match with errors.Is; statuses match the bare HTTP status text
	// some transports return.
	sentinels []error
	statuses  []string
	message   string
	hint      string
}

var explanations = []explanation{
	{
		sentinels: []error{ErrInvalidURL},
		message:   "Invalid build URL",
		hint:      "Supported formats:\n  - https://expo.dev/accounts/<account>/projects/<project>/builds/<build-id>\n  - <build-id> (UUID)",
	},
	{
		sentinels: []error{ErrAuthFailed},
		statuses:  []string{"401 Unauthorized", "403 Forbidden"},
		message:   "Authentication failed",
		hint:      "The dashboard session was rejected. Set EXPO_TOKEN to a token with access to the project.",
	},
	{
		sentinels: []error{ErrBuildNotFound, ErrNoBuildData},
		statuses:  []string{"404 Not Found"},
		message:   "Build not found",
		hint:      "Check that the build URL is correct and you have access to the project.",
	},
	{
		sentinels: []error{ErrRateLimited},
		statuses:  []string{"429 Too Many Requests"},
		message:   "Too many requests to EAS",
		hint:      "Wait a minute and retry, or lower --concurrency.",
	},
	{
		sentinels: []error{ErrNetworkTimeout},
		message:   "EAS did not answer in time",
		hint:      "Check your connection; large builds may need a retry.",
	},
}

func (x explanation) matches(err error) bool {
	for _, s := range x.sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	msg := err.Error()
	for _, s := range x.statuses {
		if msg == s {
			return true
		}
	}
	return false
}

// WrapError explains known failures. Other errors are returned unchanged.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return err
	}
	for _, x := range explanations {
		if x.matches(err) {
			return &UserError{Message: x.message, Hint: x.hint, Err: err}
		}
	}
	return err
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

var (
	ErrInvalidURL      = errors.New("invalid build URL")
	ErrProviderUnknown = errors.New("unknown build provider")
)

// Provider defines the interface for build dashboard integrations
type Provider interface {
	// Name returns the provider name (e.g., "eas")
	Name() string

	// ParseURL extracts build reference from a dashboard URL or bare build ID
	ParseURL(url string) (*BuildRef, error)

	// FetchBuild retrieves the build record for a reference
	FetchBuild(ctx context.Context, ref *BuildRef) (*BuildRecord, error)
}

// Factory constructs a provider from an access token.
type Factory func(token string) Provider

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// RegisterProvider makes a provider factory available by name.
// Providers register themselves from init.
func RegisterProvider(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Providers returns the registered provider names in sorted order.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	easBuildURLPattern = regexp.MustCompile(`^https://expo\.dev/accounts/([^/]+)/projects/([^/]+)/builds/([0-9a-fA-F-]{8,})`)
	buildIDPattern     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// ParseURL detects provider and parses build reference from URL.
// A bare build UUID is accepted as well.
func ParseURL(url string) (*BuildRef, error) {
	if matches := easBuildURLPattern.FindStringSubmatch(url); matches != nil {
		return &BuildRef{
			Provider: "eas",
			BuildID:  matches[3],
			Metadata: map[string]string{
				"account": matches[1],
				"project": matches[2],
			},
		}, nil
	}

	if buildIDPattern.MatchString(url) {
		return &BuildRef{
			Provider: "eas",
			BuildID:  url,
			Metadata: map[string]string{},
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrInvalidURL, url)
}

// GetProvider returns the appropriate provider implementation for a build ref
func GetProvider(ref *BuildRef, token string) (Provider, error) {
	registryMu.RLock()
	factory, ok := factories[ref.Provider]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnknown, ref.Provider)
	}
	return factory(token), nil
}

package provider

import (
	"context"
	"errors"
	"testing"
)

func TestBuildProvider_ParseURL(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantBuildID string
		wantAccount string
		wantErr     bool
	}{
		{
			name:        "dashboard build URL",
			url:         "https://expo.dev/accounts/acme/projects/shop/builds/0f8fad5b-d9cb-469f-a165-70867728950e",
			wantBuildID: "0f8fad5b-d9cb-469f-a165-70867728950e",
			wantAccount: "acme",
			wantErr:     false,
		},
		{
			name:        "bare build ID",
			url:         "0f8fad5b-d9cb-469f-a165-70867728950e",
			wantBuildID: "0f8fad5b-d9cb-469f-a165-70867728950e",
			wantErr:     false,
		},
		{
			name:    "project URL without build",
			url:     "https://expo.dev/accounts/acme/projects/shop",
			wantErr: true,
		},
		{
			name:    "invalid URL",
			url:     "https://example.com/invalid",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("ParseURL() error = %v, want ErrInvalidURL", err)
				}
				return
			}
			if ref.Provider != "eas" {
				t.Errorf("ParseURL() provider = %q, want %q", ref.Provider, "eas")
			}
			if ref.BuildID != tt.wantBuildID {
				t.Errorf("ParseURL() build ID = %q, want %q", ref.BuildID, tt.wantBuildID)
			}
			if ref.Metadata["account"] != tt.wantAccount {
				t.Errorf("ParseURL() account = %q, want %q", ref.Metadata["account"], tt.wantAccount)
			}
		})
	}
}

type stubProvider struct{ token string }

func (s *stubProvider) Name() string                           { return "stub" }
func (s *stubProvider) ParseURL(url string) (*BuildRef, error) { return ParseURL(url) }
func (s *stubProvider) FetchBuild(_ context.Context, _ *BuildRef) (*BuildRecord, error) {
	return nil, nil
}

func TestGetProvider(t *testing.T) {
	RegisterProvider("stub", func(token string) Provider {
		return &stubProvider{token: token}
	})

	p, err := GetProvider(&BuildRef{Provider: "stub"}, "secret")
	if err != nil {
		t.Fatalf("GetProvider() unexpected error: %v", err)
	}
	if got := p.(*stubProvider).token; got != "secret" {
		t.Errorf("GetProvider() token = %q, want %q", got, "secret")
	}

	if _, err := GetProvider(&BuildRef{Provider: "nope"}, ""); !errors.Is(err, ErrProviderUnknown) {
		t.Errorf("GetProvider(nope) error = %v, want ErrProviderUnknown", err)
	}
}

func TestBuildRecord_Clone(t *testing.T) {
	orig := &BuildRecord{ID: "b1", Platform: "IOS", LogFragmentURLs: []string{"a", "b"}}
	c := orig.Clone()
	c.LogFragmentURLs[0] = "changed"

	if orig.LogFragmentURLs[0] != "a" {
		t.Errorf("Clone() shares fragment slice with original")
	}
	if c.PlatformLower() != "ios" {
		t.Errorf("PlatformLower() = %q, want %q", c.PlatformLower(), "ios")
	}
}

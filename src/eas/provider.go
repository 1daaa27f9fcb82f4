package eas

import (
	"context"

	"easlog/src/provider"
)

func init() {
	provider.RegisterProvider("eas", func(token string) provider.Provider {
		return NewProvider(NewClient(token))
	})
}

// Provider implements provider.Provider for the EAS dashboard
type Provider struct {
	client *Client
}

// NewProvider creates an EAS provider around client
func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

// Name returns "eas"
func (p *Provider) Name() string {
	return "eas"
}

// ParseURL delegates to provider.ParseURL
func (p *Provider) ParseURL(url string) (*provider.BuildRef, error) {
	return provider.ParseURL(url)
}

// FetchBuild retrieves the build record through the GraphQL API
func (p *Provider) FetchBuild(ctx context.Context, ref *provider.BuildRef) (*provider.BuildRecord, error) {
	return p.client.GetBuild(ctx, ref.BuildID)
}

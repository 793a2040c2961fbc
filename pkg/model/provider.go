package model

import "context"

// Provider builds Model instances for one backend. The factory dispatches
// on Name.
type Provider interface {
	Name() string
	NewModel(ctx context.Context, cfg ModelConfig) (Model, error)
}

// ModelConfig is the provider-independent model description. Backend-only
// knobs (sampling, metadata) go through Extra so the common surface stays
// small.
type ModelConfig struct {
	Name     string
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Headers  map[string]string
	Extra    map[string]any
}

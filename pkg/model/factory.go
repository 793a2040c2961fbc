package model

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory resolves ModelConfig.Provider to a registered Provider and asks it
// for a model instance.
type Factory struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewFactory(providers ...Provider) *Factory {
	f := &Factory{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		f.Register(p)
	}
	return f
}

// Register adds p under its name, replacing any previous registration.
// Nil providers are ignored.
func (f *Factory) Register(p Provider) {
	if p == nil {
		return
	}
	f.mu.Lock()
	if f.providers == nil {
		f.providers = make(map[string]Provider, 1)
	}
	f.providers[p.Name()] = p
	f.mu.Unlock()
}

// Providers lists the registered provider names in sorted order.
func (f *Factory) Providers() []string {
	f.mu.RLock()
	names := make([]string, 0, len(f.providers))
	for name := range f.providers {
		names = append(names, name)
	}
	f.mu.RUnlock()
	sort.Strings(names)
	return names
}

// NewModel builds a model through the provider named in cfg.Provider.
func (f *Factory) NewModel(ctx context.Context, cfg ModelConfig) (Model, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("model provider not specified")
	}

	f.mu.RLock()
	p, ok := f.providers[cfg.Provider]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("model provider %q is not registered (have %v)", cfg.Provider, f.Providers())
	}
	return p.NewModel(ctx, cfg)
}

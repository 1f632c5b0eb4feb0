package hooks

import (
	"context"
	"maps"
	"slices"
	"sync"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
)

// Provider contributes registrations to a build's registry.
type Provider interface {
	Provide(ctx context.Context, global *GlobalContext, r *Registry) error
}

// Provide registers the configuration as ad-hoc hooks.
func (h HooksConfig) Provide(_ context.Context, _ *GlobalContext, r *Registry) error {
	return r.RegisterHooks(h)
}

// HooksFunc computes a hook configuration from the build context.
type HooksFunc func(ctx context.Context, global *GlobalContext) (HooksConfig, error)

func (f HooksFunc) Provide(ctx context.Context, global *GlobalContext, r *Registry) error {
	cfg, err := f(ctx, global)
	if err != nil {
		return err
	}
	return r.RegisterHooks(cfg)
}

// RegistryFunc registers hooks and jobs directly on the registry.
type RegistryFunc func(ctx context.Context, global *GlobalContext, r *Registry) error

func (f RegistryFunc) Provide(ctx context.Context, global *GlobalContext, r *Registry) error {
	return f(ctx, global, r)
}

// ProviderTable holds named providers that configuration can refer to.
type ProviderTable struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewProviderTable creates an empty table.
func NewProviderTable() *ProviderTable {
	return &ProviderTable{providers: make(map[string]Provider)}
}

// Register adds a provider under name.
func (t *ProviderTable) Register(name string, p Provider) error {
	if name == "" || p == nil {
		return perrors.ConfigInvalid("provider", "provider name and implementation are required")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.providers[name]; exists {
		return perrors.ConfigInvalid("provider", "provider "+name+" already registered").
			WithContext("provider", name)
	}
	t.providers[name] = p
	return nil
}

// MustRegister is Register for package initialization; it panics on error.
func (t *ProviderTable) MustRegister(name string, p Provider) {
	if err := t.Register(name, p); err != nil {
		panic(err)
	}
}

// Lookup returns the provider registered under name.
func (t *ProviderTable) Lookup(name string) (Provider, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.providers[name]
	if !ok {
		return nil, perrors.UnknownProvider(name)
	}
	return p, nil
}

// Names returns the registered provider names, sorted.
func (t *ProviderTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.providers))
}

var defaultProviders = NewProviderTable()

// DefaultProviderTable returns the process-wide provider table.
func DefaultProviderTable() *ProviderTable { return defaultProviders }

func RegisterProvider(name string, p Provider) error { return defaultProviders.Register(name, p) }
func LookupProvider(name string) (Provider, error)   { return defaultProviders.Lookup(name) }
func Providers() []string                           { return defaultProviders.Names() }

// Assemble builds a registry by running providers in order, then registering jobs in order.
func Assemble(ctx context.Context, global *GlobalContext, providers []Provider, jobs []JobType, opts ...RegistryOption) (*Registry, error) {
	r := NewRegistry(opts...)
	for _, p := range providers {
		if err := p.Provide(ctx, global, r); err != nil {
			return nil, err
		}
	}
	for _, id := range jobs {
		if err := r.RegisterJob(id); err != nil {
			return nil, err
		}
	}
	return r, nil
}

package ai

import (
	"context"
	"sort"
	"sync"

	"hermes/pkg/errors"
)

// ProviderRegistry stores all available AI providers.
type ProviderRegistry struct {
	providers map[string]ChatProvider
	mu        sync.RWMutex
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ChatProvider),
	}
}

// Register adds a provider to the registry.
func (r *ProviderRegistry) Register(provider ChatProvider) error {
	if provider == nil {
		return errors.Wrap(errors.ErrInvalidInput, "provider is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return errors.Wrapf(errors.ErrAlreadyExists, "provider %s already registered", name)
	}

	r.providers[name] = provider
	return nil
}

// Get returns the provider by name.
func (r *ProviderRegistry) Get(name string) (ChatProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[NormalizeProviderName(name)]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "provider %s not found", name)
	}

	return provider, nil
}

// Has reports whether a provider is registered.
func (r *ProviderRegistry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// List returns all registered providers in stable order.
func (r *ProviderRegistry) List() []ChatProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	providers := make([]ChatProvider, 0, len(names))
	for _, name := range names {
		providers = append(providers, r.providers[name])
	}

	return providers
}

// ListModels aggregates all models across providers.
func (r *ProviderRegistry) ListModels(ctx context.Context) (map[string][]ModelInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string][]ModelInfo, len(r.providers))
	for name, provider := range r.providers {
		models, err := provider.ListModels(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "list models for provider %s", name)
		}
		result[name] = models
	}

	return result, nil
}

// ResolveModel fetches model metadata for provider+model combination.
func (r *ProviderRegistry) ResolveModel(ctx context.Context, providerName string, model string) (ModelInfo, error) {
	provider, err := r.Get(providerName)
	if err != nil {
		return ModelInfo{}, err
	}

	return provider.GetModel(ctx, model)
}

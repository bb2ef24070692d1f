package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/systmms/secretcache/internal/config"
	scerrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/pkg/provider"
)

// Registry manages provider creation and registration
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry creates a new provider registry with built-in providers
func NewRegistry() *Registry {
	return &Registry{factories: builtinFactories()}
}

// Register registers a provider factory for a given type, replacing any
// factory already registered under it.
func (r *Registry) Register(providerType string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[providerType] = factory
}

// New creates the provider for a configured store.
func (r *Registry) New(name string, cfg config.StoreConfig) (provider.Provider, error) {
	r.mu.RLock()
	factory, exists := r.factories[cfg.Type]
	r.mu.RUnlock()
	if !exists {
		return nil, scerrors.ConfigError{
			Field:      fmt.Sprintf("stores.%s.type", name),
			Value:      cfg.Type,
			Message:    "unknown store type",
			Suggestion: "Use one of: " + strings.Join(r.Types(), ", "),
		}
	}

	p, err := factory(name, cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("store %q: %w", name, err)
	}
	return p, nil
}

// Types returns the registered store types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for providerType := range r.factories {
		types = append(types, providerType)
	}
	sort.Strings(types)
	return types
}

// IsSupported checks if a provider type is supported
func (r *Registry) IsSupported(providerType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[providerType]
	return exists
}

package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/systmms/secretcache/pkg/provider"
)

// LiteralProvider serves values from configuration. It never fails except for
// missing keys, which makes it useful for development and for exercising the
// resolver without a remote store.
type LiteralProvider struct {
	name string

	mu     sync.RWMutex
	values map[string]string
}

// NewLiteralProvider creates a new literal provider with predefined values
func NewLiteralProvider(name string, values map[string]string) *LiteralProvider {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &LiteralProvider{
		name:   name,
		values: copied,
	}
}

// Name returns the provider's name
func (l *LiteralProvider) Name() string {
	return l.name
}

// Fetch returns the configured value for key.
func (l *LiteralProvider) Fetch(ctx context.Context, key string) (provider.SecretValue, error) {
	if err := ctx.Err(); err != nil {
		return provider.SecretValue{}, transportError(l.name, "lookup", err)
	}

	l.mu.RLock()
	value, exists := l.values[key]
	l.mu.RUnlock()
	if !exists {
		return provider.SecretValue{}, notFound(l.name, key)
	}
	return provider.SecretValue{Value: []byte(value)}, nil
}

// SetValue adds or replaces a value.
func (l *LiteralProvider) SetValue(key, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values[key] = value
}

// NewLiteralProviderFactory creates a literal provider factory
func NewLiteralProviderFactory(name string, cfg map[string]interface{}) (provider.Provider, error) {
	values := make(map[string]string)
	if configMap, ok := cfg["values"].(map[string]interface{}); ok {
		for k, v := range configMap {
			switch val := v.(type) {
			case string:
				values[k] = val
			case nil:
				values[k] = ""
			default:
				values[k] = fmt.Sprint(val)
			}
		}
	}
	return NewLiteralProvider(name, values), nil
}

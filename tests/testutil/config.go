// Package testutil provides test utilities and helpers for secretcache tests.
//
// This package contains shared test infrastructure, chiefly a builder for
// secretcache.yaml files.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/systmms/secretcache/internal/config"
)

// TestConfigBuilder provides a fluent API for building test configurations.
//
// Example usage:
//
//	path := testutil.NewTestConfig(t).
//	    WithDefaults(config.ResilienceSettings{CacheTTLSeconds: testutil.Ptr(30)}).
//	    WithStore("dev", "literal", map[string]any{
//	        "values": map[string]any{"db-password": "s3cret"},
//	    }).
//	    Write()
type TestConfigBuilder struct {
	config *config.Definition
	t      *testing.T
}

// NewTestConfig creates a new TestConfigBuilder starting from an empty,
// valid configuration (version: 1).
func NewTestConfig(t *testing.T) *TestConfigBuilder {
	t.Helper()

	return &TestConfigBuilder{
		config: &config.Definition{
			Version: 1,
			Stores:  make(map[string]config.StoreConfig),
		},
		t: t,
	}
}

// WithDefaults sets the resilience settings shared by all stores.
func (b *TestConfigBuilder) WithDefaults(settings config.ResilienceSettings) *TestConfigBuilder {
	b.config.Defaults = settings
	return b
}

// WithStore adds a store with store-specific configuration.
func (b *TestConfigBuilder) WithStore(name, storeType string, cfg map[string]any) *TestConfigBuilder {
	b.config.Stores[name] = config.StoreConfig{Type: storeType, Config: cfg}
	return b
}

// WithStoreResilience overrides resilience settings of an existing store.
func (b *TestConfigBuilder) WithStoreResilience(name string, settings config.ResilienceSettings) *TestConfigBuilder {
	b.t.Helper()

	store, ok := b.config.Stores[name]
	if !ok {
		b.t.Fatalf("store %q not configured", name)
	}
	store.Resilience = settings
	b.config.Stores[name] = store
	return b
}

// Build returns the configuration without writing it.
func (b *TestConfigBuilder) Build() *config.Definition {
	return b.config
}

// Write writes the configuration to secretcache.yaml in a temporary
// directory and returns its path.
func (b *TestConfigBuilder) Write() string {
	b.t.Helper()

	data, err := yaml.Marshal(b.config)
	if err != nil {
		b.t.Fatalf("Failed to marshal test config: %v", err)
	}
	return WriteTestConfig(b.t, string(data))
}

// WriteTestConfig writes a hand-written YAML configuration to a temporary
// file and returns its path.
//
// Example:
//
//	path := WriteTestConfig(t, `
//	version: 1
//	stores:
//	  dev:
//	    type: literal
//	    values:
//	      api-key: "test-key"
//	`)
func WriteTestConfig(t *testing.T, yamlContent string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultPath)
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

// LoadTestConfig loads and validates a configuration file, failing the test
// on any error.
func LoadTestConfig(t *testing.T, path string) *config.Definition {
	t.Helper()

	cfg := &config.Config{Path: path}
	if err := cfg.Load(); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	return cfg.Definition
}

// Ptr returns a pointer to v, for filling ResilienceSettings.
func Ptr[T any](v T) *T {
	return &v
}

package config_test

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretcache/internal/config"
	scerrors "github.com/systmms/secretcache/internal/errors"
)

const sampleConfig = `version: 1
defaults:
  cacheTtlSeconds: 120
  retryMaxAttempts: 2
stores:
  prod-kv:
    type: azure.keyvault
    timeout_ms: 5000
    vault_url: https://prod-kv.vault.azure.net/
    resilience:
      retryMaxAttempts: 5
      circuitBreakerEnabled: false
  dev:
    type: literal
    values:
      db-password: hunter2
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secretcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func load(t *testing.T, content string) (*config.Config, error) {
	t.Helper()
	cfg := &config.Config{Path: writeConfig(t, content)}
	return cfg, cfg.Load()
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, sampleConfig)
	require.NoError(t, err)

	def := cfg.Definition
	assert.Equal(t, 1, def.Version)
	assert.Equal(t, []string{"dev", "prod-kv"}, def.StoreNames())

	store, err := def.Store("prod-kv")
	require.NoError(t, err)
	assert.Equal(t, "azure.keyvault", store.Type)
	assert.Equal(t, 5*time.Second, store.Timeout())
	assert.Equal(t, "https://prod-kv.vault.azure.net/", store.Config["vault_url"])
	assert.NotContains(t, store.Config, "resilience")
	assert.NotContains(t, store.Config, "timeout_ms")

	dev, err := def.Store("dev")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultStoreTimeout, dev.Timeout())
	assert.Equal(t, map[string]interface{}{"db-password": "hunter2"}, dev.Config["values"])
}

func TestResilienceLayering(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, sampleConfig)
	require.NoError(t, err)

	prod, err := cfg.Definition.Resilience("prod-kv")
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, prod.CacheTTL, "from defaults section")
	assert.Equal(t, 5, prod.RetryMaxAttempts, "store override wins")
	assert.False(t, prod.CircuitBreakerEnabled)
	assert.Equal(t, 1000, prod.CacheMaxEntries, "built-in default")
	assert.Equal(t, time.Second, prod.RetryBaseDelay)

	dev, err := cfg.Definition.Resilience("dev")
	require.NoError(t, err)
	assert.Equal(t, 2, dev.RetryMaxAttempts)
	assert.True(t, dev.CircuitBreakerEnabled)

	_, err = cfg.Definition.Resilience("missing")
	var ce scerrors.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Suggestion, "dev, prod-kv")
}

func TestDefaultResilience(t *testing.T) {
	t.Parallel()

	r := config.DefaultResilience()
	assert.Equal(t, 60*time.Second, r.CacheTTL)
	assert.Equal(t, 1000, r.CacheMaxEntries)
	assert.Equal(t, 3, r.RetryMaxAttempts)
	assert.Equal(t, time.Second, r.RetryBaseDelay)
	assert.True(t, r.CircuitBreakerEnabled)
	assert.Equal(t, 5.0, r.CircuitBreakerFailureThreshold)
	assert.Equal(t, 30*time.Second, r.CircuitBreakerRecoveryTimeout)
	assert.False(t, r.SealCachedValues)
	assert.NoError(t, r.Validate())
}

func TestResilienceValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		apply func(*config.Resilience)
		field string
	}{
		{"ttl", func(r *config.Resilience) { r.CacheTTL = 0 }, "cacheTtlSeconds"},
		{"max entries", func(r *config.Resilience) { r.CacheMaxEntries = -1 }, "cacheMaxEntries"},
		{"retries", func(r *config.Resilience) { r.RetryMaxAttempts = -1 }, "retryMaxAttempts"},
		{"base delay", func(r *config.Resilience) { r.RetryBaseDelay = 0 }, "retryBaseDelayMs"},
		{"threshold", func(r *config.Resilience) { r.CircuitBreakerFailureThreshold = 0 }, "circuitBreakerFailureThreshold"},
		{"recovery", func(r *config.Resilience) { r.CircuitBreakerRecoveryTimeout = 0 }, "circuitBreakerRecoveryTimeoutMs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := config.DefaultResilience()
			tt.apply(&r)

			var ce scerrors.ConfigError
			require.ErrorAs(t, r.Validate(), &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}

	t.Run("zero retries is allowed", func(t *testing.T) {
		r := config.DefaultResilience()
		r.RetryMaxAttempts = 0
		assert.NoError(t, r.Validate())
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SECRETCACHE_CACHE_TTL_SECONDS", "30")
	t.Setenv("SECRETCACHE_RETRY_MAX_ATTEMPTS", "0")
	t.Setenv("SECRETCACHE_CIRCUIT_BREAKER_ENABLED", "false")
	t.Setenv("SECRETCACHE_CIRCUIT_BREAKER_FAILURE_THRESHOLD", "0.25")

	cfg, err := load(t, sampleConfig)
	require.NoError(t, err)

	dev, err := cfg.Definition.Resilience("dev")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, dev.CacheTTL)
	assert.Equal(t, 0, dev.RetryMaxAttempts)
	assert.False(t, dev.CircuitBreakerEnabled)
	assert.Equal(t, 0.25, dev.CircuitBreakerFailureThreshold)

	// Store-level overrides still beat the environment.
	prod, err := cfg.Definition.Resilience("prod-kv")
	require.NoError(t, err)
	assert.Equal(t, 5, prod.RetryMaxAttempts)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SECRETCACHE_CACHE_MAX_ENTRIES", "42")
	t.Setenv("SECRETCACHE_SEAL_CACHED_VALUES", "true")
	t.Setenv("SECRETCACHE_UNRELATED", "ignored")

	base := config.ResilienceSettings{RetryMaxAttempts: ptr(7)}
	settings, err := config.ApplyEnv(base)
	require.NoError(t, err)

	require.NotNil(t, settings.CacheMaxEntries)
	assert.Equal(t, 42, *settings.CacheMaxEntries)
	require.NotNil(t, settings.SealCachedValues)
	assert.True(t, *settings.SealCachedValues)
	require.NotNil(t, settings.RetryMaxAttempts)
	assert.Equal(t, 7, *settings.RetryMaxAttempts, "unset variables keep the file value")
	assert.Nil(t, settings.CacheTTLSeconds)
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	t.Setenv("SECRETCACHE_RETRY_BASE_DELAY_MS", "soon")
	t.Setenv("SECRETCACHE_CIRCUIT_BREAKER_ENABLED", "maybe")
	t.Setenv("SECRETCACHE_CACHE_TTL_SECONDS", "45")

	settings, err := config.ApplyEnv(config.ResilienceSettings{})
	require.Error(t, err)

	var ce scerrors.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "SECRETCACHE_RETRY_BASE_DELAY_MS", ce.Field)
	assert.Equal(t, "soon", ce.Value)
	assert.Contains(t, err.Error(), "SECRETCACHE_CIRCUIT_BREAKER_ENABLED")

	assert.Nil(t, settings.RetryBaseDelayMs)
	assert.Nil(t, settings.CircuitBreakerEnabled)
	require.NotNil(t, settings.CacheTTLSeconds, "valid variables still apply")
	assert.Equal(t, 45, *settings.CacheTTLSeconds)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		contains string
	}{
		{"bad yaml", "version: [1", "invalid YAML"},
		{"wrong version", "version: 2\n", "schema validation failed"},
		{"missing version", "stores: {}\n", "schema validation failed"},
		{"unknown default", "version: 1\ndefaults:\n  cacheTTL: 5\n", "schema validation failed"},
		{"negative retries", "version: 1\ndefaults:\n  retryMaxAttempts: -1\n", "schema validation failed"},
		{"store without type", "version: 1\nstores:\n  a:\n    timeout_ms: 5\n", "schema validation failed"},
		{"bad vault name", "version: 1\nstores:\n  a:\n    type: azure.keyvault\n    vault_name: kv--prod\n", "invalid Azure Key Vault name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.content)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadEnvCanBreakValidation(t *testing.T) {
	t.Setenv("SECRETCACHE_CACHE_TTL_SECONDS", "0")

	_, err := load(t, "version: 1\n")
	var ce scerrors.ConfigError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, "cacheTtlSeconds", ce.Field)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Path: filepath.Join(t.TempDir(), "nope.yaml")}
	err := cfg.Load()

	var ce scerrors.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "path", ce.Field)
}

func TestValidateVaultName(t *testing.T) {
	t.Parallel()

	valid := []string{"kv1", "prod-kv", "a23456789012345678901234", "Contoso-Vault-01"}
	invalid := []string{"", "kv", "1kv", "-kv", "kv-", "kv--prod", "kv_prod", "a234567890123456789012345"}

	for _, name := range valid {
		assert.NoError(t, config.ValidateVaultName(name), name)
	}
	for _, name := range invalid {
		assert.Error(t, config.ValidateVaultName(name), name)
	}
}

func ptr[T any](v T) *T { return &v }

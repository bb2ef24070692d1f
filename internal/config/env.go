package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	scerrors "github.com/systmms/secretcache/internal/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SECRETCACHE_"

// envOverride binds one SECRETCACHE_* variable to its defaults field.
type envOverride struct {
	name string
	key  string
	want string
	dst  func(s *ResilienceSettings) interface{}
}

var envOverrides = []envOverride{
	{"CACHE_TTL_SECONDS", "cacheTtlSeconds", "an integer", func(s *ResilienceSettings) interface{} { return &s.CacheTTLSeconds }},
	{"CACHE_MAX_ENTRIES", "cacheMaxEntries", "an integer", func(s *ResilienceSettings) interface{} { return &s.CacheMaxEntries }},
	{"RETRY_MAX_ATTEMPTS", "retryMaxAttempts", "an integer", func(s *ResilienceSettings) interface{} { return &s.RetryMaxAttempts }},
	{"RETRY_BASE_DELAY_MS", "retryBaseDelayMs", "an integer", func(s *ResilienceSettings) interface{} { return &s.RetryBaseDelayMs }},
	{"CIRCUIT_BREAKER_ENABLED", "circuitBreakerEnabled", "true or false", func(s *ResilienceSettings) interface{} { return &s.CircuitBreakerEnabled }},
	{"CIRCUIT_BREAKER_FAILURE_THRESHOLD", "circuitBreakerFailureThreshold", "a number", func(s *ResilienceSettings) interface{} { return &s.CircuitBreakerFailureThreshold }},
	{"CIRCUIT_BREAKER_RECOVERY_TIMEOUT_MS", "circuitBreakerRecoveryTimeoutMs", "an integer", func(s *ResilienceSettings) interface{} { return &s.CircuitBreakerRecoveryTimeoutMs }},
	{"SEAL_CACHED_VALUES", "sealCachedValues", "true or false", func(s *ResilienceSettings) interface{} { return &s.SealCachedValues }},
}

// envKey maps a variable name to its koanf key. Unknown variables map to ""
// and are dropped by the provider.
func envKey(name string) string {
	name = strings.TrimPrefix(name, EnvPrefix)
	for _, o := range envOverrides {
		if o.name == name {
			return o.key
		}
	}
	return ""
}

// ApplyEnv overrides s with the SECRETCACHE_* variables of the process
// environment. Every variable that does not parse is reported.
func ApplyEnv(s ResilienceSettings) (ResilienceSettings, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return s, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var errs []error
	for _, o := range envOverrides {
		if !k.Exists(o.key) {
			continue
		}
		// the field is only assigned when the value decodes
		if err := k.Unmarshal(o.key, o.dst(&s)); err != nil {
			errs = append(errs, envError(o.name, k.String(o.key), o.want))
		}
	}

	return s, errors.Join(errs...)
}

func envError(name, raw, want string) error {
	return scerrors.ConfigError{
		Field:      EnvPrefix + name,
		Value:      raw,
		Message:    "must be " + want,
		Suggestion: "Fix or unset the environment variable",
	}
}

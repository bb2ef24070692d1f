package config

import (
	"errors"
	"time"

	scerrors "github.com/systmms/secretcache/internal/errors"
)

// Resilience is the effective cache, retry and breaker configuration of a
// store.
type Resilience struct {
	CacheTTL                       time.Duration
	CacheMaxEntries                int
	RetryMaxAttempts               int
	RetryBaseDelay                 time.Duration
	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold float64
	CircuitBreakerRecoveryTimeout  time.Duration
	SealCachedValues               bool
}

// DefaultResilience returns the built-in defaults.
func DefaultResilience() Resilience {
	return Resilience{
		CacheTTL:                       60 * time.Second,
		CacheMaxEntries:                1000,
		RetryMaxAttempts:               3,
		RetryBaseDelay:                 1000 * time.Millisecond,
		CircuitBreakerEnabled:          true,
		CircuitBreakerFailureThreshold: 5,
		CircuitBreakerRecoveryTimeout:  30000 * time.Millisecond,
	}
}

// Validate checks every range and returns all violations joined.
func (r Resilience) Validate() error {
	var errs []error
	if r.CacheTTL <= 0 {
		errs = append(errs, scerrors.ConfigError{
			Field:      "cacheTtlSeconds",
			Value:      int64(r.CacheTTL / time.Second),
			Message:    "must be greater than zero",
			Suggestion: "Use a value such as 60",
		})
	}
	if r.CacheMaxEntries <= 0 {
		errs = append(errs, scerrors.ConfigError{
			Field:      "cacheMaxEntries",
			Value:      r.CacheMaxEntries,
			Message:    "must be greater than zero",
			Suggestion: "Use a value such as 1000",
		})
	}
	if r.RetryMaxAttempts < 0 {
		errs = append(errs, scerrors.ConfigError{
			Field:      "retryMaxAttempts",
			Value:      r.RetryMaxAttempts,
			Message:    "must not be negative",
			Suggestion: "Use 0 to disable retries",
		})
	}
	if r.RetryBaseDelay <= 0 {
		errs = append(errs, scerrors.ConfigError{
			Field:   "retryBaseDelayMs",
			Value:   r.RetryBaseDelay.Milliseconds(),
			Message: "must be greater than zero",
		})
	}
	if r.CircuitBreakerFailureThreshold <= 0 {
		errs = append(errs, scerrors.ConfigError{
			Field:      "circuitBreakerFailureThreshold",
			Value:      r.CircuitBreakerFailureThreshold,
			Message:    "must be greater than zero",
			Suggestion: "Use a ratio such as 0.5, or a failure count per window of 10 such as 5",
		})
	}
	if r.CircuitBreakerRecoveryTimeout <= 0 {
		errs = append(errs, scerrors.ConfigError{
			Field:   "circuitBreakerRecoveryTimeoutMs",
			Value:   r.CircuitBreakerRecoveryTimeout.Milliseconds(),
			Message: "must be greater than zero",
		})
	}
	return errors.Join(errs...)
}

// ResilienceSettings is the YAML form of Resilience. Unset fields inherit.
type ResilienceSettings struct {
	CacheTTLSeconds                 *int     `yaml:"cacheTtlSeconds,omitempty"`
	CacheMaxEntries                 *int     `yaml:"cacheMaxEntries,omitempty"`
	RetryMaxAttempts                *int     `yaml:"retryMaxAttempts,omitempty"`
	RetryBaseDelayMs                *int     `yaml:"retryBaseDelayMs,omitempty"`
	CircuitBreakerEnabled           *bool    `yaml:"circuitBreakerEnabled,omitempty"`
	CircuitBreakerFailureThreshold  *float64 `yaml:"circuitBreakerFailureThreshold,omitempty"`
	CircuitBreakerRecoveryTimeoutMs *int     `yaml:"circuitBreakerRecoveryTimeoutMs,omitempty"`
	SealCachedValues                *bool    `yaml:"sealCachedValues,omitempty"`
}

// Apply returns base with every set field of s replacing it.
func (s ResilienceSettings) Apply(base Resilience) Resilience {
	r := base
	if s.CacheTTLSeconds != nil {
		r.CacheTTL = time.Duration(*s.CacheTTLSeconds) * time.Second
	}
	if s.CacheMaxEntries != nil {
		r.CacheMaxEntries = *s.CacheMaxEntries
	}
	if s.RetryMaxAttempts != nil {
		r.RetryMaxAttempts = *s.RetryMaxAttempts
	}
	if s.RetryBaseDelayMs != nil {
		r.RetryBaseDelay = time.Duration(*s.RetryBaseDelayMs) * time.Millisecond
	}
	if s.CircuitBreakerEnabled != nil {
		r.CircuitBreakerEnabled = *s.CircuitBreakerEnabled
	}
	if s.CircuitBreakerFailureThreshold != nil {
		r.CircuitBreakerFailureThreshold = *s.CircuitBreakerFailureThreshold
	}
	if s.CircuitBreakerRecoveryTimeoutMs != nil {
		r.CircuitBreakerRecoveryTimeout = time.Duration(*s.CircuitBreakerRecoveryTimeoutMs) * time.Millisecond
	}
	if s.SealCachedValues != nil {
		r.SealCachedValues = *s.SealCachedValues
	}
	return r
}

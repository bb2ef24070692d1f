// Package metrics receives resolver events and forwards them to Prometheus,
// OpenTelemetry or the log.
package metrics

import (
	"time"

	"github.com/systmms/secretcache/internal/breaker"
	"github.com/systmms/secretcache/internal/classify"
)

// Request outcome labels.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Cache operation labels.
const (
	OperationCacheHit  = "cache_hit"
	OperationCacheMiss = "cache_miss"
)

// noCategory labels outcomes that are not errors.
const noCategory = "none"

// Observer is a write-only sink for resolver events. Implementations must be
// safe for concurrent use and must not block.
type Observer interface {
	CacheHit(store string)
	CacheMiss(store string)
	Success(store string, latency time.Duration)
	NotFound(store string, latency time.Duration)
	Error(store string, latency time.Duration, category classify.Category)
	RetryAttempt(store string, attempt int, category classify.Category)
	BreakerStateChanged(store string, state breaker.State)
}

// StateValue is the gauge value for a breaker state: 0 closed, 0.5 half
// open, 1 open.
func StateValue(state breaker.State) float64 {
	switch state {
	case breaker.StateOpen:
		return 1
	case breaker.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) CacheHit(string)                                {}
func (Nop) CacheMiss(string)                               {}
func (Nop) Success(string, time.Duration)                  {}
func (Nop) NotFound(string, time.Duration)                 {}
func (Nop) Error(string, time.Duration, classify.Category) {}
func (Nop) RetryAttempt(string, int, classify.Category)    {}
func (Nop) BreakerStateChanged(string, breaker.State)      {}

type multi []Observer

// Multi fans events out to every non-nil observer in order.
func Multi(observers ...Observer) Observer {
	var m multi
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	if len(m) == 0 {
		return Nop{}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multi) CacheHit(store string) {
	for _, o := range m {
		o.CacheHit(store)
	}
}

func (m multi) CacheMiss(store string) {
	for _, o := range m {
		o.CacheMiss(store)
	}
}

func (m multi) Success(store string, latency time.Duration) {
	for _, o := range m {
		o.Success(store, latency)
	}
}

func (m multi) NotFound(store string, latency time.Duration) {
	for _, o := range m {
		o.NotFound(store, latency)
	}
}

func (m multi) Error(store string, latency time.Duration, category classify.Category) {
	for _, o := range m {
		o.Error(store, latency, category)
	}
}

func (m multi) RetryAttempt(store string, attempt int, category classify.Category) {
	for _, o := range m {
		o.RetryAttempt(store, attempt, category)
	}
}

func (m multi) BreakerStateChanged(store string, state breaker.State) {
	for _, o := range m {
		o.BreakerStateChanged(store, state)
	}
}

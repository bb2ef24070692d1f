// Package resolve turns secret names into values through a cache, a circuit
// breaker and a retry policy in front of one secret store.
package resolve

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/systmms/secretcache/internal/breaker"
	"github.com/systmms/secretcache/internal/cache"
	"github.com/systmms/secretcache/internal/classify"
	"github.com/systmms/secretcache/internal/config"
	"github.com/systmms/secretcache/internal/logging"
	"github.com/systmms/secretcache/internal/metrics"
	"github.com/systmms/secretcache/internal/retry"
	"github.com/systmms/secretcache/pkg/provider"
)

// Resolver fronts a single store. It is safe for concurrent use; the cache
// and breaker are shared by every Resolve call on the same Resolver.
type Resolver struct {
	store    provider.Provider
	name     string
	settings config.Resilience
	cache    *cache.Cache
	breaker  *breaker.Breaker
	retry    *retry.Policy
	observer metrics.Observer
	logger   *logging.Logger
	clock    clockwork.Clock
	timeout  time.Duration
}

type options struct {
	settings config.Resilience
	observer metrics.Observer
	logger   *logging.Logger
	clock    clockwork.Clock
	timeout  time.Duration
}

// Option configures a Resolver.
type Option func(*options)

// WithConfig sets the cache, retry and breaker settings. The default is
// config.DefaultResilience.
func WithConfig(r config.Resilience) Option {
	return func(o *options) {
		o.settings = r
	}
}

// WithObserver sets the metrics sink.
func WithObserver(observer metrics.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the clock shared by the cache, breaker and retry policy.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithTimeout bounds each Resolve call, retries included. Zero means no
// bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// New builds a resolver for store.
func New(store provider.Provider, opts ...Option) (*Resolver, error) {
	o := options{
		settings: config.DefaultResilience(),
		observer: metrics.Nop{},
		logger:   logging.Discard(),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.settings.Validate(); err != nil {
		return nil, err
	}

	r := &Resolver{
		store:    store,
		name:     store.Name(),
		settings: o.settings,
		observer: o.observer,
		logger:   o.logger.WithField("store", store.Name()),
		clock:    o.clock,
		timeout:  o.timeout,
	}

	cacheOpts := []cache.Option{cache.WithClock(o.clock)}
	if o.settings.SealCachedValues {
		cacheOpts = append(cacheOpts, cache.WithSealedValues())
	}
	c, err := cache.New(o.settings.CacheMaxEntries, o.settings.CacheTTL, cacheOpts...)
	if err != nil {
		return nil, err
	}
	r.cache = c

	r.retry = retry.New(o.settings.RetryMaxAttempts, o.settings.RetryBaseDelay,
		retry.WithClock(o.clock),
		retry.WithOnRetry(r.onRetry),
	)

	if o.settings.CircuitBreakerEnabled {
		r.breaker = breaker.New(
			breaker.WithName(r.name),
			breaker.WithClock(o.clock),
			breaker.WithFailureThreshold(o.settings.CircuitBreakerFailureThreshold),
			breaker.WithRecoveryTimeout(o.settings.CircuitBreakerRecoveryTimeout),
			breaker.WithOnStateChange(r.onStateChange),
		)
		r.observer.BreakerStateChanged(r.name, breaker.StateClosed)
	}

	r.logger.Debug("Resolver ready (cache ttl=%s max=%d, retries=%d base=%s, breaker=%t)",
		o.settings.CacheTTL, o.settings.CacheMaxEntries, o.settings.RetryMaxAttempts,
		o.settings.RetryBaseDelay, o.settings.CircuitBreakerEnabled)
	return r, nil
}

// Store returns the name of the store this resolver fronts.
func (r *Resolver) Store() string {
	return r.name
}

// Settings returns the effective settings.
func (r *Resolver) Settings() config.Resilience {
	return r.settings
}

// Resolve returns the current value of the named secret. found is false,
// with a nil error, when the secret does not exist or is outside its
// validity window. Any other failure is returned as *Error.
func (r *Resolver) Resolve(ctx context.Context, name string) (value []byte, found bool, err error) {
	if strings.TrimSpace(name) == "" {
		r.logger.Warn("Secret name is empty; returning no value")
		return nil, false, nil
	}
	key := Normalize(name)
	if key == "" {
		r.logger.Warn("Secret name %s has no usable characters; returning no value", logging.Mask(name))
		return nil, false, nil
	}

	if rec, ok := r.cache.Get(key); ok {
		if rec.ValidAt(r.clock.Now()) {
			r.observer.CacheHit(r.name)
			r.logger.Debug("Cache hit for %s", logging.Mask(key))
			return rec.Value, true, nil
		}
		r.cache.Invalidate(key)
		r.logger.Debug("Cached %s is outside its validity window; evicted", logging.Mask(key))
	}
	r.observer.CacheMiss(r.name)

	return r.fetch(ctx, name, key)
}

// ResolveString is Resolve for text secrets.
func (r *Resolver) ResolveString(ctx context.Context, name string) (string, bool, error) {
	value, found, err := r.Resolve(ctx, name)
	return string(value), found, err
}

func (r *Resolver) fetch(ctx context.Context, name, key string) ([]byte, bool, error) {
	ctx, cancel := withStoreTimeout(ctx, r.timeout)
	defer cancel()

	start := r.clock.Now()
	secret, err := r.call(ctx, key)
	latency := r.clock.Since(start)

	if err != nil {
		category := classify.Classify(err)
		if category == classify.NotFound {
			r.observer.NotFound(r.name, latency)
			r.logger.Debug("Secret %s not found", logging.Mask(key))
			return nil, false, nil
		}

		r.observer.Error(r.name, latency, category)
		resolveErr := newError(name, category, err)
		r.logger.Warn("Failed to resolve %s: %s (%s)", logging.Mask(key), resolveErr.Kind, category)
		return nil, false, resolveErr
	}

	rec := cache.Record{
		Value:     secret.Value,
		NotBefore: secret.Attributes.NotBefore,
		ExpiresAt: secret.Attributes.ExpiresAt,
		Enabled:   secret.Attributes.Enabled,
		Version:   secret.Attributes.Version,
	}
	if !rec.ValidAt(r.clock.Now()) {
		r.observer.NotFound(r.name, latency)
		r.logger.Debug("Secret %s is disabled or outside its validity window", logging.Mask(key))
		return nil, false, nil
	}

	r.cache.Put(key, rec)
	r.observer.Success(r.name, latency)
	r.logger.Debug("Fetched %s in %dms", logging.Mask(key), latency.Milliseconds())
	return secret.Value, true, nil
}

// call is breaker(retry(fetch)). A disabled breaker is skipped entirely.
func (r *Resolver) call(ctx context.Context, key string) (provider.SecretValue, error) {
	fetch := func(ctx context.Context) (provider.SecretValue, error) {
		return r.store.Fetch(ctx, key)
	}
	withRetry := func(ctx context.Context) (provider.SecretValue, error) {
		return retry.Execute(ctx, r.retry, fetch)
	}
	if r.breaker == nil {
		return withRetry(ctx)
	}
	return breaker.Execute(ctx, r.breaker, withRetry)
}

func (r *Resolver) onRetry(attempt int, category classify.Category, err error) {
	r.observer.RetryAttempt(r.name, attempt, category)
	r.logger.Debug("Retry %d/%d after %s: %v", attempt, r.settings.RetryMaxAttempts, category, err)
}

func (r *Resolver) onStateChange(_ string, from, to breaker.State) {
	r.observer.BreakerStateChanged(r.name, to)
	r.logger.Debug("Circuit breaker %s -> %s", from, to)
}

// Invalidate drops the cached value of name.
func (r *Resolver) Invalidate(name string) {
	key := Normalize(name)
	if key == "" {
		return
	}
	r.cache.Invalidate(key)
	r.logger.Debug("Invalidated %s", logging.Mask(key))
}

// InvalidateAll empties the cache.
func (r *Resolver) InvalidateAll() {
	r.cache.InvalidateAll()
	r.logger.Debug("Invalidated all cached secrets")
}

// Size is the number of cached entries.
func (r *Resolver) Size() int {
	return r.cache.Len()
}

// CacheStats returns the cache counters.
func (r *Resolver) CacheStats() cache.Stats {
	return r.cache.Stats()
}

// BreakerState returns the breaker state; a disabled breaker is always
// closed.
func (r *Resolver) BreakerState() breaker.State {
	if r.breaker == nil {
		return breaker.StateClosed
	}
	return r.breaker.State()
}

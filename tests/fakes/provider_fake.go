package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/systmms/secretcache/pkg/provider"
)

// FakeProvider is a manual fake implementation of provider.Provider interface.
//
// It stores secrets in memory and can be configured to return specific
// values, a fixed error, or a scripted sequence of errors per key.
//
// Example usage:
//
//	fake := fakes.NewFakeProvider("test").
//	    WithSecret("db-password", provider.SecretValue{Value: []byte("secret123")}).
//	    WithErrorSequence("api-key", errUnavailable, errUnavailable)
//
//	// Use in tests
//	secret, err := fake.Fetch(ctx, "db-password")
type FakeProvider struct {
	name string

	// Test data storage
	secrets map[string]provider.SecretValue

	// Behavior control
	failOn    map[string]error
	sequences map[string][]error
	fetchFunc func(ctx context.Context, key string) (provider.SecretValue, error)
	delay     time.Duration
	calls     map[string]int
	total     int

	// Thread safety
	mu sync.Mutex
}

// NewFakeProvider creates a new FakeProvider with the given name.
func NewFakeProvider(name string) *FakeProvider {
	return &FakeProvider{
		name:      name,
		secrets:   make(map[string]provider.SecretValue),
		failOn:    make(map[string]error),
		sequences: make(map[string][]error),
		calls:     make(map[string]int),
	}
}

// WithSecret adds a secret to the fake provider.
func (f *FakeProvider) WithSecret(key string, value provider.SecretValue) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.secrets[key] = value
	return f
}

// WithSecretString adds a secret with no validity metadata.
func (f *FakeProvider) WithSecretString(key, value string) *FakeProvider {
	return f.WithSecret(key, provider.SecretValue{Value: []byte(value)})
}

// WithError makes every Fetch of key fail with err.
func (f *FakeProvider) WithError(key string, err error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failOn[key] = err
	return f
}

// WithErrorSequence makes the next len(errs) Fetch calls of key fail with
// errs in order. Later calls behave normally.
func (f *FakeProvider) WithErrorSequence(key string, errs ...error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sequences[key] = append(f.sequences[key], errs...)
	return f
}

// WithFetchFunc replaces the lookup entirely. Calls are still counted.
func (f *FakeProvider) WithFetchFunc(fn func(ctx context.Context, key string) (provider.SecretValue, error)) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchFunc = fn
	return f
}

// WithDelay adds artificial latency to Fetch calls.
func (f *FakeProvider) WithDelay(d time.Duration) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.delay = d
	return f
}

// Name returns the provider's unique identifier.
func (f *FakeProvider) Name() string {
	return f.name
}

// Fetch returns the configured outcome for key, or NotFoundError.
func (f *FakeProvider) Fetch(ctx context.Context, key string) (provider.SecretValue, error) {
	f.mu.Lock()
	f.calls[key]++
	f.total++
	delay := f.delay
	fn := f.fetchFunc
	f.mu.Unlock()

	// Simulate network delay if configured
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return provider.SecretValue{}, ctx.Err()
		}
	}

	if fn != nil {
		return fn(ctx, key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if seq := f.sequences[key]; len(seq) > 0 {
		f.sequences[key] = seq[1:]
		return provider.SecretValue{}, seq[0]
	}
	if err, ok := f.failOn[key]; ok {
		return provider.SecretValue{}, err
	}

	secret, ok := f.secrets[key]
	if !ok {
		return provider.SecretValue{}, provider.NotFoundError{
			Provider: f.name,
			Key:      key,
		}
	}

	value := make([]byte, len(secret.Value))
	copy(value, secret.Value)
	secret.Value = value
	return secret, nil
}

// CallCount returns how many times key was fetched.
func (f *FakeProvider) CallCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[key]
}

// TotalCalls returns the number of Fetch calls across all keys.
func (f *FakeProvider) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.total
}

// ResetCallCount resets all call counters to zero.
func (f *FakeProvider) ResetCallCount() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = make(map[string]int)
	f.total = 0
}

// String returns a string representation of the fake provider.
func (f *FakeProvider) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return fmt.Sprintf("FakeProvider{name=%s, secrets=%d}", f.name, len(f.secrets))
}

// Package retry runs an operation with bounded, exponentially spaced retries
// for failures classified as transient.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"

	"github.com/systmms/secretcache/internal/classify"
)

// Policy is immutable after New and safe for concurrent use. Every call to
// Do gets its own attempt counter.
type Policy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	jitter     float64
	clock      clockwork.Clock
	retryIf    func(error) bool
	onRetry    func(attempt int, category classify.Category, err error)
}

// Option configures a Policy.
type Option func(*Policy)

// WithClock sets the clock used to wait between attempts.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Policy) {
		p.clock = clock
	}
}

// WithJitter randomizes each delay by up to factor in either direction.
// The default is no jitter.
func WithJitter(factor float64) Option {
	return func(p *Policy) {
		p.jitter = factor
	}
}

// WithMaxDelay caps a single delay.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		p.maxDelay = d
	}
}

// WithRetryIf replaces the transient check. It is only consulted for
// non-nil errors.
func WithRetryIf(fn func(error) bool) Option {
	return func(p *Policy) {
		p.retryIf = fn
	}
}

// WithOnRetry registers a callback invoked before every retry with the
// 1-based retry number and the category of the failure being retried.
func WithOnRetry(fn func(attempt int, category classify.Category, err error)) Option {
	return func(p *Policy) {
		p.onRetry = fn
	}
}

// New returns a policy that retries up to maxRetries times after the first
// attempt, so an operation runs at most maxRetries+1 times. Zero disables
// retrying. The delay before retry n is baseDelay * 2^(n-1).
func New(maxRetries int, baseDelay time.Duration, opts ...Option) *Policy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	p := &Policy{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		clock:      clockwork.NewRealClock(),
		retryIf:    classify.IsTransient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxAttempts is the total number of times Do may run an operation.
func (p *Policy) MaxAttempts() int {
	return p.maxRetries + 1
}

func (p *Policy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = p.jitter
	b.MaxInterval = time.Duration(math.MaxInt64)
	if p.maxDelay > 0 {
		b.MaxInterval = p.maxDelay
	}
	b.Reset()
	return b
}

// Do runs op until it succeeds, fails with an error that should not be
// retried, or the attempts run out. The last error is returned unchanged.
//
// ctx bounds the whole sequence. It is checked between attempts only; an
// attempt in flight is expected to honor ctx itself. When ctx ends first
// the last failure is returned joined with ctx.Err().
func (p *Policy) Do(ctx context.Context, op func(context.Context) error) error {
	b := p.newBackOff()

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return joinContext(err, ctx.Err())
		}
		if attempt > p.maxRetries || !p.retryIf(err) {
			return err
		}

		if p.onRetry != nil {
			p.onRetry(attempt, classify.Classify(err), err)
		}

		delay := b.NextBackOff()
		if p.maxDelay > 0 && delay > p.maxDelay {
			delay = p.maxDelay
		}
		if werr := p.wait(ctx, delay); werr != nil {
			return joinContext(err, werr)
		}
	}
}

func (p *Policy) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

func joinContext(err, ctxErr error) error {
	if errors.Is(err, ctxErr) {
		return err
	}
	return errors.Join(err, ctxErr)
}

// Execute is Do for operations that return a value.
func Execute[T any](ctx context.Context, p *Policy, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Package breaker implements a count-based circuit breaker with a sliding
// window of recent outcomes.
//
// State transitions are evaluated lazily under a single mutex: an open
// breaker becomes half-open on the first State or Call after the recovery
// timeout, not on a timer.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/systmms/secretcache/internal/classify"
)

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("unknown state %d", int(s))
	}
}

// ErrOpen is matched by every rejection.
var ErrOpen = errors.New("circuit breaker is open")

// OpenError is returned when a call is rejected without running.
type OpenError struct {
	Name string
	// RetryAfter is the remaining recovery time, zero when rejected because
	// a half-open trial call is already in flight.
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("circuit breaker %q is open (retry in %s)", e.Name, e.RetryAfter.Round(time.Millisecond))
	}
	return fmt.Sprintf("circuit breaker %q is open", e.Name)
}

func (e *OpenError) Unwrap() error {
	return ErrOpen
}

// NeutralFailure marks rejections as not being store failures.
func (e *OpenError) NeutralFailure() bool {
	return true
}

// Counts describes the current window.
type Counts struct {
	Calls    int
	Failures int
}

// FailureRate is Failures/Calls, or zero for an empty window.
func (c Counts) FailureRate() float64 {
	if c.Calls == 0 {
		return 0
	}
	return float64(c.Failures) / float64(c.Calls)
}

const (
	DefaultWindowSize       = 10
	DefaultMinimumCalls     = 5
	DefaultFailureThreshold = 0.5
	DefaultRecoveryTimeout  = 30 * time.Second
)

// Breaker is safe for concurrent use.
type Breaker struct {
	name            string
	windowSize      int
	minimumCalls    int
	threshold       float64
	recoveryTimeout time.Duration
	clock           clockwork.Clock
	isFailure       func(error) bool
	onStateChange   func(name string, from, to State)

	mu         sync.Mutex
	state      State
	generation uint64
	openedAt   time.Time
	probing    bool
	window     []bool
	next       int
	calls      int
	failures   int
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithName labels the breaker in errors and state change callbacks.
func WithName(name string) Option {
	return func(b *Breaker) {
		b.name = name
	}
}

// WithWindowSize sets how many recent outcomes are kept.
func WithWindowSize(n int) Option {
	return func(b *Breaker) {
		b.windowSize = n
	}
}

// WithMinimumCalls sets how many outcomes must be in the window before the
// failure rate is evaluated.
func WithMinimumCalls(n int) Option {
	return func(b *Breaker) {
		b.minimumCalls = n
	}
}

// WithFailureThreshold sets the failure rate that opens the breaker. Values
// in (0, 1) are a ratio. Values of 1 or more are a number of failures per
// full window and are converted to a ratio of the window size, so 5 with a
// window of 10 means 0.5 and 1 means 0.1.
func WithFailureThreshold(t float64) Option {
	return func(b *Breaker) {
		b.threshold = t
	}
}

// WithRecoveryTimeout sets how long the breaker stays open before allowing
// a trial call.
func WithRecoveryTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		b.recoveryTimeout = d
	}
}

// WithClock sets the clock used for the recovery timeout.
func WithClock(clock clockwork.Clock) Option {
	return func(b *Breaker) {
		b.clock = clock
	}
}

// WithIsFailure decides which errors count as failures. Errors it rejects
// are recorded as successful calls. The default is classify.CountsForBreaker.
func WithIsFailure(fn func(error) bool) Option {
	return func(b *Breaker) {
		b.isFailure = fn
	}
}

// WithOnStateChange registers a callback for every transition. It runs with
// the breaker locked and must not call back into the breaker.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onStateChange = fn
	}
}

// New returns a closed breaker.
func New(opts ...Option) *Breaker {
	b := &Breaker{
		windowSize:      DefaultWindowSize,
		minimumCalls:    DefaultMinimumCalls,
		threshold:       DefaultFailureThreshold,
		recoveryTimeout: DefaultRecoveryTimeout,
		clock:           clockwork.NewRealClock(),
		isFailure:       classify.CountsForBreaker,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.windowSize <= 0 {
		b.windowSize = DefaultWindowSize
	}
	if b.minimumCalls <= 0 {
		b.minimumCalls = 1
	}
	if b.minimumCalls > b.windowSize {
		b.minimumCalls = b.windowSize
	}
	switch {
	case b.threshold <= 0:
		b.threshold = DefaultFailureThreshold
	case b.threshold >= 1:
		b.threshold = min(b.threshold/float64(b.windowSize), 1)
	}
	if b.recoveryTimeout <= 0 {
		b.recoveryTimeout = DefaultRecoveryTimeout
	}

	b.window = make([]bool, b.windowSize)
	return b
}

// Name returns the configured name.
func (b *Breaker) Name() string {
	return b.name
}

// Threshold is the effective failure rate threshold.
func (b *Breaker) Threshold() float64 {
	return b.threshold
}

// State returns the current state, moving an expired open breaker to
// half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(b.clock.Now())
}

// Counts returns the outcomes in the current window.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Counts{Calls: b.calls, Failures: b.failures}
}

// Reset closes the breaker and clears the window.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateClosed {
		b.setState(StateClosed, b.clock.Now())
		return
	}
	b.clearWindow()
}

// Call runs op if the breaker permits it and records the outcome. A
// rejected call returns *OpenError without running op.
func (b *Breaker) Call(ctx context.Context, op func(context.Context) error) error {
	generation, err := b.before()
	if err != nil {
		return err
	}

	err = op(ctx)
	b.after(generation, err)
	return err
}

// Execute is Call for operations that return a value.
func Execute[T any](ctx context.Context, b *Breaker, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := b.Call(ctx, func(ctx context.Context) error {
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

func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	switch b.currentState(now) {
	case StateOpen:
		return 0, &OpenError{Name: b.name, RetryAfter: b.openedAt.Add(b.recoveryTimeout).Sub(now)}
	case StateHalfOpen:
		if b.probing {
			return 0, &OpenError{Name: b.name}
		}
		b.probing = true
	}
	return b.generation, nil
}

func (b *Breaker) after(generation uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// The state changed while op was running; its outcome belongs to a
	// window that no longer exists.
	if generation != b.generation {
		return
	}

	now := b.clock.Now()
	if err != nil && errors.Is(err, context.Canceled) {
		// The caller gave up; that says nothing about the store.
		b.probing = false
		return
	}
	failed := err != nil && b.isFailure(err)

	switch b.state {
	case StateHalfOpen:
		if failed {
			b.setState(StateOpen, now)
		} else {
			b.setState(StateClosed, now)
		}
	case StateClosed:
		b.record(failed)
		if b.calls >= b.minimumCalls && float64(b.failures)/float64(b.calls) >= b.threshold {
			b.setState(StateOpen, now)
		}
	}
}

func (b *Breaker) currentState(now time.Time) State {
	if b.state == StateOpen && !now.Before(b.openedAt.Add(b.recoveryTimeout)) {
		b.setState(StateHalfOpen, now)
	}
	return b.state
}

func (b *Breaker) setState(to State, now time.Time) {
	from := b.state
	if from == to {
		return
	}

	b.state = to
	b.generation++
	b.probing = false
	b.clearWindow()
	if to == StateOpen {
		b.openedAt = now
	}

	if b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}

func (b *Breaker) record(failed bool) {
	if b.calls == b.windowSize {
		if b.window[b.next] {
			b.failures--
		}
	} else {
		b.calls++
	}
	b.window[b.next] = failed
	if failed {
		b.failures++
	}
	b.next = (b.next + 1) % b.windowSize
}

func (b *Breaker) clearWindow() {
	for i := range b.window {
		b.window[i] = false
	}
	b.next = 0
	b.calls = 0
	b.failures = 0
}

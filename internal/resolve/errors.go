package resolve

import (
	"errors"
	"fmt"

	"github.com/systmms/secretcache/internal/breaker"
	"github.com/systmms/secretcache/internal/classify"
)

// Kind is the outcome class reported to callers.
type Kind int

const (
	// UnclassifiedFailure is neither known transient nor known permanent.
	// It is not retried.
	UnclassifiedFailure Kind = iota
	// TransientStoreFailure survived every retry.
	TransientStoreFailure
	// PermanentStoreFailure was surfaced on the first attempt.
	PermanentStoreFailure
	// BreakerOpenFailure was rejected without contacting the store.
	BreakerOpenFailure
)

func (k Kind) String() string {
	switch k {
	case TransientStoreFailure:
		return "transient store failure"
	case PermanentStoreFailure:
		return "permanent store failure"
	case BreakerOpenFailure:
		return "circuit breaker open"
	default:
		return "unclassified failure"
	}
}

// Error is returned by Resolve for every failure other than a missing
// secret.
type Error struct {
	Name     string
	Category classify.Category
	Kind     Kind
	Err      error
}

func newError(name string, category classify.Category, err error) *Error {
	kind := UnclassifiedFailure
	switch {
	case errors.Is(err, breaker.ErrOpen):
		kind = BreakerOpenFailure
	case category.Transient():
		kind = TransientStoreFailure
	case category.Permanent():
		kind = PermanentStoreFailure
	}
	return &Error{Name: name, Category: category, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("resolve %q: %s (%s): %v", e.Name, e.Kind, e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether a later Resolve of the same name may succeed.
func (e *Error) IsTransient() bool {
	return e.Kind == TransientStoreFailure || e.Kind == BreakerOpenFailure
}

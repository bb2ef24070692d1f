// Package provider defines the contract between secretcache and the remote
// secret stores it fronts.
//
// A Provider performs exactly one thing: a synchronous fetch of a secret by its
// store-safe key. Everything else (caching, retrying, circuit breaking,
// failure classification) happens above this interface in internal/resolve.
//
// # Failure reporting
//
// Providers never signal failure kinds through error strings. A Fetch returns
// one of:
//
//   - a SecretValue, possibly carrying validity Attributes
//   - NotFoundError when the secret does not exist
//   - AuthError when the store rejected the caller's credentials
//   - *StoreError for every other failure, tagged with a Kind and, when the
//     store answered over HTTP or gRPC, the equivalent HTTP StatusCode
//
// Wrapping is allowed: the classifier unwraps until it finds one of these.
//
// # Threading and Concurrency
//
// Provider implementations must be safe for concurrent use. A single resolver
// shares one Provider across every in-flight Resolve call.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Provider is a remote secret store client.
//
// Example:
//
//	value, err := p.Fetch(ctx, "db-password")
//	var nf provider.NotFoundError
//	if errors.As(err, &nf) {
//	    // the secret does not exist
//	}
type Provider interface {
	// Name returns the configured name of the store, used as the "store"
	// label in metrics and in log lines.
	Name() string

	// Fetch retrieves the current value of the secret stored under key.
	//
	// Implementations should:
	//   - Support context cancellation
	//   - Return NotFoundError for missing secrets
	//   - Return AuthError for authentication failures
	//   - Return *StoreError for transport and HTTP failures
	//   - Populate Attributes when the store exposes them
	//   - Never log the secret value
	Fetch(ctx context.Context, key string) (SecretValue, error)
}

// SecretValue is the payload and metadata returned by a successful fetch.
type SecretValue struct {
	// Value is the opaque secret payload.
	Value []byte

	// Attributes carries the store-declared validity window.
	Attributes Attributes
}

// Attributes is the validity metadata a store attaches to a secret.
// A nil pointer means the store did not say.
type Attributes struct {
	// NotBefore makes the secret invalid before this instant.
	NotBefore *time.Time

	// ExpiresAt makes the secret invalid at and after this instant.
	ExpiresAt *time.Time

	// Enabled is a tri-state flag; false invalidates the secret regardless of
	// the time window.
	Enabled *bool

	// Version is the store's version identifier, if any.
	Version string

	// UpdatedAt is the last modification time reported by the store.
	UpdatedAt time.Time
}

// NotFoundError indicates that the requested secret does not exist.
type NotFoundError struct {
	// Provider is the name of the provider where the secret was not found.
	Provider string

	// Key is the secret identifier that could not be found.
	Key string
}

// Error implements the error interface.
func (e NotFoundError) Error() string {
	return "secret not found: " + e.Key + " in " + e.Provider
}

// AuthError indicates that authentication to the provider failed.
//
// This error should be returned when credentials are missing, expired or
// rejected before any authorization decision was made. Authorization denials
// (HTTP 401/403) are reported as *StoreError with the status code instead.
type AuthError struct {
	// Provider is the name of the provider that failed authentication.
	Provider string

	// Message provides details about the authentication failure.
	Message string

	// Err is the underlying SDK error, if any.
	Err error
}

// Error implements the error interface.
func (e AuthError) Error() string {
	return "authentication failed for " + e.Provider + ": " + e.Message
}

func (e AuthError) Unwrap() error {
	return e.Err
}

// Kind tags a StoreError with the class of failure the store client observed.
type Kind int

const (
	// KindUnknown carries no transport information; StatusCode may still be set.
	KindUnknown Kind = iota
	// KindTimeout is a client-side or server-side timeout.
	KindTimeout
	// KindNetwork covers DNS failures, refused and reset connections.
	KindNetwork
	// KindTLS covers TLS handshake and certificate failures.
	KindTLS
	// KindAuthentication is a credential acquisition failure inside the SDK.
	KindAuthentication
	// KindHTTP is a response with a non-success StatusCode.
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindTLS:
		return "tls"
	case KindAuthentication:
		return "authentication"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// StoreError is the tagged failure returned by providers for everything that
// is neither a missing secret nor an authentication failure.
type StoreError struct {
	Provider   string
	Op         string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Provider, e.Op)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (status %d %s)", e.StatusCode, http.StatusText(e.StatusCode))
	} else if e.Kind != KindUnknown {
		msg += fmt.Sprintf(" (%s)", e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// HTTPError builds a StoreError for an HTTP response status.
func HTTPError(providerName, op string, status int, err error) *StoreError {
	return &StoreError{Provider: providerName, Op: op, Kind: KindHTTP, StatusCode: status, Err: err}
}

// Package classify maps store failures onto a closed set of categories that
// drive retry and circuit breaker decisions and label metrics.
package classify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"os"

	"github.com/systmms/secretcache/pkg/provider"
)

// Category is a failure class. Its string form is used verbatim as the
// error_category metric label.
type Category string

const (
	Timeout        Category = "timeout"
	Network        Category = "network"
	SSL            Category = "ssl"
	RateLimited    Category = "rate_limited"
	ServerError    Category = "server_error"
	BadRequest     Category = "bad_request"
	Unauthorized   Category = "unauthorized"
	Forbidden      Category = "forbidden"
	NotFound       Category = "not_found"
	Authentication Category = "authentication"
	ClientError    Category = "client_error"
	Unknown        Category = "unknown"
)

// Categories lists every category in a stable order.
var Categories = []Category{
	Timeout, Network, SSL, RateLimited, ServerError, BadRequest,
	Unauthorized, Forbidden, NotFound, Authentication, ClientError, Unknown,
}

func (c Category) String() string {
	return string(c)
}

// Transient reports whether a failure of this category is expected to clear
// on retry.
func (c Category) Transient() bool {
	switch c {
	case Timeout, Network, SSL, RateLimited, ServerError:
		return true
	}
	return false
}

// Permanent reports whether retrying a failure of this category cannot help.
func (c Category) Permanent() bool {
	switch c {
	case BadRequest, Unauthorized, Forbidden, NotFound, Authentication:
		return true
	}
	return false
}

// breakerExempt are caller or configuration mistakes, not store health.
func (c Category) breakerExempt() bool {
	switch c {
	case NotFound, Unauthorized, Forbidden, Authentication:
		return true
	}
	return false
}

// Neutral marks an error that is not a store failure at all, such as a
// circuit breaker rejection. Neutral errors classify as Unknown, are never
// retried and never counted by the breaker.
type Neutral interface {
	NeutralFailure() bool
}

// Classify returns the category of err. It inspects the outermost layer
// first and unwraps only when that layer carries no classifiable type.
func Classify(err error) Category {
	c, _ := classify(err)
	return c
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return Classify(err).Transient()
}

// IsPermanent reports whether err is known to be permanent. An unclassified
// error is neither transient nor permanent.
func IsPermanent(err error) bool {
	return Classify(err).Permanent()
}

// CountsForBreaker reports whether err should be recorded as a failure by the
// circuit breaker.
func CountsForBreaker(err error) bool {
	if err == nil {
		return false
	}
	c, neutral := classify(err)
	if neutral {
		return false
	}
	return !c.breakerExempt()
}

// FromStatus maps an HTTP status code to a category.
func FromStatus(status int) Category {
	switch {
	case status == http.StatusBadRequest:
		return BadRequest
	case status == http.StatusUnauthorized:
		return Unauthorized
	case status == http.StatusForbidden:
		return Forbidden
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusTooManyRequests:
		return RateLimited
	case status >= 500:
		return ServerError
	case status >= 400:
		return ClientError
	}
	return Unknown
}

// maxLayers bounds the walk. Errors of uncomparable types cannot be
// deduplicated, so a self-wrapping one would otherwise be walked forever.
const maxLayers = 100

func classify(err error) (Category, bool) {
	seen := make(map[error]struct{})
	queue := []error{err}

	for visited := 0; len(queue) > 0 && visited < maxLayers; {
		cur := queue[0]
		queue = queue[1:]
		if cur == nil {
			continue
		}
		if isSeen(seen, cur) {
			continue
		}
		visited++

		if n, ok := cur.(Neutral); ok && n.NeutralFailure() {
			return Unknown, true
		}
		if c, ok := classifyLayer(cur); ok {
			return c, false
		}

		switch u := cur.(type) {
		case interface{ Unwrap() error }:
			queue = append(queue, u.Unwrap())
		case interface{ Unwrap() []error }:
			queue = append(queue, u.Unwrap()...)
		}
	}
	return Unknown, false
}

// isSeen records err and reports whether it was already visited. Errors of
// uncomparable dynamic types are never treated as seen.
func isSeen(seen map[error]struct{}, err error) (found bool) {
	defer func() {
		if recover() != nil {
			found = false
		}
	}()
	if _, ok := seen[err]; ok {
		return true
	}
	seen[err] = struct{}{}
	return false
}

// classifyLayer looks at a single layer without unwrapping.
func classifyLayer(err error) (Category, bool) {
	switch e := err.(type) {
	case provider.NotFoundError, *provider.NotFoundError:
		return NotFound, true
	case provider.AuthError, *provider.AuthError:
		return Authentication, true
	case *provider.StoreError:
		return classifyStoreError(e)
	case *net.DNSError:
		if e.IsTimeout {
			return Timeout, true
		}
		return Network, true
	case *tls.CertificateVerificationError, tls.RecordHeaderError, *tls.RecordHeaderError,
		x509.UnknownAuthorityError, x509.CertificateInvalidError, x509.HostnameError:
		return SSL, true
	case *net.OpError:
		if e.Timeout() {
			return Timeout, true
		}
		return Network, true
	}

	if err == context.DeadlineExceeded || err == os.ErrDeadlineExceeded {
		return Timeout, true
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return Timeout, true
	}
	return "", false
}

func classifyStoreError(e *provider.StoreError) (Category, bool) {
	switch e.Kind {
	case provider.KindTimeout:
		return Timeout, true
	case provider.KindNetwork:
		return Network, true
	case provider.KindTLS:
		return SSL, true
	case provider.KindAuthentication:
		return Authentication, true
	case provider.KindHTTP:
		return FromStatus(e.StatusCode), true
	}
	if e.StatusCode > 0 {
		return FromStatus(e.StatusCode), true
	}
	return "", false
}

// Is reports whether err classifies as any of the given categories.
func Is(err error, categories ...Category) bool {
	c := Classify(err)
	for _, want := range categories {
		if c == want {
			return true
		}
	}
	return false
}

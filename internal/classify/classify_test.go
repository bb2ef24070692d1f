package classify

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/secretcache/pkg/provider"
)

type neutralErr struct{}

func (neutralErr) Error() string        { return "rejected" }
func (neutralErr) NeutralFailure() bool { return true }

// selfWrap unwraps to itself.
type selfWrap struct{ msg string }

func (e *selfWrap) Error() string { return e.msg }
func (e *selfWrap) Unwrap() error { return e }

// uncomparableLoop is a value type that cannot be a map key and unwraps to
// itself.
type uncomparableLoop struct{ tags []string }

func (e uncomparableLoop) Error() string { return "loop" }
func (e uncomparableLoop) Unwrap() error { return e }

func httpErr(status int) error {
	return provider.HTTPError("kv", "fetch", status, nil)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      Category
		transient bool
		permanent bool
		counts    bool
	}{
		{"nil", nil, Unknown, false, false, false},
		{"not found type", provider.NotFoundError{Provider: "kv", Key: "x"}, NotFound, false, true, false},
		{"auth type", provider.AuthError{Provider: "kv", Message: "expired"}, Authentication, false, true, false},
		{"status 400", httpErr(http.StatusBadRequest), BadRequest, false, true, true},
		{"status 401", httpErr(http.StatusUnauthorized), Unauthorized, false, true, false},
		{"status 403", httpErr(http.StatusForbidden), Forbidden, false, true, false},
		{"status 404", httpErr(http.StatusNotFound), NotFound, false, true, false},
		{"status 409", httpErr(http.StatusConflict), ClientError, false, false, true},
		{"status 429", httpErr(http.StatusTooManyRequests), RateLimited, true, false, true},
		{"status 500", httpErr(http.StatusInternalServerError), ServerError, true, false, true},
		{"status 503", httpErr(http.StatusServiceUnavailable), ServerError, true, false, true},
		{"kind timeout", &provider.StoreError{Kind: provider.KindTimeout}, Timeout, true, false, true},
		{"kind network", &provider.StoreError{Kind: provider.KindNetwork}, Network, true, false, true},
		{"kind tls", &provider.StoreError{Kind: provider.KindTLS}, SSL, true, false, true},
		{"kind authentication", &provider.StoreError{Kind: provider.KindAuthentication}, Authentication, false, true, false},
		{"unknown kind with status", &provider.StoreError{StatusCode: 502}, ServerError, true, false, true},
		{"context deadline", context.DeadlineExceeded, Timeout, true, false, true},
		{"dns", &net.DNSError{Err: "no such host", Name: "kv.example"}, Network, true, false, true},
		{"dns timeout", &net.DNSError{Err: "timeout", IsTimeout: true}, Timeout, true, false, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, Network, true, false, true},
		{"x509", x509.UnknownAuthorityError{}, SSL, true, false, true},
		{"unclassified", errors.New("boom"), Unknown, false, false, true},
		{"neutral", neutralErr{}, Unknown, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
			assert.Equal(t, tt.transient, IsTransient(tt.err), "transient")
			assert.Equal(t, tt.permanent, IsPermanent(tt.err), "permanent")
			assert.Equal(t, tt.counts, CountsForBreaker(tt.err), "counts for breaker")
		})
	}
}

func TestClassifyUnwrapsToFirstClassifiableLayer(t *testing.T) {
	inner := httpErr(http.StatusTooManyRequests)
	wrapped := fmt.Errorf("fetching secret: %w", fmt.Errorf("attempt 2: %w", inner))

	assert.Equal(t, RateLimited, Classify(wrapped))
	assert.True(t, IsTransient(wrapped))
}

func TestClassifyOuterLayerWins(t *testing.T) {
	// A permanent outer failure that wraps a transient cause stays permanent.
	outer := &provider.StoreError{
		Kind:       provider.KindHTTP,
		StatusCode: http.StatusForbidden,
		Err:        &provider.StoreError{Kind: provider.KindTimeout},
	}
	assert.Equal(t, Forbidden, Classify(outer))
	assert.False(t, IsTransient(outer))

	// And the other way around.
	outer = &provider.StoreError{
		Kind: provider.KindNetwork,
		Err:  provider.NotFoundError{Key: "x"},
	}
	assert.Equal(t, Network, Classify(outer))
}

func TestClassifyStoreErrorWithoutTagRecurses(t *testing.T) {
	err := &provider.StoreError{Provider: "kv", Op: "fetch", Err: context.DeadlineExceeded}
	assert.Equal(t, Timeout, Classify(err))
}

func TestClassifyJoinedErrors(t *testing.T) {
	err := errors.Join(errors.New("context canceled"), httpErr(http.StatusBadGateway))
	assert.Equal(t, ServerError, Classify(err))
}

func TestClassifyStopsOnSelfReference(t *testing.T) {
	err := &selfWrap{msg: "loop"}
	assert.Equal(t, Unknown, Classify(err))
	assert.True(t, CountsForBreaker(err))
}

func TestClassifyStopsOnUncomparableSelfReference(t *testing.T) {
	done := make(chan Category, 1)
	go func() {
		done <- Classify(fmt.Errorf("fetch: %w", uncomparableLoop{tags: []string{"a"}}))
	}()

	select {
	case c := <-done:
		assert.Equal(t, Unknown, c)
	case <-time.After(2 * time.Second):
		t.Fatal("Classify did not return for a self-wrapping error of an uncomparable type")
	}
}

func TestClassifyFindsLayerInsideUncomparableLoop(t *testing.T) {
	err := errors.Join(uncomparableLoop{tags: []string{"a"}}, httpErr(http.StatusTooManyRequests))
	assert.Equal(t, RateLimited, Classify(err))
}

func TestNeutralWrappedIsNotCounted(t *testing.T) {
	err := fmt.Errorf("call rejected: %w", neutralErr{})
	assert.False(t, CountsForBreaker(err))
	assert.False(t, IsTransient(err))
}

func TestFromStatus(t *testing.T) {
	assert.Equal(t, Unknown, FromStatus(0))
	assert.Equal(t, Unknown, FromStatus(http.StatusOK))
	assert.Equal(t, ClientError, FromStatus(http.StatusGone))
	assert.Equal(t, ServerError, FromStatus(http.StatusGatewayTimeout))
}

func TestCategoriesAreClosed(t *testing.T) {
	assert.Len(t, Categories, 12)
	for _, c := range Categories {
		assert.False(t, c.Transient() && c.Permanent(), "%s is both transient and permanent", c)
	}
}

func TestIs(t *testing.T) {
	assert.True(t, Is(httpErr(http.StatusNotFound), NotFound, Forbidden))
	assert.False(t, Is(httpErr(http.StatusNotFound), Timeout))
}

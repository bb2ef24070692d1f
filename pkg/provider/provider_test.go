package provider_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/secretcache/pkg/provider"
)

func TestStoreErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *provider.StoreError
		want string
	}{
		{
			name: "http status",
			err:  provider.HTTPError("prod-kv", "fetch", http.StatusServiceUnavailable, nil),
			want: "prod-kv fetch failed (status 503 Service Unavailable)",
		},
		{
			name: "transport kind",
			err:  &provider.StoreError{Provider: "prod-kv", Op: "fetch", Kind: provider.KindTimeout, Err: errors.New("i/o timeout")},
			want: "prod-kv fetch failed (timeout): i/o timeout",
		},
		{
			name: "unknown",
			err:  &provider.StoreError{Provider: "prod-kv", Op: "fetch"},
			want: "prod-kv fetch failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("fetching: %w", &provider.StoreError{Provider: "p", Op: "fetch", Kind: provider.KindNetwork, Err: cause})

	var se *provider.StoreError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, provider.KindNetwork, se.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestAuthErrorUnwrap(t *testing.T) {
	cause := errors.New("token expired")
	err := provider.AuthError{Provider: "p", Message: "bad token", Err: cause}

	assert.Equal(t, "authentication failed for p: bad token", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "timeout", provider.KindTimeout.String())
	assert.Equal(t, "tls", provider.KindTLS.String())
	assert.Equal(t, "unknown", provider.Kind(99).String())
}

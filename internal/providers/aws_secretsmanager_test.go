package providers_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretcache/internal/classify"
	"github.com/systmms/secretcache/internal/providers"
	"github.com/systmms/secretcache/pkg/provider"
	"github.com/systmms/secretcache/tests/fakes"
)

func newSecretsManagerProvider(t *testing.T, client *fakes.FakeSecretsManagerClient) *providers.AWSSecretsManagerProvider {
	t.Helper()
	p, err := providers.NewAWSSecretsManagerProvider("aws-sm",
		map[string]interface{}{"region": "eu-west-1"},
		providers.WithSecretsManagerClient(client))
	require.NoError(t, err)
	return p
}

func TestAWSSecretsManagerProviderFetch(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSecretsManagerClient()
	client.AddSecretString("db-password", "s3cret")
	client.AddSecretBinary("tls-key", []byte{0x01, 0x02})
	p := newSecretsManagerProvider(t, client)

	sv, err := p.Fetch(context.Background(), "db-password")
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), sv.Value)
	assert.Equal(t, "v1", sv.Attributes.Version)
	assert.Nil(t, sv.Attributes.Enabled)
	assert.False(t, sv.Attributes.UpdatedAt.IsZero())

	sv, err = p.Fetch(context.Background(), "tls-key")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, sv.Value)

	assert.Equal(t, "eu-west-1", p.Region())
}

func TestAWSSecretsManagerProviderDefaultRegion(t *testing.T) {
	t.Parallel()

	p, err := providers.NewAWSSecretsManagerProvider("aws-sm", map[string]interface{}{},
		providers.WithSecretsManagerClient(fakes.NewFakeSecretsManagerClient()))
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", p.Region())
}

func TestAWSSecretsManagerProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want classify.Category
	}{
		{"throttling", &smithy.GenericAPIError{Code: "ThrottlingException", Message: "Rate exceeded"}, classify.RateLimited},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDeniedException"}, classify.Forbidden},
		{"expired token", &smithy.GenericAPIError{Code: "ExpiredTokenException"}, classify.Authentication},
		{"decryption", &smithy.GenericAPIError{Code: "DecryptionFailure"}, classify.Forbidden},
		{"invalid parameter", &smithy.GenericAPIError{Code: "InvalidParameterException"}, classify.BadRequest},
		{"internal", &smithy.GenericAPIError{Code: "InternalServiceError"}, classify.ServerError},
		{"http 502", fakes.AWSResponseError(http.StatusBadGateway), classify.ServerError},
		{"http 404", fakes.AWSResponseError(http.StatusNotFound), classify.NotFound},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, classify.Network},
		{"deadline", context.DeadlineExceeded, classify.Timeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := fakes.NewFakeSecretsManagerClient()
			client.AddError("key", tt.err)
			p := newSecretsManagerProvider(t, client)

			_, err := p.Fetch(context.Background(), "key")
			require.Error(t, err)
			assert.Equal(t, tt.want, classify.Classify(err))
		})
	}
}

func TestAWSSecretsManagerProviderNotFound(t *testing.T) {
	t.Parallel()

	p := newSecretsManagerProvider(t, fakes.NewFakeSecretsManagerClient())

	_, err := p.Fetch(context.Background(), "missing")
	var nf provider.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "aws-sm", nf.Provider)
}

func TestAWSSecretsManagerProviderKeepsCause(t *testing.T) {
	t.Parallel()

	cause := &smithy.GenericAPIError{Code: "ThrottlingException"}
	client := fakes.NewFakeSecretsManagerClient()
	client.AddError("key", cause)
	p := newSecretsManagerProvider(t, client)

	_, err := p.Fetch(context.Background(), "key")
	var se *provider.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, "GetSecretValue", se.Op)
	assert.ErrorIs(t, err, cause)
}

package providers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretcache/internal/classify"
	scerrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/internal/providers"
	"github.com/systmms/secretcache/pkg/provider"
	"github.com/systmms/secretcache/tests/fakes"
)

func newAzureProvider(t *testing.T, client *fakes.FakeAzureKeyVaultClient) *providers.AzureKeyVaultProvider {
	t.Helper()
	p, err := providers.NewAzureKeyVaultProvider("prod-kv",
		map[string]interface{}{"vault_name": "prod-vault"},
		providers.WithAzureKeyVaultClient(client))
	require.NoError(t, err)
	return p
}

func TestAzureKeyVaultProviderFetch(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeAzureKeyVaultClient()
	notBefore := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	client.AddSecret("db-password", &fakes.AzureSecretData{
		Value:   to.Ptr("s3cret"),
		Version: "abc123",
		Attributes: &azsecrets.SecretAttributes{
			Enabled:   to.Ptr(true),
			NotBefore: &notBefore,
			Expires:   &expires,
		},
	})
	p := newAzureProvider(t, client)

	sv, err := p.Fetch(context.Background(), "db-password")
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), sv.Value)
	assert.Equal(t, "abc123", sv.Attributes.Version)
	require.NotNil(t, sv.Attributes.Enabled)
	assert.True(t, *sv.Attributes.Enabled)
	assert.Equal(t, notBefore, *sv.Attributes.NotBefore)
	assert.Equal(t, expires, *sv.Attributes.ExpiresAt)
	assert.Equal(t, "prod-kv", p.Name())
}

func TestAzureKeyVaultProviderMissingAttributes(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeAzureKeyVaultClient()
	client.AddSecret("plain", &fakes.AzureSecretData{Value: to.Ptr("v")})
	p := newAzureProvider(t, client)

	sv, err := p.Fetch(context.Background(), "plain")
	require.NoError(t, err)
	assert.Nil(t, sv.Attributes.Enabled)
	assert.Nil(t, sv.Attributes.NotBefore)
	assert.Nil(t, sv.Attributes.ExpiresAt)
}

func TestAzureKeyVaultProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want classify.Category
	}{
		{"secret not found code", fakes.AzureResponseError(http.StatusNotFound, "SecretNotFound"), classify.NotFound},
		{"bare 404", fakes.AzureResponseError(http.StatusNotFound, ""), classify.NotFound},
		{"forbidden", fakes.AzureResponseError(http.StatusForbidden, "Forbidden"), classify.Forbidden},
		{"unauthorized", fakes.AzureResponseError(http.StatusUnauthorized, "Unauthorized"), classify.Unauthorized},
		{"throttled", fakes.AzureResponseError(http.StatusTooManyRequests, "Throttled"), classify.RateLimited},
		{"unavailable", fakes.AzureResponseError(http.StatusServiceUnavailable, "ServiceUnavailable"), classify.ServerError},
		{"bad request", fakes.AzureResponseError(http.StatusBadRequest, "BadParameter"), classify.BadRequest},
		{"credential", &azidentity.AuthenticationFailedError{}, classify.Authentication},
		{"deadline", context.DeadlineExceeded, classify.Timeout},
		{"unclassified", errors.New("boom"), classify.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := fakes.NewFakeAzureKeyVaultClient()
			client.AddError("key", tt.err)
			p := newAzureProvider(t, client)

			_, err := p.Fetch(context.Background(), "key")
			require.Error(t, err)
			assert.Equal(t, tt.want, classify.Classify(err))
		})
	}
}

func TestAzureKeyVaultProviderNotFoundIsTyped(t *testing.T) {
	t.Parallel()

	p := newAzureProvider(t, fakes.NewFakeAzureKeyVaultClient())

	_, err := p.Fetch(context.Background(), "missing")
	var nf provider.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.Key)
	assert.Equal(t, "prod-kv", nf.Provider)
}

func TestAzureKeyVaultProviderConfig(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeAzureKeyVaultClient()

	p, err := providers.NewAzureKeyVaultProvider("kv", map[string]interface{}{"vault_name": "my-vault"},
		providers.WithAzureKeyVaultClient(client))
	require.NoError(t, err)
	assert.Equal(t, "https://my-vault.vault.azure.net/", p.VaultURL())

	p, err = providers.NewAzureKeyVaultProvider("kv", map[string]interface{}{"vault_url": "https://other.vault.azure.net/"},
		providers.WithAzureKeyVaultClient(client))
	require.NoError(t, err)
	assert.Equal(t, "https://other.vault.azure.net/", p.VaultURL())

	tests := []struct {
		name   string
		config map[string]interface{}
		field  string
	}{
		{"missing", map[string]interface{}{}, "vault_url"},
		{"bad name", map[string]interface{}{"vault_name": "my--vault"}, "vault_name"},
		{"plain http", map[string]interface{}{"vault_url": "http://my-vault.vault.azure.net/"}, "vault_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := providers.NewAzureKeyVaultProvider("kv", tt.config, providers.WithAzureKeyVaultClient(client))
			var cfgErr scerrors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

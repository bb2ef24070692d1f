package fakes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// FakeAzureKeyVaultClient is a fake of the azsecrets client subset used by
// the Azure Key Vault provider.
type FakeAzureKeyVaultClient struct {
	// Secrets maps secret names to their data
	Secrets map[string]*AzureSecretData
	// Errors maps secret names to errors to return
	Errors map[string]error
	// GetSecretFunc allows custom behavior for GetSecret
	GetSecretFunc func(ctx context.Context, name string, version string) (azsecrets.GetSecretResponse, error)

	mu    sync.Mutex
	calls map[string]int
}

// AzureSecretData holds the data for a fake Azure Key Vault secret
type AzureSecretData struct {
	Value      *string
	Version    string
	Attributes *azsecrets.SecretAttributes
}

// NewFakeAzureKeyVaultClient creates a new fake Azure Key Vault client
func NewFakeAzureKeyVaultClient() *FakeAzureKeyVaultClient {
	return &FakeAzureKeyVaultClient{
		Secrets: make(map[string]*AzureSecretData),
		Errors:  make(map[string]error),
		calls:   make(map[string]int),
	}
}

// AddSecret adds a secret to the fake client
func (f *FakeAzureKeyVaultClient) AddSecret(name string, data *AzureSecretData) {
	f.Secrets[name] = data
}

// AddSecretString adds an enabled string secret with no validity window
func (f *FakeAzureKeyVaultClient) AddSecretString(name, value string) {
	now := time.Now()
	f.Secrets[name] = &AzureSecretData{
		Value:   to.Ptr(value),
		Version: "0123456789abcdef0123456789abcdef",
		Attributes: &azsecrets.SecretAttributes{
			Enabled: to.Ptr(true),
			Created: &now,
			Updated: &now,
		},
	}
}

// AddError makes GetSecret fail for name
func (f *FakeAzureKeyVaultClient) AddError(name string, err error) {
	f.Errors[name] = err
}

// CallCount returns how many times GetSecret was called for name
func (f *FakeAzureKeyVaultClient) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// GetSecret implements the azsecrets client method
func (f *FakeAzureKeyVaultClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()

	if f.GetSecretFunc != nil {
		return f.GetSecretFunc(ctx, name, version)
	}
	if err, ok := f.Errors[name]; ok {
		return azsecrets.GetSecretResponse{}, err
	}

	data, ok := f.Secrets[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, AzureResponseError(http.StatusNotFound, "SecretNotFound")
	}

	id := azsecrets.ID(fmt.Sprintf("https://test-vault.vault.azure.net/secrets/%s/%s", name, data.Version))
	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{
			ID:         &id,
			Value:      data.Value,
			Attributes: data.Attributes,
		},
	}, nil
}

// AzureResponseError builds the error azcore returns for a failed response
func AzureResponseError(statusCode int, errorCode string) error {
	req, _ := http.NewRequest(http.MethodGet, "https://test-vault.vault.azure.net/secrets/x", nil)
	return &azcore.ResponseError{
		ErrorCode:  errorCode,
		StatusCode: statusCode,
		RawResponse: &http.Response{
			StatusCode: statusCode,
			Status:     http.StatusText(statusCode),
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("")),
			Request:    req,
		},
	}
}

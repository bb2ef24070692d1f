package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/secretcache/internal/config"
	scerrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/pkg/provider"
)

// AzureKeyVaultClientAPI is the subset of *azsecrets.Client used by the provider.
type AzureKeyVaultClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// AzureKeyVaultProvider fetches secrets from Azure Key Vault.
type AzureKeyVaultProvider struct {
	name   string
	client AzureKeyVaultClientAPI
	config AzureKeyVaultConfig
}

// AzureKeyVaultConfig holds Azure Key Vault-specific configuration
type AzureKeyVaultConfig struct {
	VaultURL           string
	TenantID           string
	ClientID           string
	ClientSecret       string
	UseManagedIdentity bool
	UserAssignedID     string
}

// AzureProviderOption is a functional option for configuring Azure providers
type AzureProviderOption func(*AzureKeyVaultProvider)

// WithAzureKeyVaultClient sets a custom client (for testing)
func WithAzureKeyVaultClient(client AzureKeyVaultClientAPI) AzureProviderOption {
	return func(p *AzureKeyVaultProvider) {
		p.client = client
	}
}

// NewAzureKeyVaultProvider creates a new Azure Key Vault provider. The vault
// is addressed either by vault_url or by vault_name.
func NewAzureKeyVaultProvider(name string, configMap map[string]interface{}, opts ...AzureProviderOption) (*AzureKeyVaultProvider, error) {
	cfg := AzureKeyVaultConfig{
		VaultURL:       stringOption(configMap, "vault_url"),
		TenantID:       stringOption(configMap, "tenant_id"),
		ClientID:       stringOption(configMap, "client_id"),
		ClientSecret:   stringOption(configMap, "client_secret"),
		UserAssignedID: stringOption(configMap, "user_assigned_identity_id"),
	}
	if useMI, ok := configMap["use_managed_identity"].(bool); ok {
		cfg.UseManagedIdentity = useMI
	}

	if cfg.VaultURL == "" {
		vaultName := stringOption(configMap, "vault_name")
		if vaultName == "" {
			return nil, scerrors.ConfigError{
				Field:      "vault_url",
				Message:    "vault_url or vault_name is required for Azure Key Vault",
				Suggestion: "Set vault_name: my-vault or vault_url: https://my-vault.vault.azure.net/",
			}
		}
		if err := config.ValidateVaultName(vaultName); err != nil {
			return nil, err
		}
		cfg.VaultURL = fmt.Sprintf("https://%s.vault.azure.net/", vaultName)
	}
	if !strings.HasPrefix(cfg.VaultURL, "https://") {
		return nil, scerrors.ConfigError{
			Field:      "vault_url",
			Value:      cfg.VaultURL,
			Message:    "vault_url must use https",
			Suggestion: "Use the vault URI shown in the Azure portal, for example https://my-vault.vault.azure.net/",
		}
	}

	p := &AzureKeyVaultProvider{
		name:   name,
		config: cfg,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		client, err := createAzureKeyVaultClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Key Vault client: %w", err)
		}
		p.client = client
	}

	return p, nil
}

// createAzureKeyVaultClient picks a credential in order: managed identity,
// service principal secret, then the default chain.
func createAzureKeyVaultClient(cfg AzureKeyVaultConfig) (*azsecrets.Client, error) {
	var cred azcore.TokenCredential
	var err error

	switch {
	case cfg.UseManagedIdentity:
		opts := &azidentity.ManagedIdentityCredentialOptions{}
		if cfg.UserAssignedID != "" {
			opts.ID = azidentity.ClientID(cfg.UserAssignedID)
		}
		cred, err = azidentity.NewManagedIdentityCredential(opts)
	case cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.TenantID != "":
		cred, err = azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	default:
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	return azsecrets.NewClient(cfg.VaultURL, cred, azureClientOptions())
}

// azureClientOptions turns off the SDK retry policy. Attempts are counted by
// the resolver's retry policy only.
func azureClientOptions() *azsecrets.ClientOptions {
	return &azsecrets.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	}
}

// Name returns the provider name
func (p *AzureKeyVaultProvider) Name() string {
	return p.name
}

// VaultURL returns the vault URI the provider talks to.
func (p *AzureKeyVaultProvider) VaultURL() string {
	return p.config.VaultURL
}

// Fetch reads the latest version of the secret and its validity attributes.
func (p *AzureKeyVaultProvider) Fetch(ctx context.Context, key string) (provider.SecretValue, error) {
	resp, err := p.client.GetSecret(ctx, key, "", nil)
	if err != nil {
		return provider.SecretValue{}, p.translateError(key, err)
	}

	var value []byte
	if resp.Value != nil {
		value = []byte(*resp.Value)
	}

	sv := provider.SecretValue{Value: value}
	if resp.ID != nil {
		sv.Attributes.Version = resp.ID.Version()
	}
	if attrs := resp.Attributes; attrs != nil {
		sv.Attributes.NotBefore = attrs.NotBefore
		sv.Attributes.ExpiresAt = attrs.Expires
		sv.Attributes.Enabled = attrs.Enabled
		if attrs.Updated != nil {
			sv.Attributes.UpdatedAt = *attrs.Updated
		}
	}
	return sv, nil
}

func (p *AzureKeyVaultProvider) translateError(key string, err error) error {
	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) {
		return provider.AuthError{Provider: p.name, Message: "credential rejected by Microsoft Entra ID", Err: err}
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		if respErr.ErrorCode == "SecretNotFound" || respErr.StatusCode == http.StatusNotFound {
			return notFound(p.name, key)
		}
		return provider.HTTPError(p.name, "get secret", respErr.StatusCode, err)
	}

	return transportError(p.name, "get secret", err)
}

// NewAzureKeyVaultProviderFactory creates an Azure Key Vault provider factory
func NewAzureKeyVaultProviderFactory(name string, cfg map[string]interface{}) (provider.Provider, error) {
	return NewAzureKeyVaultProvider(name, cfg)
}

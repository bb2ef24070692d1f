package providers

import (
	"github.com/systmms/secretcache/pkg/provider"
)

// ProviderFactory creates a provider instance from the store-specific part of
// a store's configuration.
type ProviderFactory func(name string, config map[string]interface{}) (provider.Provider, error)

// Built-in store types.
const (
	TypeAzureKeyVault     = "azure.keyvault"
	TypeAWSSecretsManager = "aws.secretsmanager"
	TypeAWSSSM            = "aws.ssm"
	TypeGCPSecretManager  = "gcp.secretmanager"
	TypeKeyring           = "keyring"
	TypeLiteral           = "literal"
)

func builtinFactories() map[string]ProviderFactory {
	return map[string]ProviderFactory{
		TypeAzureKeyVault:     NewAzureKeyVaultProviderFactory,
		TypeAWSSecretsManager: NewAWSSecretsManagerProviderFactory,
		TypeAWSSSM:            NewAWSSSMProviderFactory,
		TypeGCPSecretManager:  NewGCPSecretManagerProviderFactory,
		TypeKeyring:           NewKeyringProviderFactory,
		TypeLiteral:           NewLiteralProviderFactory,
	}
}

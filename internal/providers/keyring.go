package providers

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"

	"github.com/systmms/secretcache/pkg/provider"
)

// DefaultKeyringService is the service name secrets are stored under when the
// store configuration does not name one.
const DefaultKeyringService = "secretcache"

// KeyringProvider reads secrets from the OS keyring (macOS Keychain, Linux
// Secret Service, Windows Credential Manager). The key is the account name.
type KeyringProvider struct {
	name    string
	service string
}

// NewKeyringProvider creates a new keyring provider
func NewKeyringProvider(name string, config map[string]interface{}) *KeyringProvider {
	service := stringOption(config, "service")
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringProvider{
		name:    name,
		service: service,
	}
}

// Name returns the provider name
func (k *KeyringProvider) Name() string {
	return k.name
}

// Service returns the keyring service name.
func (k *KeyringProvider) Service() string {
	return k.service
}

type keyringResult struct {
	secret string
	err    error
}

// Fetch looks the key up in the keyring. The platform call cannot be
// cancelled, so a cancelled context abandons it and returns immediately.
func (k *KeyringProvider) Fetch(ctx context.Context, key string) (provider.SecretValue, error) {
	done := make(chan keyringResult, 1)
	go func() {
		secret, err := keyring.Get(k.service, key)
		done <- keyringResult{secret: secret, err: err}
	}()

	select {
	case <-ctx.Done():
		return provider.SecretValue{}, transportError(k.name, "keyring get", ctx.Err())
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, keyring.ErrNotFound) {
				return provider.SecretValue{}, notFound(k.name, key)
			}
			return provider.SecretValue{}, &provider.StoreError{Provider: k.name, Op: "keyring get", Err: res.err}
		}
		return provider.SecretValue{Value: []byte(res.secret)}, nil
	}
}

// NewKeyringProviderFactory creates a keyring provider factory
func NewKeyringProviderFactory(name string, cfg map[string]interface{}) (provider.Provider, error) {
	return NewKeyringProvider(name, cfg), nil
}

// Package fakes provides test doubles for secretcache store clients.
//
// This package contains fake implementations of external client interfaces
// that allow unit testing of providers without real service dependencies.
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior.
//
// Usage:
//
//	client := fakes.NewFakeAzureKeyVaultClient()
//	client.AddSecretString("db-password", "secret123")
//	p := providers.NewAzureKeyVaultProvider("prod-kv", cfg,
//	    providers.WithAzureKeyVaultClient(client))
//	// Test provider methods...
package fakes

package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ContractTest defines a standard test suite that all providers must pass
type ContractTest struct {
	// CreateProvider creates a new instance of the provider to test
	CreateProvider func(t *testing.T) Provider

	// SetupTestSecret creates a test secret in the provider
	// Returns the key to use for retrieval and a cleanup function
	SetupTestSecret func(t *testing.T, p Provider) (key string, cleanup func())
}

// RunContractTests runs the standard provider contract test suite
func RunContractTests(t *testing.T, contract ContractTest) {
	t.Run("Contract", func(t *testing.T) {
		t.Run("Name", func(t *testing.T) {
			testProviderName(t, contract)
		})

		t.Run("Fetch", func(t *testing.T) {
			testProviderFetch(t, contract)
		})

		t.Run("FetchNotFound", func(t *testing.T) {
			testProviderFetchNotFound(t, contract)
		})

		t.Run("ContextCancellation", func(t *testing.T) {
			testProviderContextCancellation(t, contract)
		})
	})
}

func testProviderName(t *testing.T, contract ContractTest) {
	p := contract.CreateProvider(t)

	name := p.Name()
	if name == "" {
		t.Error("Provider.Name() returned empty string")
	}
	if name != p.Name() {
		t.Errorf("Provider.Name() not consistent: %q != %q", name, p.Name())
	}
}

func testProviderFetch(t *testing.T, contract ContractTest) {
	if contract.SetupTestSecret == nil {
		t.Skip("SetupTestSecret not provided, skipping fetch test")
		return
	}

	p := contract.CreateProvider(t)
	key, cleanup := contract.SetupTestSecret(t, p)
	defer cleanup()

	secret, err := p.Fetch(context.Background(), key)
	if err != nil {
		t.Fatalf("Provider.Fetch() failed: %v", err)
	}
	if len(secret.Value) == 0 {
		t.Error("Provider.Fetch() returned empty value")
	}
}

func testProviderFetchNotFound(t *testing.T, contract ContractTest) {
	p := contract.CreateProvider(t)

	key := "this-secret-definitely-does-not-exist-" + time.Now().Format("20060102150405")
	secret, err := p.Fetch(context.Background(), key)
	if err == nil {
		t.Fatalf("Provider.Fetch() should fail for non-existent key, got %d bytes", len(secret.Value))
	}

	var notFoundErr NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Errorf("Provider.Fetch() returned %T, want NotFoundError: %v", err, err)
	}
}

func testProviderContextCancellation(t *testing.T, contract ContractTest) {
	p := contract.CreateProvider(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Fetch(ctx, "any-key")
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Error("Provider.Fetch() did not return after context cancellation")
	}
}

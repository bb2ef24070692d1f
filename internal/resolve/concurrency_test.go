package resolve_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretcache/internal/config"
	"github.com/systmms/secretcache/internal/resolve"
	"github.com/systmms/secretcache/tests/fakes"
)

// TestConcurrentResolve verifies Resolve is safe under concurrent use
func TestConcurrentResolve(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	t.Parallel()

	store := fakes.NewFakeProvider("fake")
	const numSecrets = 40
	for i := 0; i < numSecrets; i++ {
		store.WithSecretString(fmt.Sprintf("secret-%d", i), fmt.Sprintf("value-%d", i))
	}

	s := config.DefaultResilience()
	s.CacheMaxEntries = 16
	r, err := resolve.New(store, resolve.WithConfig(s))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				n := (g + i) % numSecrets
				value, found, err := r.ResolveString(context.Background(), fmt.Sprintf("secret.%d", n))
				assert.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, fmt.Sprintf("value-%d", n), value)
				if i%25 == 0 {
					r.Invalidate(fmt.Sprintf("secret.%d", n))
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, r.Size(), 16)
}

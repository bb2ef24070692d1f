package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretcache/internal/config"
	"github.com/systmms/secretcache/tests/testutil"
)

func TestStoresCommand(t *testing.T) {
	path := testutil.WriteTestConfig(t, `version: 1
defaults:
  cacheTtlSeconds: 120
stores:
  dev:
    type: literal
    resilience:
      retryMaxAttempts: 5
      circuitBreakerEnabled: false
  odd:
    type: vault
    timeout_ms: 2500
`)

	stdout, _, err := execute(t, NewStoresCommand(newTestConfig(path)))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "CACHE TTL")

	dev := strings.Fields(lines[2])
	assert.Equal(t, []string{"dev", "literal", "configured", "10s", "2m0s", "1000", "5", "1s", "disabled"}, dev)

	odd := strings.Fields(lines[3])
	assert.Equal(t, []string{"odd", "vault", "unsupported", "2.5s", "2m0s", "1000", "3", "1s", "threshold=5", "recovery=30s"}, odd)
}

func TestStoresCommand_Empty(t *testing.T) {
	path := testutil.WriteTestConfig(t, "version: 1\n")

	stdout, _, err := execute(t, NewStoresCommand(newTestConfig(path)))
	require.NoError(t, err)
	assert.Equal(t, "No stores configured\n", stdout)
}

func TestStoresCommand_Builder(t *testing.T) {
	builder := testutil.NewTestConfig(t).
		WithDefaults(config.ResilienceSettings{RetryMaxAttempts: testutil.Ptr(1)}).
		WithStore("dev", "literal", map[string]any{"values": map[string]any{"k": "v"}}).
		WithStoreResilience("dev", config.ResilienceSettings{CircuitBreakerFailureThreshold: testutil.Ptr(0.25)})
	assert.Equal(t, []string{"dev"}, builder.Build().StoreNames())
	path := builder.Write()

	def := testutil.LoadTestConfig(t, path)
	settings, err := def.Resilience("dev")
	require.NoError(t, err)
	assert.Equal(t, 1, settings.RetryMaxAttempts)

	stdout, _, err := execute(t, NewStoresCommand(newTestConfig(path)))
	require.NoError(t, err)
	assert.Contains(t, stdout, "threshold=0.25")
}

package commands

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scerrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/internal/providers"
	"github.com/systmms/secretcache/pkg/provider"
	"github.com/systmms/secretcache/tests/fakes"
	"github.com/systmms/secretcache/tests/testutil"
)

func TestWatchCommand(t *testing.T) {
	path := testutil.WriteTestConfig(t, literalConfig)

	stdout, _, err := execute(t, NewWatchCommand(newTestConfig(path)),
		"db-password", "nope",
		"--interval", "1ms", "--iterations", "2", "--metrics-port", "-1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "dev\tdb-password\tclosed\tok", lines[0])
	assert.Equal(t, "dev\tnope\tclosed\tnot found", lines[1])
	assert.NotContains(t, stdout, "hunter2")
}

func TestWatchCommand_ServesMetrics(t *testing.T) {
	path := testutil.WriteTestConfig(t, literalConfig)

	_, _, err := execute(t, NewWatchCommand(newTestConfig(path)),
		"db-password", "--interval", "1ms", "--iterations", "1", "--metrics-port", "0")
	require.NoError(t, err)
}

func TestWatchCommand_ReportsErrors(t *testing.T) {
	fake := fakes.NewFakeProvider("broken").
		WithError("db-password", provider.HTTPError("broken", "get", http.StatusForbidden, errors.New("denied")))
	registry.Register("fake", func(name string, _ map[string]interface{}) (provider.Provider, error) {
		return fake, nil
	})
	t.Cleanup(func() { registry = providers.NewRegistry() })

	path := testutil.WriteTestConfig(t, `version: 1
stores:
  broken:
    type: fake
`)

	stdout, _, err := execute(t, NewWatchCommand(newTestConfig(path)),
		"db-password", "--interval", "1ms", "--iterations", "1", "--metrics-port", "-1")
	require.NoError(t, err, "watch keeps running through store failures")
	assert.Contains(t, stdout, "broken\tdb-password\tclosed\terror: ")
}

func TestWatchCommand_InvalidInterval(t *testing.T) {
	path := testutil.WriteTestConfig(t, literalConfig)

	_, _, err := execute(t, NewWatchCommand(newTestConfig(path)), "db-password", "--interval", "0s")
	var userErr scerrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.Message, "Invalid --interval")
}

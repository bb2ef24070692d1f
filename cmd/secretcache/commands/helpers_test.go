package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"

	"github.com/systmms/secretcache/internal/config"
	"github.com/systmms/secretcache/internal/logging"
)

const literalConfig = `version: 1
defaults:
  retryBaseDelayMs: 1
stores:
  dev:
    type: literal
    values:
      db-password: hunter2
      api-key: abc123
`

func newTestConfig(path string) *config.Config {
	return &config.Config{
		Path:   path,
		Logger: logging.Discard(),
	}
}

// execute runs cmd with args and returns what it wrote to stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

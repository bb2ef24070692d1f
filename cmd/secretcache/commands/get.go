package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/secretcache/internal/config"
	scerrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/internal/metrics"
)

// getResult is one entry of the --json output.
type getResult struct {
	Name  string `json:"name"`
	Store string `json:"store"`
	Found bool   `json:"found"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		storeName  string
		jsonOutput bool
		repeat     int
	)

	cmd := &cobra.Command{
		Use:   "get NAME...",
		Short: "Resolve one or more secrets",
		Long: `Resolve secrets by name and print their values.

Names are normalized before lookup ("DB_Password" is fetched as
"db-password"). Every name is resolved through the
same cache, so later repeats are served from memory.

Exit status is 1 when a store fails and 2 when a secret does not exist.

Examples:
  # Print a single value
  secretcache get db-password --store prod

  # Several secrets as JSON
  secretcache get db-password api-key --store prod --json

  # Use in scripts
  export DB_PASSWORD=$(secretcache get db-password)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if repeat < 1 {
				return scerrors.UserError{
					Message:    fmt.Sprintf("Invalid --repeat value %d", repeat),
					Suggestion: "Use --repeat 1 or more",
				}
			}

			if err := cfg.Load(); err != nil {
				return err
			}

			name, err := selectStore(cfg.Definition, storeName)
			if err != nil {
				return err
			}

			var observer metrics.Observer = metrics.Nop{}
			if cfg.Logger != nil {
				observer = metrics.NewLog(cfg.Logger)
			}
			sr, err := newStoreResolver(cfg, name, observer)
			if err != nil {
				return err
			}
			defer sr.close()

			ctx := cmd.Context()
			results := make([]getResult, len(args))
			var (
				firstErr error
				missing  int
			)
			for round := 0; round < repeat; round++ {
				missing = 0
				for i, secret := range args {
					value, found, err := sr.resolver.ResolveString(ctx, secret)
					results[i] = getResult{Name: secret, Store: name, Found: found, Value: value}
					switch {
					case err != nil:
						results[i].Error = err.Error()
						if firstErr == nil {
							firstErr = sr.userError(secret, err)
						}
					case !found:
						missing++
					}
				}
				if firstErr != nil {
					break
				}
			}

			if cfg.Logger != nil {
				stats := sr.resolver.CacheStats()
				cfg.Logger.Debug("cache: %d hit(s), %d miss(es), %d entr(ies)", stats.Hits, stats.Misses, sr.resolver.Size())
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(results); err != nil {
					return fmt.Errorf("failed to encode JSON: %w", err)
				}
			} else {
				for _, r := range results {
					switch {
					case r.Error != "":
						// reported through the returned error
					case !r.Found:
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: secret %q not found in store %q\n", r.Name, r.Store)
					case len(args) == 1:
						_, _ = fmt.Fprint(out, r.Value)
					default:
						_, _ = fmt.Fprintln(out, r.Value)
					}
				}
			}

			if firstErr != nil {
				return ExitError{Code: ExitFailure, Err: firstErr}
			}
			if missing > 0 {
				return ExitError{Code: ExitNotFound}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&storeName, "store", "s", "", "Store to resolve from (optional when only one is configured)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "Resolve every name this many times")

	return cmd
}

package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/secretcache/internal/config"
)

func NewStoresCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "List configured stores",
		Long: `Display the configured secret stores with their effective cache,
retry and circuit breaker settings after defaults and environment overrides.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			names := cfg.Definition.StoreNames()
			if len(names) == 0 {
				_, _ = fmt.Fprintln(out, "No stores configured")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "NAME\tTYPE\tSTATUS\tTIMEOUT\tCACHE TTL\tMAX ENTRIES\tRETRIES\tBASE DELAY\tBREAKER\n")
			_, _ = fmt.Fprintf(w, "----\t----\t------\t-------\t---------\t-----------\t-------\t----------\t-------\n")
			for _, name := range names {
				store, err := cfg.Definition.Store(name)
				if err != nil {
					return err
				}
				settings, err := cfg.Definition.Resilience(name)
				if err != nil {
					return err
				}

				status := "configured"
				if !registry.IsSupported(store.Type) {
					status = "unsupported"
				}

				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					name,
					store.Type,
					status,
					store.Timeout(),
					settings.CacheTTL,
					settings.CacheMaxEntries,
					settings.RetryMaxAttempts,
					settings.RetryBaseDelay,
					breakerSummary(settings),
				)
			}
			return w.Flush()
		},
	}

	return cmd
}

func breakerSummary(r config.Resilience) string {
	if !r.CircuitBreakerEnabled {
		return "disabled"
	}
	return fmt.Sprintf("threshold=%s recovery=%s",
		strconv.FormatFloat(r.CircuitBreakerFailureThreshold, 'g', -1, 64),
		r.CircuitBreakerRecoveryTimeout)
}

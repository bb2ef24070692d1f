package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/systmms/secretcache/internal/config"
	scerrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/internal/logging"
	"github.com/systmms/secretcache/internal/metrics"
)

// metricsDisabled turns off the metrics listener when passed to --metrics-port.
const metricsDisabled = -1

func NewWatchCommand(cfg *config.Config) *cobra.Command {
	var (
		storeName   string
		interval    time.Duration
		metricsPort int
		iterations  int
	)

	cmd := &cobra.Command{
		Use:   "watch NAME...",
		Short: "Resolve secrets periodically and serve metrics",
		Long: `Resolve the given secrets on a fixed interval until interrupted,
exposing cache, retry and circuit breaker metrics for Prometheus on
/metrics and breaker states on /health.

Values are never printed; each round reports only whether every name
resolved.

Examples:
  # Watch two secrets every 30 seconds, metrics on :9090
  secretcache watch db-password api-key --store prod

  # Poll faster without a metrics listener
  secretcache watch db-password --interval 5s --metrics-port -1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return scerrors.UserError{
					Message:    fmt.Sprintf("Invalid --interval %s", interval),
					Suggestion: "Use a positive duration such as 30s",
				}
			}

			if err := cfg.Load(); err != nil {
				return err
			}

			name, err := selectStore(cfg.Definition, storeName)
			if err != nil {
				return err
			}

			logger := cfg.Logger
			if logger == nil {
				logger = logging.Discard()
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			observer := metrics.Multi(
				metrics.NewPrometheus(reg),
				metrics.NewOTel(nil),
				metrics.NewLog(logger),
			)

			sr, err := newStoreResolver(cfg, name, observer)
			if err != nil {
				return err
			}
			defer sr.close()

			if metricsPort != metricsDisabled {
				serverCfg := metrics.DefaultServerConfig()
				serverCfg.Port = metricsPort
				health := func() map[string]string {
					return map[string]string{name: sr.resolver.BreakerState().String()}
				}
				server := metrics.NewServer(serverCfg, reg, health, logger)
				if err := server.Start(); err != nil {
					return err
				}
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = server.Stop(ctx)
				}()
				logger.Info("Serving metrics on %s%s", server.Addr(), serverCfg.Path)
			}

			return watchLoop(cmd, sr, args, interval, iterations)
		},
	}

	cmd.Flags().StringVarP(&storeName, "store", "s", "", "Store to resolve from (optional when only one is configured)")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Time between resolve rounds")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", metrics.DefaultServerConfig().Port, "Metrics port (0 picks a free port, -1 disables)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Stop after this many rounds (0 runs until interrupted)")
	_ = cmd.Flags().MarkHidden("iterations")

	return cmd
}

// watchLoop runs one round immediately and then one per tick.
func watchLoop(cmd *cobra.Command, sr *storeResolver, names []string, interval time.Duration, iterations int) error {
	ctx := cmd.Context()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for round := 1; ; round++ {
		watchRound(ctx, cmd, sr, names)
		if iterations > 0 && round >= iterations {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func watchRound(ctx context.Context, cmd *cobra.Command, sr *storeResolver, names []string) {
	out := cmd.OutOrStdout()
	for _, secret := range names {
		_, found, err := sr.resolver.Resolve(ctx, secret)
		status := "ok"
		switch {
		case err != nil:
			status = "error: " + err.Error()
		case !found:
			status = "not found"
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", sr.name, secret, sr.resolver.BreakerState(), status)
	}
}

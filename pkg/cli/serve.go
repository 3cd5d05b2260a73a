package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/speedrun-hq/starkmarket/pkg/circuitbreaker"
	"github.com/speedrun-hq/starkmarket/pkg/config"
	"github.com/speedrun-hq/starkmarket/pkg/marketplace"
	"github.com/speedrun-hq/starkmarket/pkg/server"
)

func newServeCommand(opts *options, factory ExecutorFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the marketplace actions over HTTP with health and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.dryRun {
				return fmt.Errorf("--dry-run is not supported by serve")
			}

			cfg, err := config.LoadConfig(opts.envFile)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			executor, ready, publicKey, err := factory(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			log.Info("Account connected successfully with public key: %s", publicKey)

			composer := marketplace.NewComposer(contractsOf(cfg.Contracts), executor,
				marketplace.WithLogger(log),
				marketplace.WithTimeout(cfg.SubmitTimeout),
			)
			breaker := circuitbreaker.NewCircuitBreaker(
				cfg.CircuitBreaker.Enabled,
				cfg.CircuitBreaker.Threshold,
				cfg.CircuitBreaker.WindowDuration,
				cfg.CircuitBreaker.ResetTimeout,
				log,
			)

			srv := server.NewServer(cfg, composer, breaker, server.ReadinessFunc(ready), log)
			return srv.Start(cmd.Context())
		},
	}
}

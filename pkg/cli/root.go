package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/speedrun-hq/starkmarket/pkg/config"
	"github.com/speedrun-hq/starkmarket/pkg/logger"
	"github.com/speedrun-hq/starkmarket/pkg/marketplace"
	"github.com/speedrun-hq/starkmarket/pkg/starknet"
)

// ExecutorFactory builds the execution service and returns it with the account public key
type ExecutorFactory func(ctx context.Context, cfg *config.Config, log logger.Logger) (marketplace.Executor, ReadyChecker, string, error)

// ReadyChecker reports whether the execution service is reachable
type ReadyChecker func(ctx context.Context) error

type options struct {
	envFile string
	dryRun  bool
}

func starknetExecutor(ctx context.Context, cfg *config.Config, log logger.Logger) (marketplace.Executor, ReadyChecker, string, error) {
	e, err := starknet.NewExecutor(ctx, cfg, log)
	if err != nil {
		return nil, nil, "", err
	}
	return e, e.Ready, e.PublicKey(), nil
}

// NewRootCommand builds the command tree. A nil factory uses the Starknet RPC executor.
func NewRootCommand(factory ExecutorFactory) *cobra.Command {
	if factory == nil {
		factory = starknetExecutor
	}
	opts := &options{}

	root := &cobra.Command{
		Use:           "starkmarket",
		Short:         "Mint, list, cancel and buy NFTs on the Starknet marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "print the composed calls as JSON instead of submitting them")

	root.AddCommand(
		newActionCommand(opts, factory, marketplace.ActionMint, "mint", "Approve the mint price and mint an NFT", cobra.NoArgs),
		newActionCommand(opts, factory, marketplace.ActionList, "list <token-id> <price>", "Approve the market and list an NFT", cobra.ExactArgs(2)),
		newActionCommand(opts, factory, marketplace.ActionCancel, "cancel <token-id>", "Cancel a listing", cobra.ExactArgs(1)),
		newActionCommand(opts, factory, marketplace.ActionBuy, "buy <token-id> <price>", "Approve the price and buy a listed NFT", cobra.ExactArgs(2)),
		newServeCommand(opts, factory),
	)
	return root
}

// Execute runs the CLI with SIGINT/SIGTERM cancelling the context
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand(nil).ExecuteContext(ctx)
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)
}

func contractsOf(c config.ContractsConfig) marketplace.Contracts {
	return marketplace.Contracts{Token: c.Token, NFT: c.NFT, Market: c.Market}
}

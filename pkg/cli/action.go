package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/speedrun-hq/starkmarket/pkg/config"
	"github.com/speedrun-hq/starkmarket/pkg/marketplace"
	"github.com/speedrun-hq/starkmarket/pkg/server"
)

func newActionCommand(opts *options, factory ExecutorFactory, kind marketplace.ActionKind, use, short string, args cobra.PositionalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			var tokenID, price string
			if len(args) > 0 {
				tokenID = args[0]
			}
			if len(args) > 1 {
				price = args[1]
			}

			// parameters are checked before any configuration or network access
			params, err := server.ParamsFor(kind, tokenID, price)
			if err != nil {
				return err
			}

			if opts.dryRun {
				return printCalls(cmd, opts, kind, params)
			}
			return submit(cmd, opts, factory, kind, params)
		},
	}
}

func printCalls(cmd *cobra.Command, opts *options, kind marketplace.ActionKind, params marketplace.Params) error {
	contracts, err := config.LoadContracts(opts.envFile)
	if err != nil {
		return err
	}

	calls, err := marketplace.Compose(contractsOf(contracts), kind, params)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(calls)
}

func submit(cmd *cobra.Command, opts *options, factory ExecutorFactory, kind marketplace.ActionKind, params marketplace.Params) error {
	cfg, err := config.LoadConfig(opts.envFile)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	executor, _, publicKey, err := factory(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Account connected successfully with public key: %s\n", publicKey)

	composer := marketplace.NewComposer(contractsOf(cfg.Contracts), executor,
		marketplace.WithLogger(log),
		marketplace.WithTimeout(cfg.SubmitTimeout),
	)

	result, err := composer.Submit(cmd.Context(), kind, params)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Tx Hash: %s\n", result.TransactionHash)
	return nil
}

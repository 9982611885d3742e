package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/app"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/app/worker"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/config"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/logger"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/ui"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	flagTxCount        = "tx-count"
	flagWallets        = "wallets"
	flagProxies        = "proxies"
	flagLedger         = "ledger"
	flagLog            = "log"
	flagNonInteractive = "non-interactive"
	flagFrom           = "from"
	flagTo             = "to"
	flagSymbol         = "symbol"
	flagAmount         = "amount"

	keyNonInteractive = "non_interactive"
)

type cli struct {
	v    *viper.Viper
	sink *logger.Sink
	app  *app.App
}

func newRootCmd() *cobra.Command {
	return newCLI().command()
}

func newCLI() *cli {
	return &cli{v: viper.New()}
}

func (c *cli) command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "blockstreet-bot",
		Short:             "BlockStreet auto bot: swap, supply, withdraw, borrow, repay and check-in across wallets",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) { c.teardown() },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.menu(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.Int(flagTxCount, 1, fmt.Sprintf("operations per wallet per mode (%d-%d)", config.MinTxCount, config.MaxTxCount))
	flags.String(flagWallets, "private_keys.txt", "wallet file, one key:name per line")
	flags.String(flagProxies, "proxies.txt", "proxy file, optional")
	flags.String(flagLedger, "data/ledger.db", "sqlite operation ledger, empty disables it")
	flags.String(flagLog, "logs/app.log", "log file")
	flags.Bool(flagNonInteractive, false, "never prompt for missing parameters")
	c.bind(flags, config.KeyTxCount, flagTxCount)
	c.bind(flags, config.KeyWalletsFile, flagWallets)
	c.bind(flags, config.KeyProxiesFile, flagProxies)
	c.bind(flags, config.KeyLedgerFile, flagLedger)
	c.bind(flags, config.KeyLogFile, flagLog)
	c.bind(flags, keyNonInteractive, flagNonInteractive)

	rootCmd.AddCommand(
		newModeCmd(c, worker.ModeAutoSwap, "Random swaps among each wallet's supplied assets"),
		newSwapCmd(c),
		newAssetCmd(c, worker.ModeSupply, "Supply a token"),
		newAssetCmd(c, worker.ModeWithdraw, "Withdraw a supplied token"),
		newAssetCmd(c, worker.ModeBorrow, "Borrow a token"),
		newAssetCmd(c, worker.ModeRepay, "Repay a borrowed token"),
		newModeCmd(c, worker.ModeCheckIn, "Daily check-in for every wallet"),
		newModeCmd(c, worker.ModeAutoAll, "Check-in plus every operation, repeated every 24 hours"),
		newWalletsCmd(c),
		newSecurityCmd(c),
	)
	return rootCmd
}

func (c *cli) bind(flags *pflag.FlagSet, key, name string) {
	_ = c.v.BindPFlag(key, flags.Lookup(name))
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}
	sink, err := logger.Open(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	c.sink = sink
	c.app = app.New(cfg, sink, app.Options{})
	ui.Banner(cfg.Service.Name)
	return nil
}

func (c *cli) teardown() {
	if c.app != nil {
		if err := c.app.Close(); err != nil {
			c.sink.Named("").Warn(fmt.Sprintf("Close ledger: %v", err))
		}
	}
	if c.sink != nil {
		_ = c.sink.Close()
	}
}

func (c *cli) interactive() bool {
	return !c.v.GetBool(keyNonInteractive)
}

func (c *cli) run(ctx context.Context, job app.Job) error {
	return c.outcome(c.app.Run(ctx, job))
}

// outcome treats an interrupt or a declined confirmation as a clean exit.
func (c *cli) outcome(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		c.sink.Named("").Warn("Interrupted, shutting down")
		return nil
	case errors.Is(err, app.ErrCancelled):
		c.sink.Named("").Info("Cancelled")
		return nil
	}
	return err
}

// parseJob turns flag values into a job. Empty values are left for prompting.
func parseJob(mode worker.Mode, from, to, symbol, amount string, interactive bool) (app.Job, error) {
	job := app.Job{
		Mode:        mode,
		From:        strings.TrimSpace(from),
		To:          strings.TrimSpace(to),
		Symbol:      strings.TrimSpace(symbol),
		Interactive: interactive,
	}
	if s := strings.TrimSpace(amount); s != "" {
		d, err := ui.ParseAmount(s, decimal.Zero)
		if err != nil {
			return app.Job{}, err
		}
		job.Amount = d
	}
	return job, nil
}

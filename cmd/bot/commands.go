package main

import (
	"context"
	"fmt"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/app/worker"
	"github.com/ohmynofan/blockstreet-auto-bot/internal/platform/ui"
	"github.com/spf13/cobra"
)

func newModeCmd(c *cli, mode worker.Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := parseJob(mode, "", "", "", "", c.interactive())
			if err != nil {
				return err
			}
			return c.run(cmd.Context(), job)
		},
	}
}

func newSwapCmd(c *cli) *cobra.Command {
	var from, to, amount string

	cmd := &cobra.Command{
		Use:   string(worker.ModeSwap),
		Short: "Swap one token for another, tx-count times per wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := parseJob(worker.ModeSwap, from, to, "", amount, c.interactive())
			if err != nil {
				return err
			}
			return c.run(cmd.Context(), job)
		},
	}
	cmd.Flags().StringVar(&from, flagFrom, "", "token to swap from")
	cmd.Flags().StringVar(&to, flagTo, "", "token to swap to")
	cmd.Flags().StringVar(&amount, flagAmount, "", "amount per swap")
	return cmd
}

func newAssetCmd(c *cli, mode worker.Mode, short string) *cobra.Command {
	var symbol, amount string

	cmd := &cobra.Command{
		Use:   string(mode),
		Short: short + ", tx-count times per wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := parseJob(mode, "", "", symbol, amount, c.interactive())
			if err != nil {
				return err
			}
			return c.run(cmd.Context(), job)
		},
	}
	cmd.Flags().StringVar(&symbol, flagSymbol, "", "token symbol")
	cmd.Flags().StringVar(&amount, flagAmount, "", "amount per operation")
	return cmd
}

func newWalletsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "wallets",
		Short: "Show the configured wallets and proxies",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return c.app.ShowWallets()
		},
	}
}

func newSecurityCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "security",
		Short: "Show the transaction guard settings",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			c.app.ShowSecurity()
		},
	}
}

var (
	selectOption = ui.Select
	inputTxCount = ui.InputTxCount
)

type menuEntry struct {
	label string
	mode  worker.Mode
}

const (
	menuTxCount  = "Set transaction count"
	menuWallets  = "Wallet configuration"
	menuSecurity = "Security settings"
	menuExit     = "Exit"
)

var menuEntries = []menuEntry{
	{"Auto swap", worker.ModeAutoSwap},
	{"Manual swap", worker.ModeSwap},
	{"Supply", worker.ModeSupply},
	{"Withdraw", worker.ModeWithdraw},
	{"Borrow", worker.ModeBorrow},
	{"Repay", worker.ModeRepay},
	{"Daily check-in", worker.ModeCheckIn},
	{"Auto all (every 24h)", worker.ModeAutoAll},
}

func menuOptions() []string {
	opts := make([]string, 0, len(menuEntries)+4)
	for _, e := range menuEntries {
		opts = append(opts, e.label)
	}
	return append(opts, menuTxCount, menuWallets, menuSecurity, menuExit)
}

func modeForLabel(label string) (worker.Mode, bool) {
	for _, e := range menuEntries {
		if e.label == label {
			return e.mode, true
		}
	}
	return "", false
}

// menu solves the captcha and logs in once, then loops over the interactive
// selection until Exit or cancellation.
func (c *cli) menu(ctx context.Context) error {
	if err := c.app.Prepare(ctx); err != nil {
		return c.outcome(err)
	}
	log := c.sink.Named("")
	for ctx.Err() == nil {
		choice, err := selectOption(fmt.Sprintf("Choose an action (tx count %d)", c.app.TxCount()), menuOptions())
		if err != nil {
			return err
		}
		switch choice {
		case menuExit:
			return nil
		case menuTxCount:
			n, err := inputTxCount(c.app.TxCount())
			if err == nil {
				err = c.app.SetTxCount(n)
			}
			if err != nil {
				log.Error(err.Error())
			}
			continue
		case menuWallets:
			if err := c.app.ShowWallets(); err != nil {
				log.Error(err.Error())
			}
			continue
		case menuSecurity:
			c.app.ShowSecurity()
			continue
		}
		mode, ok := modeForLabel(choice)
		if !ok {
			continue
		}
		job, err := parseJob(mode, "", "", "", "", true)
		if err != nil {
			return err
		}
		if err := c.outcome(c.app.Execute(ctx, job)); err != nil {
			log.Error(err.Error())
		}
	}
	return nil
}

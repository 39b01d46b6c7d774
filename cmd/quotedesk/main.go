package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "quotedesk: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "quotedesk",
		Short: "Edit and validate claim line items from the terminal",
		Long: `quotedesk opens a shock's supply and workforce lines in an editable
table, keeps unsaved rows across restarts and validates them against the
quote API in batches.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/quotedesk/config.toml)")

	root.AddCommand(newOpenCmd(&configPath))
	root.AddCommand(newPendingCmd(&configPath))
	return root
}

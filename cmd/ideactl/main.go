package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	var opts globalOpts
	rootCmd := &cobra.Command{
		Use:           "ideactl",
		Short:         "Operator tool for payment sessions, subscriptions and the payment ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&opts.dev, "dev", false, "developer mode (config file optional, console logs)")

	rootCmd.AddCommand(sessionCmd(&opts))
	rootCmd.AddCommand(activateCmd(&opts))
	rootCmd.AddCommand(auditCmd(&opts))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

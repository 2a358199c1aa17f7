package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pixelmuse/pixelmuse/internal/interfaces/cli/migrate"
	"github.com/pixelmuse/pixelmuse/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pixelmuse",
		Short: "PixelMuse - subscription billing and usage metering",
		Long:  `PixelMuse runs the billing API, payment webhook processing, and the background renewal, ledger, and usage schedulers.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

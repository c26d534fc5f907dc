package main

import (
	"os"

	"github.com/spf13/cobra"

	"seatpool/internal/interfaces/cli/migrate"
	"seatpool/internal/interfaces/cli/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "seatpool",
		Short: "Seat pool allocation service",
		Long:  `Seat pool allocation service managing organization seat pools, the seat event ledger, and the reconciliation worker.`,
	}

	rootCmd.AddCommand(
		worker.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

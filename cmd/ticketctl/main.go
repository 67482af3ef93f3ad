package main

import (
	"context"
	"fmt"
	"os"

	"moviebooking/internal/app"
	"moviebooking/internal/shared/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	backend  *app.Backend
	services *app.Services
)

var rootCmd = &cobra.Command{
	Use:   "ticketctl",
	Short: "Movie booking admin CLI",
	Long:  `Seed the catalog, rebuild inventory counters, purge old cancellations and print booking statistics.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg = config.Load()

		b, err := app.Open(cfg)
		if err != nil {
			return fmt.Errorf("failed to open %s storage: %w", cfg.Database.Driver, err)
		}
		backend = b
		services = app.NewServices(cfg, backend, nil)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if backend == nil {
			return nil
		}
		return backend.Close()
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(newSeedCmd(), newReconcileCmd(), newPurgeCmd(), newStatsCmd())
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/veriface/internal/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	pool, _, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	fmt.Printf("Database is up to date (%d migrations applied)\n", len(applied))
	for _, m := range applied {
		fmt.Printf("  %03d_%s  applied %s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

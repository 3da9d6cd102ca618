package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  "Apply pending schema migrations and list the migrations recorded in the database.",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := pool.MigrationsApplied(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	fmt.Printf("Schema up to date, %d migrations applied:\n", len(applied))
	for _, name := range applied {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

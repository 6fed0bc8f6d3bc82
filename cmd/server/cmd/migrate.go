package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/megalith-foundation/server/internal/storage/postgres"
)

var migrateDownSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	Long: `Apply embedded schema migrations to the database named by DATABASE_URL.
Use --down N to roll back the last N migrations instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		databaseURL := os.Getenv("DATABASE_URL")
		if databaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}

		if migrateDownSteps > 0 {
			if err := postgres.MigrateDown(databaseURL, migrateDownSteps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", migrateDownSteps)
			return nil
		}

		if err := postgres.MigrateUp(databaseURL); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateDownSteps, "down", 0, "roll back this many migrations instead of migrating up")
}

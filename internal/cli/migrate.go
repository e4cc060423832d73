// internal/cli/migrate.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
)

func newMigrateCommand(app *App) *cobra.Command {
	var fresh bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, closeDB, err := app.session()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := cmd.Context()
			m := postgres.NewMigration(db, app.Log)
			if fresh {
				if err := m.DropAllTables(ctx); err != nil {
					return err
				}
			}
			if err := m.RunAutoMigrations(ctx); err != nil {
				return err
			}
			if err := m.CreateIndexes(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	cmd.Flags().BoolVar(&fresh, "fresh", false, "drop every table before migrating")
	return cmd
}

func newSeedCommand(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo catalog and the admin account",
		Long: `Seed creates the demo attribute schema, product types, categories,
products and stock. The catalog is skipped when attributes already exist.
An admin account is created when --admin-email and --admin-password are set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, closeDB, err := app.session()
			if err != nil {
				return err
			}
			defer closeDB()

			m := postgres.NewMigration(db, app.Log)
			if err := m.SeedInitialData(cmd.Context(), postgres.SeedOptionsFromConfig(cfg, email, password)); err != nil {
				return fmt.Errorf("failed to seed data: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "seed data loaded")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "admin-email", "", "email of the staff account to create")
	cmd.Flags().StringVar(&password, "admin-password", "", "password of the staff account to create")
	return cmd
}

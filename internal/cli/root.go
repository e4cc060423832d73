// internal/cli/root.go
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

// App holds what the management commands need. The zero-value hooks are
// replaced by Default with the real config loader and postgres connection.
type App struct {
	LoadConfig func() (*config.Config, error)
	OpenDB     func(cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, func() error, error)
	Log        *logrus.Logger
}

// Default wires the commands to the environment and postgres
func Default() *App {
	return &App{
		LoadConfig: config.Load,
		OpenDB: func(cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, func() error, error) {
			conn, err := postgres.NewConnection(cfg, log)
			if err != nil {
				return nil, nil, err
			}
			return conn.GetDB(), conn.Close, nil
		},
	}
}

// session loads config and opens the database for one command run
func (a *App) session() (*config.Config, *gorm.DB, func() error, error) {
	cfg, err := a.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.Log == nil {
		a.Log = logger.New(cfg.Logging)
	}
	db, closeDB, err := a.OpenDB(cfg, a.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, db, closeDB, nil
}

// NewRootCommand builds the manage command tree
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "manage",
		Short: "Storefront management commands",
		Long: `Management commands for the storefront backend: schema migrations,
demo data, admin password hashes and cart stock checks.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCommand(app),
		newSeedCommand(app),
		newHashPasswordCommand(),
		newCheckStockCommand(app),
	)
	return root
}

package migrate

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/orris-inc/gamepanel/internal/infrastructure/config"
	"github.com/orris-inc/gamepanel/internal/infrastructure/database"
	"github.com/orris-inc/gamepanel/internal/infrastructure/migration"
	"github.com/orris-inc/gamepanel/internal/interfaces/cli/bootstrap"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

var (
	env        string
	configPath string
	name       string
	steps      int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage database migrations including running migrations, checking status, and creating new migration files.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
		newCreateCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		Long:  `Apply all pending database migrations to bring the database schema up to date.`,
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		Long:  `Rollback a specified number of database migrations.`,
		RunE:  runDown,
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long:  `Display the current migration version and status of the database.`,
		RunE:  runStatus,
	}
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new migration",
		Long:  `Create a new SQL migration file for the configured database driver. Run it from the repository root.`,
		RunE:  runCreate,
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the migration (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// withGoose opens the database and hands fn the goose strategy for its driver.
func withGoose(fn func(cfg *config.Config, db *gorm.DB, strategy *migration.GooseStrategy, log logger.Interface) error) error {
	cfg, log, err := bootstrap.Init(env, configPath)
	if err != nil {
		return err
	}

	db, err := bootstrap.OpenDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	strategy := migration.NewGooseStrategy(cfg.Database.Driver, log).(*migration.GooseStrategy)
	return fn(cfg, db, strategy, log)
}

func runUp(cmd *cobra.Command, args []string) error {
	return withGoose(func(cfg *config.Config, db *gorm.DB, strategy *migration.GooseStrategy, log logger.Interface) error {
		log.Infow("running up migrations", "driver", cfg.Database.Driver)

		if err := strategy.Migrate(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		log.Infow("migrations completed successfully")
		return nil
	})
}

func runDown(cmd *cobra.Command, args []string) error {
	return withGoose(func(cfg *config.Config, db *gorm.DB, strategy *migration.GooseStrategy, log logger.Interface) error {
		log.Infow("running down migrations", "driver", cfg.Database.Driver, "steps", steps)

		if err := strategy.MigrateDown(db, steps); err != nil {
			return fmt.Errorf("down migration failed: %w", err)
		}

		log.Infow("down migration completed successfully")
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withGoose(func(cfg *config.Config, db *gorm.DB, strategy *migration.GooseStrategy, log logger.Interface) error {
		version, err := strategy.GetVersion(db)
		if err != nil {
			return fmt.Errorf("failed to get migration version: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nMigration Status:\n")
		fmt.Fprintf(out, "  Driver:          %s\n", database.DriverName(cfg.Database.Driver))
		fmt.Fprintf(out, "  Current Version: %d\n", version)

		if err := strategy.Status(db); err != nil {
			return fmt.Errorf("failed to get detailed status: %w", err)
		}
		return nil
	})
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap.Init(env, configPath)
	if err != nil {
		return err
	}

	strategy := migration.NewGooseStrategy(cfg.Database.Driver, log).(*migration.GooseStrategy)
	if err := strategy.Create(name); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Migration '%s' created successfully\n", name)
	return nil
}

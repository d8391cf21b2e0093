// Package bootstrap holds the setup shared by every CLI command.
package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/gamepanel/internal/infrastructure/config"
	"github.com/orris-inc/gamepanel/internal/infrastructure/database"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

// Init loads the configuration and initializes the process logger. An empty
// env keeps the server mode from the configuration.
func Init(env, configPath string) (*config.Config, logger.Interface, error) {
	cfg, err := config.Load(GinMode(env), configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, logger.NewLogger(), nil
}

// OpenDatabase opens the configured database.
func OpenDatabase(cfg *config.Config, log logger.Interface) (*gorm.DB, error) {
	db, err := database.Open(&cfg.Database, log.Named("database"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// GinMode maps an environment name to a gin mode.
func GinMode(environment string) string {
	switch environment {
	case "":
		return ""
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}

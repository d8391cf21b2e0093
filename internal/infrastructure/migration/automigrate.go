package migration

import (
	"github.com/orris-inc/gamepanel/internal/infrastructure/persistence/models"
)

// AutoMigrateModels lists the models GORM AutoMigrate keeps in sync.
func AutoMigrateModels() []any {
	return []any{
		&models.NodeModel{},
	}
}

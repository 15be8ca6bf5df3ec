package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pos-inventory-backend/pkg/config"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db/models"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
)

// MaybeRunDev migrates the schema when the app runs in dev mode with the
// auto-migrate flag on. Postgres uses goose; mysql and sqlite use gorm
// AutoMigrate on the same models.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	driver := cfg.DB.NormalizedDriver()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "db_driver": driver})

	if driver != config.DriverPostgres {
		logg.Info(ctx, "running gorm auto-migrate (dev auto-run)")
		if err := client.AutoMigrate(ctx, models.All()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		logg.Info(ctx, "auto-migrate completed")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running goose migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "goose migrations completed")
	return nil
}

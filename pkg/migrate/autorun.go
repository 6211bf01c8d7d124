package migrate

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/castmenu-backend/pkg/config"
	"github.com/angelmondragon/castmenu-backend/pkg/db"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
)

// ShouldAutoRun reports whether the API applies migrations on boot. Production
// never does; everywhere else CASTMENU_AUTO_MIGRATE opts in, and a local
// SQLite file always migrates since nothing else would create its schema.
func ShouldAutoRun(cfg *config.Config) bool {
	if cfg.App.IsProd() {
		return false
	}
	return cfg.FeatureFlags.AutoMigrate || cfg.FeatureFlags.UseSQLite
}

// AutoRun applies pending migrations when ShouldAutoRun allows it and returns
// the schema version afterwards, or 0 when nothing ran.
func AutoRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) (int64, error) {
	if !ShouldAutoRun(cfg) {
		return 0, nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return 0, fmt.Errorf("extracting sql.DB: %w", err)
	}

	dialect := DialectFor(cfg.FeatureFlags.UseSQLite)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": dialect})

	if err := Up(ctx, sqlDB, dialect); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	logg.Info(logg.WithField(ctx, "version", version), "migrations applied on boot")
	return version, nil
}

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/castmenu-backend/pkg/config"
	"github.com/angelmondragon/castmenu-backend/pkg/db"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
	"github.com/angelmondragon/castmenu-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// dbCommands run against the configured database; everything else only
// touches the migrations directory.
var dbCommands = map[string]func(ctx context.Context, sqlDB *sql.DB, dialect string, opts options) error{
	"up": func(ctx context.Context, sqlDB *sql.DB, dialect string, _ options) error {
		return migrate.Run(ctx, sqlDB, dialect, "up")
	},
	"down": func(ctx context.Context, sqlDB *sql.DB, dialect string, _ options) error {
		return migrate.Run(ctx, sqlDB, dialect, "down")
	},
	"status": func(ctx context.Context, sqlDB *sql.DB, dialect string, _ options) error {
		return migrate.Run(ctx, sqlDB, dialect, "status")
	},
	"version": func(ctx context.Context, sqlDB *sql.DB, dialect string, opts options) error {
		if opts.version == "" {
			return fmt.Errorf("-version is required")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, dialect, opts.version)
	},
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory used by create and validate")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": opts.cmd, "dir": opts.dir})

	switch opts.cmd {
	case "create":
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		exitOn(ctx, logg, "create migration", err)
		fmt.Println("created migration:", path)
		return
	case "validate":
		exitOn(ctx, logg, "validate migrations", migrate.ValidateDir(opts.dir))
		fmt.Println("migration validation passed")
		return
	}

	run, ok := dbCommands[opts.cmd]
	if !ok {
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", opts.cmd)
		os.Exit(2)
	}

	cfg, err := config.Load()
	exitOn(ctx, logg, "config", err)
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dialect := migrate.DialectFor(cfg.FeatureFlags.UseSQLite)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": dialect})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	exitOn(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOn(ctx, logg, "sql database", err)

	if err := run(ctx, sqlDB, dialect, opts); err != nil {
		dbClient.Close()
		exitOn(ctx, logg, "goose "+opts.cmd, err)
	}
	logg.Info(ctx, "migrate finished")
}

func exitOn(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}

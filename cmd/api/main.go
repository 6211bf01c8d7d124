package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/castmenu-backend/api"
	"github.com/angelmondragon/castmenu-backend/api/routes"
	"github.com/angelmondragon/castmenu-backend/internal/admins"
	"github.com/angelmondragon/castmenu-backend/internal/auth"
	"github.com/angelmondragon/castmenu-backend/internal/badges"
	"github.com/angelmondragon/castmenu-backend/internal/casts"
	"github.com/angelmondragon/castmenu-backend/internal/drinks"
	"github.com/angelmondragon/castmenu-backend/internal/media"
	"github.com/angelmondragon/castmenu-backend/internal/settings"
	"github.com/angelmondragon/castmenu-backend/pkg/auth/session"
	"github.com/angelmondragon/castmenu-backend/pkg/cache"
	"github.com/angelmondragon/castmenu-backend/pkg/config"
	"github.com/angelmondragon/castmenu-backend/pkg/db"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
	"github.com/angelmondragon/castmenu-backend/pkg/metrics"
	"github.com/angelmondragon/castmenu-backend/pkg/migrate"
	"github.com/angelmondragon/castmenu-backend/pkg/redis"
	"github.com/angelmondragon/castmenu-backend/pkg/security"
	"github.com/angelmondragon/castmenu-backend/pkg/storage/s3"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	requireResource(ctx, logg, "database", err)

	_, err = migrate.AutoRun(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "boot migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	closeAll := func() {
		if err := multierr.Combine(dbClient.Close(), redisClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}
	defer closeAll()

	jsonCache := cache.New(redisClient, cfg.Cache.TTL, logg)

	castService, err := casts.NewService(casts.NewRepository(dbClient.DB()), dbClient)
	requireResource(ctx, logg, "cast service", err)

	badgeService, err := badges.NewService(badges.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "badge service", err)

	drinkService, err := drinks.NewService(drinks.NewRepository(dbClient.DB()), jsonCache)
	requireResource(ctx, logg, "drink service", err)

	settingsService, err := settings.NewService(settings.NewRepository(dbClient.DB()), dbClient, jsonCache)
	requireResource(ctx, logg, "settings service", err)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	adminService, err := admins.NewService(admins.NewRepository(dbClient.DB()), dbClient, security.NewHasher(cfg.Password), sessionManager)
	requireResource(ctx, logg, "admin service", err)

	if created, err := adminService.Bootstrap(ctx, cfg.Bootstrap); err != nil {
		requireResource(ctx, logg, "admin bootstrap", err)
	} else if created {
		logg.Info(logg.WithField(ctx, "username", cfg.Bootstrap.AdminUsername), "bootstrap admin created")
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Admins:         adminService,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	requireResource(ctx, logg, "auth service", err)

	var (
		mediaService  media.Service
		storagePinger db.Pinger
	)
	if cfg.Storage.Enabled() {
		storageClient, err := s3.NewClient(ctx, cfg.Storage)
		requireResource(ctx, logg, "object storage", err)
		mediaService, err = media.NewService(storageClient, cfg.Media.MaxUploadBytes(), logg)
		requireResource(ctx, logg, "media service", err)
		storagePinger = storageClient
	} else {
		logg.Warn(ctx, "object storage not configured, image routes disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		storagePinger,
		sessionManager,
		metrics.NewHTTPMetrics(registry),
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		castService,
		badgeService,
		drinkService,
		settingsService,
		adminService,
		authService,
		mediaService,
	)

	server := api.NewServer(cfg, handler)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": server.Addr,
	})

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			closeAll()
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), api.ShutdownTimeout)
	defer cancel()
	logg.Info(shutdownCtx, "shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "graceful shutdown failed", err)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}

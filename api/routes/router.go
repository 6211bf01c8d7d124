package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/castmenu-backend/api/controllers"
	"github.com/angelmondragon/castmenu-backend/api/middleware"
	"github.com/angelmondragon/castmenu-backend/internal/admins"
	"github.com/angelmondragon/castmenu-backend/internal/auth"
	"github.com/angelmondragon/castmenu-backend/internal/badges"
	"github.com/angelmondragon/castmenu-backend/internal/casts"
	"github.com/angelmondragon/castmenu-backend/internal/drinks"
	"github.com/angelmondragon/castmenu-backend/internal/media"
	"github.com/angelmondragon/castmenu-backend/internal/settings"
	"github.com/angelmondragon/castmenu-backend/pkg/auth/session"
	"github.com/angelmondragon/castmenu-backend/pkg/config"
	"github.com/angelmondragon/castmenu-backend/pkg/db"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
	"github.com/angelmondragon/castmenu-backend/pkg/metrics"
	"github.com/angelmondragon/castmenu-backend/pkg/redis"
)

// NewRouter mounts the public menu API and the admin API. A nil redis client
// disables idempotency replay and login rate limiting; a nil storage pinger
// removes object storage from readiness.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	storageP db.Pinger,
	sessions session.AccessSessionChecker,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	castService casts.Service,
	badgeService badges.Service,
	drinkService drinks.Service,
	settingsService settings.Service,
	adminService admins.Service,
	authService auth.Service,
	mediaService media.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	var (
		idempotencyStore redis.IdempotencyStore
		rateStore        middleware.RateLimiterStore
	)
	readiness := map[string]db.Pinger{"db": dbP}
	if redisClient != nil {
		idempotencyStore = redisClient
		rateStore = redisClient
		readiness["redis"] = redisClient
	}
	if storageP != nil {
		readiness["storage"] = storageP
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginIdentLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/casts", controllers.CastList(castService, logg))
		r.Get("/casts/{castId}", controllers.CastGet(castService, logg))
		r.Get("/badges", controllers.BadgeList(badgeService, logg))
		r.Get("/drinks/menu", controllers.DrinkMenu(drinkService, logg))
		r.Get("/settings", controllers.SettingsGet(settingsService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AdminAuthLogin(authService, logg))
			r.Post("/refresh", controllers.AdminAuthRefresh(authService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, sessions, logg))
				r.Post("/logout", controllers.AdminAuthLogout(authService, logg))
				r.Get("/me", controllers.AdminAuthMe(authService, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.Route("/casts", func(r chi.Router) {
				r.Get("/", controllers.CastList(castService, logg))
				r.Post("/", controllers.AdminCastCreate(castService, logg))
				r.Get("/{castId}", controllers.CastGet(castService, logg))
				r.Put("/{castId}", controllers.AdminCastUpdate(castService, logg))
				r.Patch("/{castId}", controllers.AdminCastUpdate(castService, logg))
				r.Delete("/{castId}", controllers.AdminCastDelete(castService, logg))
				r.Post("/{castId}/badges", controllers.AdminCastAssignBadge(castService, logg))
				r.Delete("/{castId}/badges/{badgeId}", controllers.AdminCastRemoveBadge(castService, logg))
			})

			r.Route("/badges", func(r chi.Router) {
				r.Get("/", controllers.BadgeList(badgeService, logg))
				r.Post("/", controllers.AdminBadgeCreate(badgeService, logg))
				r.Patch("/{badgeId}", controllers.AdminBadgeUpdate(badgeService, logg))
				r.Delete("/{badgeId}", controllers.AdminBadgeDelete(badgeService, logg))
			})

			r.Route("/drink-categories", func(r chi.Router) {
				r.Get("/", controllers.AdminCategoryList(drinkService, logg))
				r.Post("/", controllers.AdminCategoryCreate(drinkService, logg))
				r.Patch("/{categoryId}", controllers.AdminCategoryUpdate(drinkService, logg))
				r.Delete("/{categoryId}", controllers.AdminCategoryDelete(drinkService, logg))
			})

			r.Route("/drinks", func(r chi.Router) {
				r.Get("/", controllers.AdminDrinkList(drinkService, logg))
				r.Post("/", controllers.AdminDrinkCreate(drinkService, logg))
				r.Patch("/{drinkId}", controllers.AdminDrinkUpdate(drinkService, logg))
				r.Delete("/{drinkId}", controllers.AdminDrinkDelete(drinkService, logg))
			})

			r.Route("/admins", func(r chi.Router) {
				r.Get("/", controllers.AdminList(adminService, logg))
				r.Post("/", controllers.AdminCreate(adminService, logg))
				r.Get("/{adminId}", controllers.AdminGet(adminService, logg))
				r.Patch("/{adminId}", controllers.AdminUpdate(adminService, logg))
				r.Delete("/{adminId}", controllers.AdminDelete(adminService, logg))
			})

			r.Post("/images", controllers.AdminImageUpload(mediaService, cfg.Media.MaxUploadBytes(), logg))
			r.Delete("/images", controllers.AdminImageDelete(mediaService, logg))

			r.Get("/settings", controllers.SettingsGet(settingsService, logg))
			r.Put("/settings", controllers.AdminSettingsUpsert(settingsService, logg))
		})
	})

	return r
}

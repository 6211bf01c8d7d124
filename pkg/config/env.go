package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "CASTMENU"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "CASTMENU_APP_ENV"
	EnvPort         = "CASTMENU_APP_PORT"
	EnvDBDSN        = "CASTMENU_DB_DSN"
	EnvDBSQLitePath = "CASTMENU_DB_SQLITE_PATH"
	EnvDBHost       = "CASTMENU_DB_HOST"
	EnvDBUser       = "CASTMENU_DB_USER"
	EnvDBName       = "CASTMENU_DB_NAME"
	EnvRedisURL     = "CASTMENU_REDIS_URL"
	EnvJWTSecret    = "CASTMENU_JWT_SECRET"
	EnvJWTIssuer    = "CASTMENU_JWT_ISSUER"
	EnvJWTExpMins   = "CASTMENU_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite    = "CASTMENU_USE_SQLITE"
	EnvCacheTTL     = "CASTMENU_CACHE_TTL"
	EnvCORSOrigins  = "CASTMENU_CORS_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

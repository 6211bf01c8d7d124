package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Storage       StorageConfig
	Media         MediaConfig
	Cache         CacheConfig
	CORS          CORSConfig
	Bootstrap     BootstrapConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		if cfg.DB.SQLitePath == "" {
			return nil, fmt.Errorf("%s is required when %s is set", EnvDBSQLitePath, EnvUseSQLite)
		}
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CASTMENU_APP_ENV" required:"true"`
	Port         string `envconfig:"CASTMENU_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CASTMENU_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CASTMENU_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"CASTMENU_LOG_FORMAT"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"CASTMENU_DB_DSN"`
	SQLitePath string `envconfig:"CASTMENU_DB_SQLITE_PATH" default:"castmenu.db"`

	LegacyHost     string `envconfig:"CASTMENU_DB_HOST"`
	LegacyPort     int    `envconfig:"CASTMENU_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CASTMENU_DB_USER"`
	LegacyPassword string `envconfig:"CASTMENU_DB_PASSWORD"`
	LegacyName     string `envconfig:"CASTMENU_DB_NAME"`
	LegacySSLMode  string `envconfig:"CASTMENU_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CASTMENU_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CASTMENU_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CASTMENU_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CASTMENU_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the threshold above which statements are logged; zero disables it.
	SlowQuery time.Duration `envconfig:"CASTMENU_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CASTMENU_REDIS_URL"`
	KeyPrefix    string        `envconfig:"CASTMENU_REDIS_KEY_PREFIX" default:"cm"`
	Address      string        `envconfig:"CASTMENU_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"CASTMENU_REDIS_PASSWORD"`
	DB           int           `envconfig:"CASTMENU_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CASTMENU_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CASTMENU_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CASTMENU_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CASTMENU_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"CASTMENU_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CASTMENU_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CASTMENU_JWT_ISSUER" default:"castmenu"`
	ExpirationMinutes      int    `envconfig:"CASTMENU_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"CASTMENU_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the session TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CASTMENU_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CASTMENU_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CASTMENU_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CASTMENU_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CASTMENU_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"CASTMENU_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIdentLimit int           `envconfig:"CASTMENU_AUTH_RATE_LIMIT_LOGIN_IDENT_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"CASTMENU_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CASTMENU_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CASTMENU_AUTO_MIGRATE" default:"false"`
}

type StorageConfig struct {
	Endpoint       string `envconfig:"CASTMENU_S3_ENDPOINT"`
	Region         string `envconfig:"CASTMENU_S3_REGION" default:"us-east-1"`
	Bucket         string `envconfig:"CASTMENU_S3_BUCKET" default:"castmenu"`
	AccessKey      string `envconfig:"CASTMENU_S3_ACCESS_KEY"`
	SecretKey      string `envconfig:"CASTMENU_S3_SECRET_KEY"`
	ForcePathStyle bool   `envconfig:"CASTMENU_S3_FORCE_PATH_STYLE" default:"true"`
	PublicBaseURL  string `envconfig:"CASTMENU_S3_PUBLIC_BASE_URL"`
}

// Enabled reports whether object storage has enough configuration to be wired.
func (s StorageConfig) Enabled() bool {
	return strings.TrimSpace(s.Endpoint) != "" && s.AccessKey != "" && s.SecretKey != ""
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"CASTMENU_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes converts the configured upload cap to bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type CacheConfig struct {
	TTL time.Duration `envconfig:"CASTMENU_CACHE_TTL" default:"60s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CASTMENU_CORS_ORIGINS" default:"http://localhost:3000"`
}

// BootstrapConfig seeds the first admin when the admins table is empty.
type BootstrapConfig struct {
	AdminEmail    string `envconfig:"CASTMENU_BOOTSTRAP_ADMIN_EMAIL"`
	AdminUsername string `envconfig:"CASTMENU_BOOTSTRAP_ADMIN_USERNAME" default:"admin"`
	AdminPassword string `envconfig:"CASTMENU_BOOTSTRAP_ADMIN_PASSWORD"`
}

// Enabled reports whether both an email and a password were provided.
func (b BootstrapConfig) Enabled() bool {
	return strings.TrimSpace(b.AdminEmail) != "" && b.AdminPassword != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VELTEX_DB_DSN"
	EnvDBHost = "VELTEX_DB_HOST"
	EnvDBUser = "VELTEX_DB_USER"
	EnvDBName = "VELTEX_DB_NAME"

	// The CRM signs webhooks with a shared secret; anything shorter than this
	// is treated as a misconfiguration and the service refuses to start.
	MinWebhookSecretLen = 16
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	CRM          CRMConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.CRM.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VELTEX_APP_ENV" required:"true"`
	Port         string `envconfig:"VELTEX_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VELTEX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VELTEX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VELTEX_DB_DSN"`
	Driver string `envconfig:"VELTEX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VELTEX_DB_HOST"`
	LegacyPort     int    `envconfig:"VELTEX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VELTEX_DB_USER"`
	LegacyPassword string `envconfig:"VELTEX_DB_PASSWORD"`
	LegacyName     string `envconfig:"VELTEX_DB_NAME"`
	LegacySSLMode  string `envconfig:"VELTEX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VELTEX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VELTEX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VELTEX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VELTEX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VELTEX_REDIS_URL"`
	Address      string        `envconfig:"VELTEX_REDIS_ADDR"`
	Password     string        `envconfig:"VELTEX_REDIS_PASSWORD"`
	DB           int           `envconfig:"VELTEX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VELTEX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VELTEX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VELTEX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VELTEX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VELTEX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all. The replay
// cache is optional; the durable ledger works without it.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type CRMConfig struct {
	WebhookSecret    string        `envconfig:"VELTEX_CRM_WEBHOOK_SECRET" required:"true"`
	FreshnessWindow  time.Duration `envconfig:"VELTEX_CRM_FRESHNESS_WINDOW" default:"300s"`
	ReplayCacheTTL   time.Duration `envconfig:"VELTEX_CRM_REPLAY_CACHE_TTL" default:"168h"`
	AllowedOriginCSV string        `envconfig:"VELTEX_CRM_ALLOWED_ORIGINS"`
}

func (c CRMConfig) validate() error {
	if len(strings.TrimSpace(c.WebhookSecret)) < MinWebhookSecretLen {
		return fmt.Errorf("VELTEX_CRM_WEBHOOK_SECRET must be at least %d characters", MinWebhookSecretLen)
	}
	if c.FreshnessWindow <= 0 {
		return fmt.Errorf("VELTEX_CRM_FRESHNESS_WINDOW must be positive")
	}
	return nil
}

// AllowedOrigins splits the configured CSV into origins for the CORS layer.
func (c CRMConfig) AllowedOrigins() []string {
	if strings.TrimSpace(c.AllowedOriginCSV) == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOriginCSV, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VELTEX_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VELTEX_AUTO_MIGRATE" default:"false"`
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

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Upstream     UpstreamConfig
	Pricing      PricingConfig
	Checkout     CheckoutConfig
	Tracking     TrackingConfig
	Session      SessionConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"STOREFRONT_DB_DSN"`
	SQLitePath string `envconfig:"STOREFRONT_DB_SQLITE_PATH" default:"storefront.db"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// UpstreamConfig points at the ordering backend that owns clients, addresses and orders.
type UpstreamConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_UPSTREAM_BASE_URL" required:"true"`
	APIKey  string        `envconfig:"STOREFRONT_UPSTREAM_API_KEY"`
	Timeout time.Duration `envconfig:"STOREFRONT_UPSTREAM_TIMEOUT" default:"10s"`
}

type PricingConfig struct {
	SimpleRatio string `envconfig:"STOREFRONT_PRICING_SIMPLE_RATIO" default:"0.70"`
}

// Ratio returns the configured simple-variant ratio as a decimal.
func (p PricingConfig) Ratio() decimal.Decimal {
	ratio, err := decimal.NewFromString(strings.TrimSpace(p.SimpleRatio))
	if err != nil {
		return decimal.RequireFromString(defaultSimpleRatio)
	}
	return ratio
}

func (p PricingConfig) validate() error {
	ratio, err := decimal.NewFromString(strings.TrimSpace(p.SimpleRatio))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvPricingSimpleRatio, err)
	}
	if ratio.LessThanOrEqual(decimal.Zero) || ratio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be in (0, 1], got %s", EnvPricingSimpleRatio, ratio.String())
	}
	return nil
}

type CheckoutConfig struct {
	SubmitLockTTL time.Duration `envconfig:"STOREFRONT_CHECKOUT_SUBMIT_LOCK_TTL" default:"2m"`
}

type TrackingConfig struct {
	PollInterval  time.Duration `envconfig:"STOREFRONT_TRACKING_POLL_INTERVAL" default:"5s"`
	PickupAddress string        `envconfig:"STOREFRONT_TRACKING_PICKUP_ADDRESS"`
}

type SessionConfig struct {
	SnapshotTTL   time.Duration `envconfig:"STOREFRONT_SESSION_SNAPSHOT_TTL" default:"72h"`
	IdleTimeout   time.Duration `envconfig:"STOREFRONT_SESSION_IDLE_TIMEOUT" default:"2h"`
	SweepInterval time.Duration `envconfig:"STOREFRONT_SESSION_SWEEP_INTERVAL" default:"1m"`
}

// RateLimitConfig throttles the identity check. A zero window disables it.
type RateLimitConfig struct {
	IdentityWindow     time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_IDENTITY_WINDOW" default:"1m"`
	IdentityIPLimit    int           `envconfig:"STOREFRONT_RATE_LIMIT_IDENTITY_IP_LIMIT" default:"30"`
	IdentityValueLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_IDENTITY_VALUE_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`

	// ConfigurationAwareMerge only merges cart lines with identical selections.
	ConfigurationAwareMerge bool `envconfig:"STOREFRONT_CART_CONFIGURATION_AWARE_MERGE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite || db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

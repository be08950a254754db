package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "RTL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "RTL_APP_ENV"
	EnvDBDSN  = "RTL_DB_DSN"
	EnvDBHost = "RTL_DB_HOST"
	EnvDBUser = "RTL_DB_USER"
	EnvDBName = "RTL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Cart      CartConfig
	Payments  PaymentsConfig
	Sweeper   SweeperConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Sendgrid  SendgridConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RTL_APP_ENV" required:"true"`
	Port         string `envconfig:"RTL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RTL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RTL_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"RTL_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RTL_DB_DSN"`
	Driver string `envconfig:"RTL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RTL_DB_HOST"`
	LegacyPort     int    `envconfig:"RTL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RTL_DB_USER"`
	LegacyPassword string `envconfig:"RTL_DB_PASSWORD"`
	LegacyName     string `envconfig:"RTL_DB_NAME"`
	LegacySSLMode  string `envconfig:"RTL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RTL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RTL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RTL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RTL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RTL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RTL_REDIS_ADDR"`
	Password     string        `envconfig:"RTL_REDIS_PASSWORD"`
	DB           int           `envconfig:"RTL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RTL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RTL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RTL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RTL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RTL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RTL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RTL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RTL_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CartConfig struct {
	ExpiryDays       int `envconfig:"RTL_CART_EXPIRY_DAYS" default:"30"`
	ExtendExpiryDays int `envconfig:"RTL_CART_EXTEND_EXPIRY_DAYS" default:"30"`
}

// Expiry returns how long a fresh cart stays valid.
func (c CartConfig) Expiry() time.Duration {
	days := c.ExpiryDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

type PaymentsConfig struct {
	RequestExpiryHours int `envconfig:"RTL_PAYMENT_EXPIRY_HOURS" default:"24"`
}

// RequestExpiry returns how long a payment request stays payable.
func (p PaymentsConfig) RequestExpiry() time.Duration {
	hours := p.RequestExpiryHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

type SweeperConfig struct {
	Interval time.Duration `envconfig:"RTL_SWEEPER_INTERVAL" default:"1h"`
	LockKey  string        `envconfig:"RTL_SWEEPER_LOCK_KEY" default:"rtl:sweeper:lock"`
	LockTTL  time.Duration `envconfig:"RTL_SWEEPER_LOCK_TTL" default:"55m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RTL_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"RTL_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementTopic        string `envconfig:"RTL_PUBSUB_SETTLEMENT_TOPIC" default:"rtl-settlement-events"`
	SettlementSubscription string `envconfig:"RTL_PUBSUB_SETTLEMENT_SUBSCRIPTION" default:"rtl-settlement-notify"`
}

type RateLimitConfig struct {
	CheckoutWindow time.Duration `envconfig:"RTL_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int64         `envconfig:"RTL_RATE_LIMIT_CHECKOUT_LIMIT" default:"10"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"RTL_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"RTL_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"RTL_SENDGRID_FROM_NAME" default:"RocketTradeline"`
	AdminEmail  string `envconfig:"RTL_ADMIN_ALERT_EMAIL"`
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

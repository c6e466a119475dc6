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
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	APIRateLimit  APIRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Commerce      CommerceConfig
	CORS          CORSConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Worker        WorkerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Commerce.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LAVISH_APP_ENV" required:"true"`
	Port         string `envconfig:"LAVISH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LAVISH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LAVISH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LAVISH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LAVISH_DB_DSN"`
	Driver string `envconfig:"LAVISH_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"LAVISH_DB_HOST"`
	Port     int    `envconfig:"LAVISH_DB_PORT" default:"5432"`
	User     string `envconfig:"LAVISH_DB_USER"`
	Password string `envconfig:"LAVISH_DB_PASSWORD"`
	Name     string `envconfig:"LAVISH_DB_NAME"`
	SSLMode  string `envconfig:"LAVISH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LAVISH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LAVISH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LAVISH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LAVISH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LAVISH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LAVISH_REDIS_ADDR"`
	Password     string        `envconfig:"LAVISH_REDIS_PASSWORD"`
	DB           int           `envconfig:"LAVISH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LAVISH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LAVISH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LAVISH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LAVISH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LAVISH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LAVISH_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LAVISH_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"LAVISH_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"LAVISH_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	BcryptCost int `envconfig:"LAVISH_BCRYPT_COST" default:"12"`
	MinLength  int `envconfig:"LAVISH_PASSWORD_MIN_LENGTH" default:"8"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"LAVISH_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"LAVISH_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"LAVISH_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"LAVISH_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"LAVISH_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"LAVISH_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// APIRateLimitConfig drives the in-process token bucket applied per client.
type APIRateLimitConfig struct {
	RequestsPerSecond float64       `envconfig:"LAVISH_API_RATE_LIMIT_RPS" default:"20"`
	Burst             int           `envconfig:"LAVISH_API_RATE_LIMIT_BURST" default:"40"`
	IdleTTL           time.Duration `envconfig:"LAVISH_API_RATE_LIMIT_IDLE_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LAVISH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LAVISH_AUTO_MIGRATE" default:"false"`
	Metrics     bool `envconfig:"LAVISH_METRICS_ENABLED" default:"true"`
}

// CommerceConfig carries the pricing and lifecycle constants used by orders and carts.
type CommerceConfig struct {
	TaxRate               decimal.Decimal `envconfig:"LAVISH_TAX_RATE" default:"0.08"`
	FreeShippingThreshold decimal.Decimal `envconfig:"LAVISH_FREE_SHIPPING_THRESHOLD" default:"100"`
	FlatShippingFee       decimal.Decimal `envconfig:"LAVISH_FLAT_SHIPPING_FEE" default:"9.99"`
	ReturnWindowDays      int             `envconfig:"LAVISH_RETURN_WINDOW_DAYS" default:"30"`
	CartTTL               time.Duration   `envconfig:"LAVISH_CART_TTL" default:"720h"`
	LowStockThreshold     int             `envconfig:"LAVISH_LOW_STOCK_THRESHOLD" default:"5"`
	OrderNumberAttempts   int             `envconfig:"LAVISH_ORDER_NUMBER_ATTEMPTS" default:"3"`
}

func (c CommerceConfig) validate() error {
	if c.TaxRate.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvTaxRate)
	}
	if c.FlatShippingFee.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvFlatShippingFee)
	}
	if c.ReturnWindowDays < 0 {
		return fmt.Errorf("%s must not be negative", EnvReturnWindowDays)
	}
	return nil
}

// DefaultCommerce mirrors the envconfig defaults for callers that build services without Load.
func DefaultCommerce() CommerceConfig {
	return CommerceConfig{
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: decimal.NewFromInt(100),
		FlatShippingFee:       decimal.RequireFromString("9.99"),
		ReturnWindowDays:      30,
		CartTTL:               30 * 24 * time.Hour,
		LowStockThreshold:     5,
		OrderNumberAttempts:   3,
	}
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"LAVISH_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:3001"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"LAVISH_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic  string `envconfig:"LAVISH_PUBSUB_ORDERS_TOPIC" default:"lavish-order-events"`
	CatalogTopic string `envconfig:"LAVISH_PUBSUB_CATALOG_TOPIC" default:"lavish-catalog-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LAVISH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LAVISH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LAVISH_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"LAVISH_OUTBOX_RETENTION_DAYS" default:"14"`
}

type WorkerConfig struct {
	CartPurgeInterval time.Duration `envconfig:"LAVISH_WORKER_CART_PURGE_INTERVAL" default:"1h"`
	OutboxInterval    time.Duration `envconfig:"LAVISH_WORKER_OUTBOX_RETENTION_INTERVAL" default:"24h"`
	LockTTL           time.Duration `envconfig:"LAVISH_WORKER_LOCK_TTL" default:"10m"`
	MetricsPort       string        `envconfig:"LAVISH_WORKER_METRICS_PORT" default:"9091"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = "file:lavish.db?cache=shared"
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

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix envconfig uses when resolving unqualified fields.
const EnvPrefix = "GHAZALI"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Fully qualified environment variable names, kept in one place so error
// messages and tests never drift from the struct tags below.
const (
	EnvAppEnv   = "GHAZALI_APP_ENV"
	EnvPort     = "GHAZALI_APP_PORT"
	EnvDBDSN    = "GHAZALI_DB_DSN"
	EnvDBHost   = "GHAZALI_DB_HOST"
	EnvDBUser   = "GHAZALI_DB_USER"
	EnvDBName   = "GHAZALI_DB_NAME"
	EnvRedisURL = "GHAZALI_REDIS_URL"

	EnvJWTSecret              = "GHAZALI_JWT_SECRET"
	EnvJWTIssuer              = "GHAZALI_JWT_ISSUER"
	EnvJWTExpMins             = "GHAZALI_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "GHAZALI_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID          = "GHAZALI_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic     = "GHAZALI_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub       = "GHAZALI_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubNotificationSub = "GHAZALI_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubStockTopic      = "GHAZALI_PUBSUB_STOCK_TOPIC"
	EnvPubSubStockSub        = "GHAZALI_PUBSUB_STOCK_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	Checkout      CheckoutConfig
	Catalog       CatalogConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	SMTP          SMTPConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"GHAZALI_APP_ENV" required:"true"`
	Port         string `envconfig:"GHAZALI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GHAZALI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GHAZALI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GHAZALI_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GHAZALI_DB_DSN"`
	Driver string `envconfig:"GHAZALI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GHAZALI_DB_HOST"`
	LegacyPort     int    `envconfig:"GHAZALI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GHAZALI_DB_USER"`
	LegacyPassword string `envconfig:"GHAZALI_DB_PASSWORD"`
	LegacyName     string `envconfig:"GHAZALI_DB_NAME"`
	LegacySSLMode  string `envconfig:"GHAZALI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GHAZALI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GHAZALI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GHAZALI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GHAZALI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GHAZALI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GHAZALI_REDIS_ADDR"`
	Password     string        `envconfig:"GHAZALI_REDIS_PASSWORD"`
	DB           int           `envconfig:"GHAZALI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GHAZALI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GHAZALI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GHAZALI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GHAZALI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GHAZALI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GHAZALI_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GHAZALI_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GHAZALI_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GHAZALI_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GHAZALI_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GHAZALI_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GHAZALI_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GHAZALI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GHAZALI_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GHAZALI_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GHAZALI_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GHAZALI_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GHAZALI_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GHAZALI_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GHAZALI_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GHAZALI_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GHAZALI_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"GHAZALI_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// CheckoutConfig carries the pricing knobs applied to every order. Amounts
// are in the minor currency unit (paisa).
type CheckoutConfig struct {
	FreeDeliveryThreshold int64 `envconfig:"GHAZALI_CHECKOUT_FREE_DELIVERY_THRESHOLD" default:"250000"`
	DeliveryFee           int64 `envconfig:"GHAZALI_CHECKOUT_DELIVERY_FEE" default:"24000"`
	OrderSurcharge        int64 `envconfig:"GHAZALI_CHECKOUT_ORDER_SURCHARGE" default:"100"`
}

type CatalogConfig struct {
	LowStockThreshold int `envconfig:"GHAZALI_CATALOG_LOW_STOCK_THRESHOLD" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GHAZALI_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"GHAZALI_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GHAZALI_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"GHAZALI_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"GHAZALI_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	StockTopic               string `envconfig:"GHAZALI_PUBSUB_STOCK_TOPIC" default:"gf-stock-events"`
	StockSubscription        string `envconfig:"GHAZALI_PUBSUB_STOCK_SUBSCRIPTION" required:"true"`
	NotificationSubscription string `envconfig:"GHAZALI_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type SMTPConfig struct {
	Host        string `envconfig:"GHAZALI_SMTP_HOST"`
	Port        int    `envconfig:"GHAZALI_SMTP_PORT" default:"587"`
	Username    string `envconfig:"GHAZALI_SMTP_USERNAME"`
	Password    string `envconfig:"GHAZALI_SMTP_PASSWORD"`
	DefaultFrom string `envconfig:"GHAZALI_SMTP_FROM_EMAIL"`
	AdminEmail  string `envconfig:"GHAZALI_SMTP_ADMIN_EMAIL"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GHAZALI_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GHAZALI_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GHAZALI_OUTBOX_MAX_ATTEMPTS" default:"10"`
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

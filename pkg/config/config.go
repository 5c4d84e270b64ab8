package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Voucher      VoucherConfig
	Settlement   SettlementConfig
	PagSeguro    PagSeguroConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RESGATE_APP_ENV" required:"true"`
	Port         string `envconfig:"RESGATE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RESGATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RESGATE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RESGATE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RESGATE_DB_DSN"`
	Driver string `envconfig:"RESGATE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RESGATE_DB_HOST"`
	LegacyPort     int    `envconfig:"RESGATE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RESGATE_DB_USER"`
	LegacyPassword string `envconfig:"RESGATE_DB_PASSWORD"`
	LegacyName     string `envconfig:"RESGATE_DB_NAME"`
	LegacySSLMode  string `envconfig:"RESGATE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RESGATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RESGATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RESGATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RESGATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RESGATE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RESGATE_REDIS_ADDR"`
	Password     string        `envconfig:"RESGATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"RESGATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RESGATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RESGATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RESGATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RESGATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RESGATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies bearer tokens minted by the external identity service.
type JWTConfig struct {
	Secret string `envconfig:"RESGATE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"RESGATE_JWT_ISSUER" required:"true"`
}

type CheckoutConfig struct {
	IntentTTL       time.Duration `envconfig:"RESGATE_CHECKOUT_INTENT_TTL" default:"10m"`
	IdempotencyTTL  time.Duration `envconfig:"RESGATE_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
	MaxItemsPerCart int           `envconfig:"RESGATE_CHECKOUT_MAX_ITEMS" default:"20"`
}

type VoucherConfig struct {
	PrefixLength int `envconfig:"RESGATE_VOUCHER_PREFIX_LENGTH" default:"4"`
}

type SettlementConfig struct {
	CommissionRate string `envconfig:"RESGATE_SETTLEMENT_COMMISSION_RATE" default:"0.15"`
}

type PagSeguroConfig struct {
	APIKey        string `envconfig:"RESGATE_PAGSEGURO_API_KEY"`
	WebhookSecret string `envconfig:"RESGATE_PAGSEGURO_WEBHOOK_SECRET"`
	Env           string `envconfig:"RESGATE_PAGSEGURO_ENV" default:"sandbox"`
}

// Environment returns the normalized PagSeguro environment (sandbox/production).
func (p PagSeguroConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RESGATE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"RESGATE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RESGATE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"RESGATE_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription    string `envconfig:"RESGATE_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	PaymentsTopic         string `envconfig:"RESGATE_PUBSUB_PAYMENTS_TOPIC" required:"true"`
	PaymentsSubscription  string `envconfig:"RESGATE_PUBSUB_PAYMENTS_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription string `envconfig:"RESGATE_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"RESGATE_BIGQUERY_DATASET" default:"resgatesabor"`
	OrderEventsTable string `envconfig:"RESGATE_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RESGATE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RESGATE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RESGATE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RESGATE_AUTO_MIGRATE" default:"false"`
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

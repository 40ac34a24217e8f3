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
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Settlement   SettlementConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Maintenance  MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"TILLBOOK_APP_ENV" required:"true"`
	Port         string   `envconfig:"TILLBOOK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"TILLBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"TILLBOOK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"TILLBOOK_CORS_ORIGINS"`
	// MetricsAddr exposes /metrics from the background workers, e.g. ":9102".
	// Empty disables it; the API serves /metrics on its own router.
	MetricsAddr string `envconfig:"TILLBOOK_METRICS_ADDR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TILLBOOK_DB_DSN"`
	Driver string `envconfig:"TILLBOOK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TILLBOOK_DB_HOST"`
	LegacyPort     int    `envconfig:"TILLBOOK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TILLBOOK_DB_USER"`
	LegacyPassword string `envconfig:"TILLBOOK_DB_PASSWORD"`
	LegacyName     string `envconfig:"TILLBOOK_DB_NAME"`
	LegacySSLMode  string `envconfig:"TILLBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TILLBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TILLBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TILLBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TILLBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// Redis is optional: without a URL the API falls back to in-process locks
// and skips idempotency replay.
type RedisConfig struct {
	URL          string        `envconfig:"TILLBOOK_REDIS_URL"`
	Address      string        `envconfig:"TILLBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"TILLBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"TILLBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TILLBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TILLBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TILLBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TILLBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TILLBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TILLBOOK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TILLBOOK_AUTO_MIGRATE" default:"false"`
}

type SettlementConfig struct {
	CurrencyScale     int32         `envconfig:"TILLBOOK_CURRENCY_SCALE" default:"2"`
	DueSoonDays       int           `envconfig:"TILLBOOK_CREDIT_DUE_SOON_DAYS" default:"3"`
	DefaultCreditDays int           `envconfig:"TILLBOOK_CREDIT_DEFAULT_DAYS" default:"30"`
	Timezone          string        `envconfig:"TILLBOOK_TIMEZONE" default:"UTC"`
	LockTTL           time.Duration `envconfig:"TILLBOOK_LOCK_TTL" default:"10s"`
	LockWait          time.Duration `envconfig:"TILLBOOK_LOCK_WAIT" default:"3s"`
}

// Location resolves the business timezone used for receipt numbers and aging.
func (s SettlementConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s SettlementConfig) validate() error {
	if s.CurrencyScale < 0 || s.CurrencyScale > 4 {
		return fmt.Errorf("%s must be between 0 and 4", EnvCurrencyScale)
	}
	if s.DueSoonDays < 0 {
		return fmt.Errorf("%s must not be negative", EnvDueSoonDays)
	}
	if s.DefaultCreditDays < 0 {
		return fmt.Errorf("%s must not be negative", EnvDefaultCreditDays)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("%s: %w", EnvTimezone, err)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TILLBOOK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TILLBOOK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TILLBOOK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementTopic string `envconfig:"TILLBOOK_PUBSUB_SETTLEMENT_TOPIC" default:"tillbook-settlement-events"`
	AutoCreateTopic bool   `envconfig:"TILLBOOK_PUBSUB_AUTO_CREATE_TOPIC" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TILLBOOK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TILLBOOK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TILLBOOK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MaintenanceConfig struct {
	Interval            time.Duration `envconfig:"TILLBOOK_MAINTENANCE_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"TILLBOOK_MAINTENANCE_LOCK_TTL" default:"55m"`
	OutboxRetentionDays int           `envconfig:"TILLBOOK_OUTBOX_RETENTION_DAYS" default:"30"`
	ReconcileBatchSize  int           `envconfig:"TILLBOOK_RECONCILE_BATCH_SIZE" default:"200"`
}

func (db *DBConfig) ensureDSN() error {
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	switch db.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvDBDriver, DriverPostgres, DriverMySQL, DriverSQLite)
	}

	if db.DSN != "" {
		return nil
	}
	if db.Driver == DriverSQLite {
		db.DSN = "file:tillbook.db?cache=shared&_foreign_keys=on"
		return nil
	}
	if db.Driver == DriverMySQL {
		return fmt.Errorf("%s is required for the %s driver", EnvDBDSN, DriverMySQL)
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

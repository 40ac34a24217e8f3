package config

const EnvPrefix = "TILLBOOK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "TILLBOOK_APP_ENV"
	EnvPort     = "TILLBOOK_APP_PORT"
	EnvLogLevel = "TILLBOOK_LOG_LEVEL"

	EnvDBDSN    = "TILLBOOK_DB_DSN"
	EnvDBDriver = "TILLBOOK_DB_DRIVER"
	EnvDBHost   = "TILLBOOK_DB_HOST"
	EnvDBUser   = "TILLBOOK_DB_USER"
	EnvDBName   = "TILLBOOK_DB_NAME"

	EnvRedisURL  = "TILLBOOK_REDIS_URL"
	EnvUseSQLite = "TILLBOOK_USE_SQLITE"

	EnvCurrencyScale     = "TILLBOOK_CURRENCY_SCALE"
	EnvDueSoonDays       = "TILLBOOK_CREDIT_DUE_SOON_DAYS"
	EnvDefaultCreditDays = "TILLBOOK_CREDIT_DEFAULT_DAYS"
	EnvTimezone          = "TILLBOOK_TIMEZONE"

	EnvGCPProjectID          = "TILLBOOK_GCP_PROJECT_ID"
	EnvPubSubSettlementTopic = "TILLBOOK_PUBSUB_SETTLEMENT_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

const EnvPrefix = "DOMICILIARIOS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv = "DOMICILIARIOS_APP_ENV"
	EnvPort   = "DOMICILIARIOS_APP_PORT"

	EnvDBDSN    = "DOMICILIARIOS_DB_DSN"
	EnvDBDriver = "DOMICILIARIOS_DB_DRIVER"
	EnvDBHost   = "DOMICILIARIOS_DB_HOST"
	EnvDBUser   = "DOMICILIARIOS_DB_USER"
	EnvDBName   = "DOMICILIARIOS_DB_NAME"

	EnvRedisURL = "DOMICILIARIOS_REDIS_URL"

	EnvJWTSecret  = "DOMICILIARIOS_JWT_SECRET"
	EnvJWTIssuer  = "DOMICILIARIOS_JWT_ISSUER"
	EnvJWTExpMins = "DOMICILIARIOS_JWT_EXPIRATION_MINUTES"

	EnvDataAPIBaseURL           = "DOMICILIARIOS_DATA_API_BASE_URL"
	EnvDataAPISettleConcurrency = "DOMICILIARIOS_DATA_API_SETTLE_CONCURRENCY"

	EnvNotifyPreviewURL      = "DOMICILIARIOS_NOTIFY_PREVIEW_WEBHOOK_URL"
	EnvNotifyConfirmationURL = "DOMICILIARIOS_NOTIFY_CONFIRMATION_WEBHOOK_URL"

	EnvCORSAllowedOrigins = "DOMICILIARIOS_CORS_ALLOWED_ORIGINS"
	EnvUseSQLite          = "DOMICILIARIOS_USE_SQLITE"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

const (
	EnvPrefix = "POS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"

	StorageLocal = "local"
	StorageGCS   = "gcs"

	defaultSQLiteDSN = "file:pos_dev.db?_foreign_keys=on&_busy_timeout=5000"
)

const (
	EnvAppEnv          = "POS_APP_ENV"
	EnvPort            = "POS_PORT"
	EnvDBDriver        = "POS_DB_DRIVER"
	EnvDBDSN           = "POS_DB_DSN"
	EnvRedisURL        = "POS_REDIS_URL"
	EnvJWTSecret       = "POS_JWT_SECRET"
	EnvJWTIssuer       = "POS_JWT_ISSUER"
	EnvSaleMaxRetries  = "POS_SALE_MAX_RETRIES"
	EnvStorageDriver   = "POS_STORAGE_DRIVER"
	EnvStorageLocalDir = "POS_STORAGE_LOCAL_DIR"
	EnvGCSBucket       = "POS_GCS_BUCKET"
	EnvCORSOrigins     = "POS_CORS_ALLOWED_ORIGINS"
)

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Sales         SalesConfig
	Storage       StorageConfig
	Tracing       TracingConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"POS_APP_ENV" default:"dev"`
	Port         string `envconfig:"POS_PORT" default:"8080"`
	ServiceName  string `envconfig:"POS_SERVICE_NAME" default:"pos-inventory"`
	LogLevel     string `envconfig:"POS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"POS_DB_DSN"`
	Driver string `envconfig:"POS_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"POS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// NormalizedDriver lowercases the driver name and folds aliases.
func (db DBConfig) NormalizedDriver() string {
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	switch driver {
	case "", "pg", "postgresql":
		return DriverPostgres
	case "sqlite3":
		return DriverSQLite
	default:
		return driver
	}
}

type RedisConfig struct {
	URL            string        `envconfig:"POS_REDIS_URL"`
	Address        string        `envconfig:"POS_REDIS_ADDR"`
	Password       string        `envconfig:"POS_REDIS_PASSWORD"`
	DB             int           `envconfig:"POS_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"POS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"POS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"POS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"POS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"POS_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"POS_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"POS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"POS_JWT_ISSUER" default:"pos-inventory"`
	ExpirationMinutes      int    `envconfig:"POS_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"POS_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"POS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"POS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"POS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"POS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"POS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"POS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"POS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"POS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

// SalesConfig bounds the sale processor's atomic scope.
type SalesConfig struct {
	MaxRetries     uint64        `envconfig:"POS_SALE_MAX_RETRIES" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"POS_SALE_RETRY_BASE_DELAY" default:"25ms"`
	Timeout        time.Duration `envconfig:"POS_SALE_TIMEOUT" default:"5s"`
}

type StorageConfig struct {
	Driver          string `envconfig:"POS_STORAGE_DRIVER" default:"local"`
	LocalDir        string `envconfig:"POS_STORAGE_LOCAL_DIR" default:"./storage/images"`
	PublicBaseURL   string `envconfig:"POS_STORAGE_PUBLIC_BASE_URL" default:"http://localhost:8080/storage/images"`
	GCSBucket       string `envconfig:"POS_GCS_BUCKET"`
	GCSProjectID    string `envconfig:"POS_GCS_PROJECT_ID"`
	CredentialsJSON string `envconfig:"POS_GCS_CREDENTIALS_JSON"`
	MaxUploadMB     int    `envconfig:"POS_UPLOAD_MAX_MB" default:"2"`
}

// MaxUploadBytes returns the configured upload cap in bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	if s.MaxUploadMB <= 0 {
		return 2 << 20
	}
	return int64(s.MaxUploadMB) << 20
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(s.Driver) {
	case StorageLocal:
		if s.LocalDir == "" {
			return fmt.Errorf("%s is required for local storage", EnvStorageLocalDir)
		}
	case StorageGCS:
		if s.GCSBucket == "" {
			return fmt.Errorf("%s is required for gcs storage", EnvGCSBucket)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", s.Driver)
	}
	return nil
}

type TracingConfig struct {
	Enabled    bool   `envconfig:"POS_TRACING_ENABLED" default:"false"`
	Endpoint   string `envconfig:"POS_OTLP_ENDPOINT" default:"localhost:4318"`
	TracesPath string `envconfig:"POS_OTLP_TRACES_PATH" default:"/v1/traces"`
	Insecure   bool   `envconfig:"POS_OTLP_INSECURE" default:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate        bool     `envconfig:"POS_AUTO_MIGRATE" default:"false"`
	CORSAllowedOrigins []string `envconfig:"POS_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	switch db.NormalizedDriver() {
	case DriverSQLite:
		db.DSN = defaultSQLiteDSN
		return nil
	case DriverPostgres, DriverMySQL:
		return fmt.Errorf("%s is required for driver %s", EnvDBDSN, db.NormalizedDriver())
	default:
		return fmt.Errorf("unsupported database driver %q", db.Driver)
	}
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	DataAPI       DataAPIConfig
	Notifications NotificationsConfig
	Settlement    SettlementConfig
	CORS          CORSConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.DataAPI.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Settlement.Location(); err != nil {
		return nil, fmt.Errorf("invalid settlement time zone %q: %w", cfg.Settlement.TimeZone, err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DOMICILIARIOS_APP_ENV" required:"true"`
	Port         string `envconfig:"DOMICILIARIOS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DOMICILIARIOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DOMICILIARIOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DOMICILIARIOS_DB_DSN"`
	Driver string `envconfig:"DOMICILIARIOS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"DOMICILIARIOS_DB_HOST"`
	Port     int    `envconfig:"DOMICILIARIOS_DB_PORT" default:"5432"`
	User     string `envconfig:"DOMICILIARIOS_DB_USER"`
	Password string `envconfig:"DOMICILIARIOS_DB_PASSWORD"`
	Name     string `envconfig:"DOMICILIARIOS_DB_NAME"`
	SSLMode  string `envconfig:"DOMICILIARIOS_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"DOMICILIARIOS_SQLITE_PATH" default:"domiciliarios.db"`

	MaxOpenConns    int           `envconfig:"DOMICILIARIOS_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DOMICILIARIOS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DOMICILIARIOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DOMICILIARIOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the ledger runs on the embedded driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"DOMICILIARIOS_REDIS_URL"`
	Address      string        `envconfig:"DOMICILIARIOS_REDIS_ADDR"`
	Password     string        `envconfig:"DOMICILIARIOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"DOMICILIARIOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DOMICILIARIOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DOMICILIARIOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DOMICILIARIOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DOMICILIARIOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DOMICILIARIOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DOMICILIARIOS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DOMICILIARIOS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DOMICILIARIOS_JWT_EXPIRATION_MINUTES" default:"480"`
}

// AccessTTL returns the lifetime of both the access token and the server session.
func (j JWTConfig) AccessTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// DataAPIConfig points at the headless CMS that owns couriers, merchants and services.
type DataAPIConfig struct {
	BaseURL           string        `envconfig:"DOMICILIARIOS_DATA_API_BASE_URL" required:"true"`
	Timeout           time.Duration `envconfig:"DOMICILIARIOS_DATA_API_TIMEOUT" default:"15s"`
	RateLimitRPS      float64       `envconfig:"DOMICILIARIOS_DATA_API_RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst    int           `envconfig:"DOMICILIARIOS_DATA_API_RATE_LIMIT_BURST" default:"20"`
	SettleConcurrency int           `envconfig:"DOMICILIARIOS_DATA_API_SETTLE_CONCURRENCY" default:"4"`
	ServicesResource  string        `envconfig:"DOMICILIARIOS_DATA_API_SERVICES_RESOURCE" default:"servicios"`
}

func (d DataAPIConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(d.BaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute url", EnvDataAPIBaseURL)
	}
	if d.SettleConcurrency < 1 {
		return fmt.Errorf("%s must be at least 1", EnvDataAPISettleConcurrency)
	}
	return nil
}

type NotificationsConfig struct {
	PreviewWebhookURL      string        `envconfig:"DOMICILIARIOS_NOTIFY_PREVIEW_WEBHOOK_URL" required:"true"`
	ConfirmationWebhookURL string        `envconfig:"DOMICILIARIOS_NOTIFY_CONFIRMATION_WEBHOOK_URL" required:"true"`
	Timeout                time.Duration `envconfig:"DOMICILIARIOS_NOTIFY_TIMEOUT" default:"10s"`
}

type SettlementConfig struct {
	SessionTTL      time.Duration `envconfig:"DOMICILIARIOS_SETTLEMENT_SESSION_TTL" default:"2h"`
	DefaultPageSize int           `envconfig:"DOMICILIARIOS_SETTLEMENT_DEFAULT_PAGE_SIZE" default:"10"`
	TimeZone        string        `envconfig:"DOMICILIARIOS_SETTLEMENT_TIME_ZONE" default:"America/Bogota"`
}

// Location resolves TimeZone, falling back to UTC when it is empty.
func (c SettlementConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(c.TimeZone) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TimeZone)
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"DOMICILIARIOS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type AuthRateLimitConfig struct {
	LoginWindow          time.Duration `envconfig:"DOMICILIARIOS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIdentifierLimit int           `envconfig:"DOMICILIARIOS_AUTH_RATE_LIMIT_LOGIN_IDENTIFIER_LIMIT" default:"5"`
	LoginIPLimit         int           `envconfig:"DOMICILIARIOS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DOMICILIARIOS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DOMICILIARIOS_AUTO_MIGRATE" default:"false"`
	// InMemorySessions keeps workflow and auth sessions in process memory; single instance only.
	InMemorySessions bool `envconfig:"DOMICILIARIOS_IN_MEMORY_SESSIONS" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
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

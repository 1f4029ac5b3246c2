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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Checkout      CheckoutConfig
	Stock         StockConfig
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
	Env          string `envconfig:"PHARMOS_APP_ENV" required:"true"`
	Port         string `envconfig:"PHARMOS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PHARMOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PHARMOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PHARMOS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PHARMOS_DB_DSN"`
	Driver string `envconfig:"PHARMOS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PHARMOS_DB_HOST"`
	LegacyPort     int    `envconfig:"PHARMOS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PHARMOS_DB_USER"`
	LegacyPassword string `envconfig:"PHARMOS_DB_PASSWORD"`
	LegacyName     string `envconfig:"PHARMOS_DB_NAME"`
	LegacySSLMode  string `envconfig:"PHARMOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PHARMOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PHARMOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PHARMOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PHARMOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PHARMOS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PHARMOS_REDIS_ADDR"`
	Password     string        `envconfig:"PHARMOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHARMOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHARMOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHARMOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHARMOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHARMOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHARMOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PHARMOS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PHARMOS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PHARMOS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"PHARMOS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PHARMOS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PHARMOS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PHARMOS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PHARMOS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PHARMOS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"PHARMOS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"PHARMOS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"PHARMOS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PHARMOS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PHARMOS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PHARMOS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PHARMOS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PHARMOS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ChangesTopic        string `envconfig:"PHARMOS_PUBSUB_CHANGES_TOPIC" default:"pos-document-changes"`
	ChangesSubscription string `envconfig:"PHARMOS_PUBSUB_CHANGES_SUBSCRIPTION" required:"true"`
	EventsTopic         string `envconfig:"PHARMOS_PUBSUB_EVENTS_TOPIC" default:"pos-domain-events"`
	EventsSubscription  string `envconfig:"PHARMOS_PUBSUB_EVENTS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PHARMOS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PHARMOS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PHARMOS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CheckoutConfig struct {
	InFlightLockTTL time.Duration `envconfig:"PHARMOS_CHECKOUT_LOCK_TTL" default:"30s"`
	HeldCartTTL     time.Duration `envconfig:"PHARMOS_CHECKOUT_HELD_CART_TTL" default:"12h"`
}

type StockConfig struct {
	ExpiryWarningDays int `envconfig:"PHARMOS_STOCK_EXPIRY_WARNING_DAYS" default:"30"`
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

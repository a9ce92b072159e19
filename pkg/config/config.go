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
	JWT          JWTConfig
	Payments     PaymentsConfig
	Webhook      WebhookConfig
	Reconciler   ReconcilerConfig
	SMTP         SMTPConfig
	Security     SecurityConfig
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
	Env          string `envconfig:"ACQUIREMOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"ACQUIREMOCK_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"ACQUIREMOCK_BASE_URL" default:"http://localhost:8000"`
	LogLevel     string `envconfig:"ACQUIREMOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ACQUIREMOCK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ACQUIREMOCK_DB_DSN"`
	Driver string `envconfig:"ACQUIREMOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ACQUIREMOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"ACQUIREMOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ACQUIREMOCK_DB_USER"`
	LegacyPassword string `envconfig:"ACQUIREMOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"ACQUIREMOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"ACQUIREMOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ACQUIREMOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ACQUIREMOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ACQUIREMOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ACQUIREMOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ACQUIREMOCK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ACQUIREMOCK_REDIS_ADDR"`
	Password     string        `envconfig:"ACQUIREMOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ACQUIREMOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ACQUIREMOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ACQUIREMOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ACQUIREMOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ACQUIREMOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ACQUIREMOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig signs the trusted-device cookie issued after a successful OTP.
type JWTConfig struct {
	Secret        string `envconfig:"ACQUIREMOCK_JWT_SECRET" required:"true"`
	Issuer        string `envconfig:"ACQUIREMOCK_JWT_ISSUER" default:"acquiremock"`
	DeviceTTLDays int    `envconfig:"ACQUIREMOCK_DEVICE_TTL_DAYS" default:"30"`
}

// DeviceTTL returns the trusted-device token lifetime.
func (j JWTConfig) DeviceTTL() time.Duration {
	if j.DeviceTTLDays <= 0 {
		return 0
	}
	return time.Duration(j.DeviceTTLDays) * 24 * time.Hour
}

type PaymentsConfig struct {
	InvoiceTTL   time.Duration `envconfig:"ACQUIREMOCK_INVOICE_TTL" default:"15m"`
	MockValidPAN string        `envconfig:"ACQUIREMOCK_MOCK_VALID_PAN" default:"4444444444444444"`
	OTPLength    int           `envconfig:"ACQUIREMOCK_OTP_LENGTH" default:"4"`
	CSRFTTL      time.Duration `envconfig:"ACQUIREMOCK_CSRF_TTL" default:"30m"`
	MaxReference int           `envconfig:"ACQUIREMOCK_MAX_REFERENCE_LEN" default:"64"`
}

type WebhookConfig struct {
	Secret      string        `envconfig:"ACQUIREMOCK_WEBHOOK_SECRET" default:"default_secret_key_change_in_production"`
	Timeout     time.Duration `envconfig:"ACQUIREMOCK_WEBHOOK_TIMEOUT" default:"10s"`
	MaxAttempts int           `envconfig:"ACQUIREMOCK_WEBHOOK_MAX_ATTEMPTS" default:"5"`
}

type ReconcilerConfig struct {
	ExpiryInterval time.Duration `envconfig:"ACQUIREMOCK_EXPIRY_SWEEP_INTERVAL" default:"60s"`
	RetryInterval  time.Duration `envconfig:"ACQUIREMOCK_WEBHOOK_RETRY_INTERVAL" default:"300s"`
	BackoffBase    float64       `envconfig:"ACQUIREMOCK_WEBHOOK_BACKOFF_BASE" default:"2"`
	LockTTL        time.Duration `envconfig:"ACQUIREMOCK_RECONCILER_LOCK_TTL" default:"10m"`
}

// SMTPConfig mirrors the original gateway: when any field is missing the
// mailer degrades to logging instead of sending.
type SMTPConfig struct {
	Host     string `envconfig:"ACQUIREMOCK_SMTP_HOST"`
	Port     int    `envconfig:"ACQUIREMOCK_SMTP_PORT" default:"587"`
	User     string `envconfig:"ACQUIREMOCK_SMTP_USER"`
	Password string `envconfig:"ACQUIREMOCK_SMTP_PASS"`
}

// Enabled reports whether outbound email is configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.Port > 0 && s.User != "" && s.Password != ""
}

type SecurityConfig struct {
	ArgonMemoryKB    int `envconfig:"ACQUIREMOCK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ACQUIREMOCK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ACQUIREMOCK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ACQUIREMOCK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ACQUIREMOCK_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ACQUIREMOCK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ACQUIREMOCK_AUTO_MIGRATE" default:"false"`
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

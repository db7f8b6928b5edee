package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Payment  PaymentConfig
	Storage  StorageConfig
	Ops      OpsConfig
	Realtime RealtimeConfig
	Sweep    SweepConfig
}

type AppConfig struct {
	AppName     string `env:"APP_NAME,notEmpty"`
	Environment string `env:"APP_ENV,notEmpty"`
	HTTPPort    string `env:"HTTP_PORT,notEmpty"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// InMemory swaps Postgres for the process-local store. Local runs only.
	InMemory bool `env:"APP_IN_MEMORY" envDefault:"false"`
}

type DatabaseConfig struct {
	DBHost     string `env:"DB_HOST"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBName     string `env:"DB_NAME"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBSSLMode  string `env:"DB_SSL_MODE" envDefault:"disable"`

	ConnectTimeout        time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
	PoolMaxConns          int32         `env:"DB_POOL_MAX_CONNS" envDefault:"10"`
	PoolMinConns          int32         `env:"DB_POOL_MIN_CONNS" envDefault:"1"`
	PoolMaxConnLifetime   time.Duration `env:"DB_POOL_MAX_CONN_LIFETIME" envDefault:"1h"`
	PoolMaxConnIdleTime   time.Duration `env:"DB_POOL_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	PoolHealthCheckPeriod time.Duration `env:"DB_POOL_HEALTH_CHECK_PERIOD" envDefault:"30s"`

	MigrationsDir string `env:"DB_MIGRATIONS_DIR" envDefault:"migrations"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	PublicJobsTTL time.Duration `env:"REDIS_PUBLIC_JOBS_TTL" envDefault:"60s"`
}

type JWTConfig struct {
	Secret   string        `env:"JWT_SECRET,notEmpty"`
	Issuer   string        `env:"JWT_ISSUER" envDefault:"hirelane"`
	TokenTTL time.Duration `env:"JWT_TOKEN_TTL" envDefault:"15m"`
}

type PaymentConfig struct {
	GatewayBaseURL string        `env:"PAYMENT_GATEWAY_URL"`
	GatewayAPIKey  string        `env:"PAYMENT_GATEWAY_API_KEY"`
	WebhookSecret  string        `env:"PAYMENT_WEBHOOK_SECRET,notEmpty"`
	SignatureSkew  time.Duration `env:"PAYMENT_SIGNATURE_TOLERANCE" envDefault:"5m"`
	CallTimeout    time.Duration `env:"PAYMENT_CALL_TIMEOUT" envDefault:"10s"`
	ListingPrice   int64         `env:"PAYMENT_LISTING_PRICE" envDefault:"4900"`
	Currency       string        `env:"PAYMENT_CURRENCY" envDefault:"usd"`
	SuccessURL     string        `env:"PAYMENT_SUCCESS_URL"`
	CancelURL      string        `env:"PAYMENT_CANCEL_URL"`
}

type StorageConfig struct {
	BaseURL     string        `env:"STORAGE_BASE_URL"`
	Token       string        `env:"STORAGE_TOKEN"`
	CallTimeout time.Duration `env:"STORAGE_CALL_TIMEOUT" envDefault:"15s"`
}

type OpsConfig struct {
	Addr string `env:"OPS_ADDR" envDefault:":9090"`
}

type RealtimeConfig struct {
	Addr           string   `env:"WS_ADDR" envDefault:":8081"`
	AllowedOrigins []string `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
}

type SweepConfig struct {
	Interval       time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	PaymentGrace   time.Duration `env:"SWEEP_PAYMENT_GRACE" envDefault:"15m"`
	BatchSize      int           `env:"SWEEP_BATCH_SIZE" envDefault:"100"`
	Workers        int           `env:"SWEEP_WORKERS" envDefault:"4"`
	RatePerSecond  int           `env:"SWEEP_RATE_PER_SECOND" envDefault:"5"`
	LockTTL        time.Duration `env:"SWEEP_LOCK_TTL" envDefault:"50s"`
	DisableInServe bool          `env:"SWEEP_DISABLED" envDefault:"false"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if !cfg.App.InMemory {
		var missing []string
		if strings.TrimSpace(cfg.Database.DBHost) == "" {
			missing = append(missing, "DB_HOST")
		}
		if strings.TrimSpace(cfg.Database.DBName) == "" {
			missing = append(missing, "DB_NAME")
		}
		if strings.TrimSpace(cfg.Database.DBUser) == "" {
			missing = append(missing, "DB_USER")
		}
		if len(missing) > 0 {
			return Config{}, fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
		}
	}

	return cfg, nil
}

// DSN renders the libpq keyword/value connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		strings.TrimSpace(c.DBHost),
		strings.TrimSpace(c.DBPort),
		strings.TrimSpace(c.DBUser),
		c.DBPassword,
		strings.TrimSpace(c.DBName),
		strings.TrimSpace(c.DBSSLMode),
	)
}

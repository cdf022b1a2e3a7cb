package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env             string
	HTTPAddr        string
	ServiceName     string
	LogLevel        string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	Products ProductsConfig
	Mail     MailConfig
	Admin    AdminConfig

	PromoSweepInterval time.Duration
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
}

type KafkaConfig struct {
	Brokers           []string
	TasksTopic        string
	WorkerGroup       string
	WorkerConcurrency int
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type ProductsConfig struct {
	CacheTTL  time.Duration
	RateLimit RateLimit
}

// RateLimit = N request per Window, e.g. "100/m".
type RateLimit struct {
	Requests int
	Window   time.Duration
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type AdminConfig struct {
	Email    string
	Password string
}

// Load membaca konfigurasi dari environment, dengan default untuk docker-compose.
func Load() (*Config, error) {
	var errs []error
	dur := func(k, def string) time.Duration {
		d, err := time.ParseDuration(getenv(k, def))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		}
		return d
	}
	num := func(k, def string) int {
		n, err := strconv.Atoi(getenv(k, def))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		}
		return n
	}

	rl, err := ParseRateLimit(getenv("PRODUCTS_RATE_LIMIT", "100/m"))
	if err != nil {
		errs = append(errs, fmt.Errorf("PRODUCTS_RATE_LIMIT: %w", err))
	}

	cfg := &Config{
		Env:             getenv("APP_ENV", "production"),
		HTTPAddr:        getenv("HTTP_ADDR", ":8000"),
		ServiceName:     getenv("SERVICE_NAME", "order-api"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		ShutdownTimeout: dur("SHUTDOWN_TIMEOUT", "10s"),
		CORSOrigins:     splitCSV(getenv("CORS_ALLOWED_ORIGINS", "*")),
		Postgres: PostgresConfig{
			DSN: getenv("POSTGRES_DSN", postgresDSN(
				getenv("DB_USER", "order_user"),
				getenv("DB_PASSWORD", "order_password"),
				getenv("DB_HOST", "db"),
				getenv("DB_PORT", "5432"),
				getenv("DB_NAME", "order_db"),
			)),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "redis:6379"),
			Password: getenv("REDIS_PASSWORD", "redis"),
		},
		Kafka: KafkaConfig{
			Brokers:           splitCSV(getenv("KAFKA_BROKERS", "kafka:9092")),
			TasksTopic:        getenv("TASKS_TOPIC", "order_processing.tasks"),
			WorkerGroup:       getenv("WORKER_GROUP", "order-worker"),
			WorkerConcurrency: num("WORKER_CONCURRENCY", "4"),
		},
		JWT: JWTConfig{
			Secret:     os.Getenv("JWT_SECRET"),
			AccessTTL:  dur("JWT_ACCESS_TTL", "5m"),
			RefreshTTL: dur("JWT_REFRESH_TTL", "24h"),
		},
		Products: ProductsConfig{
			CacheTTL:  dur("PRODUCTS_CACHE_TTL", "15m"),
			RateLimit: rl,
		},
		Mail: MailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     num("SMTP_PORT", "587"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("DEFAULT_FROM_EMAIL", "no-reply@orderapp.com"),
		},
		Admin: AdminConfig{
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
		PromoSweepInterval: dur("PROMO_SWEEP_INTERVAL", "1h"),
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if cfg.JWT.Secret == "" && cfg.Env == "dev" {
		cfg.JWT.Secret = "dev-secret-change-me"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is empty")
	}
	if c.Kafka.WorkerConcurrency <= 0 {
		return errors.New("WORKER_CONCURRENCY must be positive")
	}
	if c.PromoSweepInterval <= 0 {
		return errors.New("PROMO_SWEEP_INTERVAL must be positive")
	}
	return nil
}

// ParseRateLimit parses "N/s", "N/m", "N/h" or "N/d".
func ParseRateLimit(s string) (RateLimit, error) {
	n, unit, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return RateLimit{}, fmt.Errorf("invalid rate %q", s)
	}
	reqs, err := strconv.Atoi(n)
	if err != nil || reqs <= 0 {
		return RateLimit{}, fmt.Errorf("invalid rate %q", s)
	}
	var w time.Duration
	switch unit {
	case "s", "sec", "second":
		w = time.Second
	case "m", "min", "minute":
		w = time.Minute
	case "h", "hour":
		w = time.Hour
	case "d", "day":
		w = 24 * time.Hour
	default:
		return RateLimit{}, fmt.Errorf("invalid rate unit %q", unit)
	}
	return RateLimit{Requests: reqs, Window: w}, nil
}

func postgresDSN(user, pass, host, port, db string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     host + ":" + port,
		Path:     db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	AppEnv  string
	AppPort string

	StorageDriver string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string

	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string
	OTLPEndpoint string

	CatalogURL  string
	IdentityURL string
	JWTSecret   string
	// InternalSecret authenticates sibling services via X-Service-Auth.
	InternalSecret string

	CancellationWindow     time.Duration
	CatalogTimeout         time.Duration
	IdentityTimeout        time.Duration
	WalletTimeout          time.Duration
	CompensationMaxElapsed time.Duration

	ReconcileInterval time.Duration
	ReconcileGrace    time.Duration
	ReconcileLookback time.Duration

	WalletSignupBonus decimal.Decimal
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		AppPort:       getEnv("APP_PORT", "8081"),
		StorageDriver: getEnv("STORAGE_DRIVER", StorageDriverPostgres),
		DBHost:        os.Getenv("DB_HOST"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		DBPort:        getEnv("DB_PORT", "5432"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "order.events"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CatalogURL:    getEnv("CATALOG_URL", "http://localhost:8082"),
		IdentityURL:   getEnv("IDENTITY_URL", "http://localhost:8080"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		InternalSecret: os.Getenv("INTERNAL_SECRET_KEY"),
	}

	var errs []error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"CANCELLATION_WINDOW", 30 * time.Second, &cfg.CancellationWindow},
		{"CATALOG_TIMEOUT", 2 * time.Second, &cfg.CatalogTimeout},
		{"IDENTITY_TIMEOUT", 2 * time.Second, &cfg.IdentityTimeout},
		{"WALLET_TIMEOUT", 3 * time.Second, &cfg.WalletTimeout},
		{"COMPENSATION_MAX_ELAPSED", 30 * time.Second, &cfg.CompensationMaxElapsed},
		{"RECONCILE_INTERVAL", time.Minute, &cfg.ReconcileInterval},
		{"RECONCILE_GRACE", 2 * time.Minute, &cfg.ReconcileGrace},
		{"RECONCILE_LOOKBACK", 24 * time.Hour, &cfg.ReconcileLookback},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*d.dst = v
	}

	bonus, err := decimal.NewFromString(getEnv("WALLET_SIGNUP_BONUS", "1000"))
	if err != nil {
		errs = append(errs, fmt.Errorf("WALLET_SIGNUP_BONUS: %w", err))
	}
	cfg.WalletSignupBonus = bonus

	if cfg.StorageDriver != StorageDriverPostgres && cfg.StorageDriver != StorageDriverMemory {
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", cfg.StorageDriver))
	}
	if cfg.StorageDriver == StorageDriverPostgres && cfg.DBHost == "" {
		errs = append(errs, errors.New("DB_HOST is required for the postgres storage driver"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.CancellationWindow <= 0 {
		errs = append(errs, errors.New("CANCELLATION_WINDOW must be positive"))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment variables not loaded properly: %w", errors.Join(errs...))
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

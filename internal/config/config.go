package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration, injected through environment
// variables so deployments never patch code for tuning.
type Config struct {
	HTTPAddr string

	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	MigrationsDirPath string

	RedisAddr string
	RedisDB   int

	KafkaBrokers []string
	KafkaTopic   string

	// Collaborator endpoints.
	CatalogURL          string
	PromotionsURL       string
	PaymentMethodsURL   string
	DeliveryZonesURL    string
	CollaboratorTimeout time.Duration

	Currency string

	// Checkout tunables. The spec behind these deliberately leaves retry and
	// sweep cadence open, so they are configuration rather than constants.
	LockTimeout        time.Duration
	LockPollInterval   time.Duration
	ReservationTTL     time.Duration
	SweepInterval      time.Duration
	OutboxPollInterval time.Duration
	OutboxRecoveryTick time.Duration

	PriceCacheTTL time.Duration
}

// Load reads and validates configuration, falling back to defaults where an
// environment variable is unset.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "checkout"),
		MigrationsDirPath:  getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:       splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "order-created"),
		CatalogURL:         getEnv("CATALOG_URL", "http://localhost:8081"),
		PromotionsURL:      getEnv("PROMOTIONS_URL", "http://localhost:8082"),
		PaymentMethodsURL:  getEnv("PAYMENT_METHODS_URL", "http://localhost:8083"),
		DeliveryZonesURL:   getEnv("DELIVERY_ZONES_URL", "http://localhost:8084"),
		CollaboratorTimeout: 5 * time.Second,
		Currency:           getEnv("CURRENCY", "USD"),
		LockTimeout:        10 * time.Second,
		LockPollInterval:   100 * time.Millisecond,
		ReservationTTL:     15 * time.Minute,
		SweepInterval:      30 * time.Second,
		OutboxPollInterval: time.Second,
		OutboxRecoveryTick: 5 * time.Second,
		PriceCacheTTL:      5 * time.Minute,
	}

	var err error
	if cfg.DBPort, err = getEnvInt("DB_PORT", 5432); err != nil {
		return Config{}, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	if cfg.LockTimeout, err = getEnvDuration("LOCK_TIMEOUT", cfg.LockTimeout); err != nil {
		return Config{}, fmt.Errorf("invalid LOCK_TIMEOUT: %w", err)
	}
	if cfg.LockPollInterval, err = getEnvDuration("LOCK_POLL_INTERVAL", cfg.LockPollInterval); err != nil {
		return Config{}, fmt.Errorf("invalid LOCK_POLL_INTERVAL: %w", err)
	}
	if cfg.ReservationTTL, err = getEnvDuration("RESERVATION_TTL", cfg.ReservationTTL); err != nil {
		return Config{}, fmt.Errorf("invalid RESERVATION_TTL: %w", err)
	}
	if cfg.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return Config{}, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
	}
	if cfg.OutboxPollInterval, err = getEnvDuration("OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval); err != nil {
		return Config{}, fmt.Errorf("invalid OUTBOX_POLL_INTERVAL: %w", err)
	}
	if cfg.OutboxRecoveryTick, err = getEnvDuration("OUTBOX_RECOVERY_TICK", cfg.OutboxRecoveryTick); err != nil {
		return Config{}, fmt.Errorf("invalid OUTBOX_RECOVERY_TICK: %w", err)
	}
	if cfg.PriceCacheTTL, err = getEnvDuration("PRICE_CACHE_TTL", cfg.PriceCacheTTL); err != nil {
		return Config{}, fmt.Errorf("invalid PRICE_CACHE_TTL: %w", err)
	}
	if cfg.CollaboratorTimeout, err = getEnvDuration("COLLABORATOR_TIMEOUT", cfg.CollaboratorTimeout); err != nil {
		return Config{}, fmt.Errorf("invalid COLLABORATOR_TIMEOUT: %w", err)
	}

	if cfg.LockTimeout <= 0 {
		return Config{}, fmt.Errorf("LOCK_TIMEOUT must be > 0")
	}
	if cfg.LockPollInterval <= 0 || cfg.LockPollInterval > cfg.LockTimeout {
		return Config{}, fmt.Errorf("LOCK_POLL_INTERVAL must be > 0 and <= LOCK_TIMEOUT")
	}
	if cfg.ReservationTTL <= 0 {
		return Config{}, fmt.Errorf("RESERVATION_TTL must be > 0")
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	if cfg.KafkaTopic == "" {
		return Config{}, fmt.Errorf("KAFKA_TOPIC must not be empty")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates application configuration values loaded from environment
// variables. MongoURI, KafkaBrokers and RedisAddr are optional: leaving one
// empty disables the corresponding backend and the process degrades to the
// in-memory equivalent (or, for Kafka, keeps events queued in the outbox).
type Config struct {
	Env      string
	HTTPAddr string

	MongoURI string
	MongoDB  string

	KafkaBrokers     []string
	KafkaTopicPrefix string

	RedisAddr          string
	RedisPassword      string
	RedisIdempotencyDB int

	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	SweepInterval      time.Duration

	TaxRateBps     int64
	ServiceRateBps int64
	Currency       string
}

// Load parses configuration from the current environment, reading a local
// .env file first when one exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "hotelier"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		Currency:         strings.ToUpper(getEnv("CURRENCY", "KES")),
	}

	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var err error
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = parseDurationEnv("SWEEP_INTERVAL", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RedisIdempotencyDB, err = parseIntEnv("REDIS_IDEMPOTENCY_DB", 0); err != nil {
		return Config{}, err
	}
	taxBps, err := parseIntEnv("TAX_RATE_BPS", 1600)
	if err != nil {
		return Config{}, err
	}
	serviceBps, err := parseIntEnv("SERVICE_RATE_BPS", 1000)
	if err != nil {
		return Config{}, err
	}
	cfg.TaxRateBps = int64(taxBps)
	cfg.ServiceRateBps = int64(serviceBps)

	if len(cfg.Currency) != 3 {
		return Config{}, fmt.Errorf("CURRENCY must be a 3-letter code, got %q", cfg.Currency)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

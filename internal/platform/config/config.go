package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pstrings "licensecheck/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	JWTSigningKey  string // empty disables API auth
	JWTIssuer      string
	JWTAudience    string
	AdminTokenHash string // bcrypt; empty leaves operator routes behind JWT only
	LogLevel       string
	LogFormat      string
	LookupTimeout  time.Duration

	// Consecutive source transport failures before it is reported degraded
	SourceFailureThreshold int

	DatabaseURL string // empty selects the in-memory stores
	Redis       RedisConfig
	Kafka       KafkaConfig
	Sweep       SweepConfig
}

// RedisConfig configures the sweep lock backend.
type RedisConfig struct {
	URL          string // empty disables the sweep lock
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures alert publishing.
type KafkaConfig struct {
	Brokers []string // empty selects the log-only notifier
	Topic   string
}

// SweepConfig configures the scheduled monitoring sweep.
type SweepConfig struct {
	Enabled  bool
	Schedule string // cron spec
}

// Load reads an optional .env file then builds the config from the
// environment. Values already set in the environment win over the file.
func Load(envFiles ...string) (Server, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return Server{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	lookupTimeout, err := durationEnv("LOOKUP_TIMEOUT", 90*time.Second)
	if err != nil {
		return Server{}, err
	}
	sweepEnabled, err := boolEnv("SWEEP_ENABLED", true)
	if err != nil {
		return Server{}, err
	}
	poolSize, err := intEnv("REDIS_POOL_SIZE", 10)
	if err != nil {
		return Server{}, err
	}
	sourceFailures, err := intEnv("SOURCE_FAILURE_THRESHOLD", 5)
	if err != nil {
		return Server{}, err
	}

	return Server{
		Addr:           stringEnv("LICENSECHECK_ADDR", ":8080"),
		JWTSigningKey:  os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:      stringEnv("JWT_ISSUER", "licensecheck"),
		JWTAudience:    stringEnv("JWT_AUDIENCE", "licensecheck-api"),
		AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		LogLevel:       stringEnv("LOG_LEVEL", "info"),
		LogFormat:      stringEnv("LOG_FORMAT", "json"),
		LookupTimeout:  lookupTimeout,

		SourceFailureThreshold: sourceFailures,

		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     poolSize,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: listEnv("KAFKA_BROKERS"),
			Topic:   stringEnv("KAFKA_ALERT_TOPIC", "license-alerts"),
		},
		Sweep: SweepConfig{
			Enabled:  sweepEnabled,
			Schedule: stringEnv("SWEEP_SCHEDULE", "@weekly"),
		},
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func listEnv(key string) []string {
	return pstrings.SplitList(os.Getenv(key), ",")
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, v)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, v)
	}
	return n, nil
}

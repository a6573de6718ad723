package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	LogFormat           string
	LogLevel            string
	MetricsNamespace    string
	MetricsEnabled      bool
	TracingEnabled      bool
	TracingEndpoint     string
	TracingSampleRatio  float64
	MigrateOnStart      bool
	SeedOnStart         bool
	RequestBodyMaxBytes int64

	AdminJWTSecret    string
	AdminJWTIssuer    string
	AdminJWTAudience  string
	AdminTokenTTL     time.Duration
	AdminUsername     string
	AdminPasswordHash string
	LoginRateLimit    string

	ItemCacheTTL         time.Duration
	IdempotencyTTL       time.Duration
	ApplyRateLimitMax    int
	ApplyRateLimitWindow time.Duration
	CartLockTTL          time.Duration
	CartLockWait         time.Duration

	RepriceAsync      bool
	WorkerConcurrency int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		LogFormat:           valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:            valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace:    valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "offers"),
		MetricsEnabled:      parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
		TracingEnabled:      parseBool(k.String("OBS_ENABLE_TRACING"), false),
		TracingEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampleRatio:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		MigrateOnStart:      parseBool(k.String("MIGRATE_ON_START"), true),
		SeedOnStart:         parseBool(k.String("SEED_ON_START"), false),
		RequestBodyMaxBytes: int64(parseInt(k.String("REQUEST_BODY_MAX_BYTES"), 1<<20)),

		AdminJWTSecret:    k.String("ADMIN_JWT_SECRET"),
		AdminJWTIssuer:    strings.TrimSpace(k.String("ADMIN_JWT_ISSUER")),
		AdminJWTAudience:  strings.TrimSpace(k.String("ADMIN_JWT_AUDIENCE")),
		AdminTokenTTL:     parseDuration(k.String("ADMIN_TOKEN_TTL"), "30m"),
		AdminUsername:     valueOrDefault(strings.TrimSpace(k.String("ADMIN_USERNAME")), "admin"),
		AdminPasswordHash: strings.TrimSpace(k.String("ADMIN_PASSWORD_HASH")),
		LoginRateLimit:    valueOrDefault(strings.TrimSpace(k.String("ADMIN_LOGIN_RATE_LIMIT")), "5-M"),

		ItemCacheTTL:         parseDuration(k.String("ITEM_CACHE_TTL"), "5m"),
		IdempotencyTTL:       parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		ApplyRateLimitMax:    parseInt(k.String("APPLY_RATE_LIMIT_MAX"), 60),
		ApplyRateLimitWindow: parseDuration(k.String("APPLY_RATE_LIMIT_WINDOW"), "1m"),
		CartLockTTL:          parseDuration(k.String("CART_LOCK_TTL"), "5s"),
		CartLockWait:         parseDuration(k.String("CART_LOCK_WAIT"), "2s"),

		RepriceAsync:      parseBool(k.String("REPRICE_ASYNC"), false),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 4),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.AppEnv == "production" && cfg.AdminJWTSecret == "" {
		return nil, errors.New("ADMIN_JWT_SECRET is required in production")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}

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
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	EnablePrometheus bool
	MetricsBucketsMS string
	EnableTracing    bool
	OTLPEndpoint     string
	TracingSampling  float64
	SecureHeaders    bool
	BodyLimitBytes   int64

	DefaultCurrency   string
	MaxLineItems      int
	QuotesPerMinute   int
	RateLimitRedisURL string
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
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),

		LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "pricing"),
		EnablePrometheus: parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsBucketsMS: k.String("OBS_METRICS_BUCKETS_MS"),
		EnableTracing:    parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
		OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
		SecureHeaders:    parseBoolDefault(k.String("SECURE_HEADERS_ENABLE"), true),
		BodyLimitBytes:   int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 1<<20)),

		DefaultCurrency:   strings.ToLower(valueOrDefault(k.String("PRICING_DEFAULT_CURRENCY"), "usd")),
		MaxLineItems:      parseInt(k.String("PRICING_MAX_LINE_ITEMS"), 50),
		QuotesPerMinute:   parseInt(k.String("RATE_LIMIT_QUOTES_PER_MINUTE"), 120),
		RateLimitRedisURL: strings.TrimSpace(k.String("RATE_LIMIT_REDIS_URL")),
	}

	if len(cfg.DefaultCurrency) != 3 {
		return nil, errors.New("PRICING_DEFAULT_CURRENCY must be a three-letter currency code")
	}
	if cfg.MaxLineItems < 1 {
		return nil, errors.New("PRICING_MAX_LINE_ITEMS must be at least 1")
	}
	if cfg.TracingSampling < 0 || cfg.TracingSampling > 1 {
		return nil, errors.New("OBS_TRACING_SAMPLING_RATIO must be between 0 and 1")
	}
	if cfg.EnableTracing && cfg.OTLPEndpoint == "" {
		return nil, errors.New("OBS_OTLP_ENDPOINT is required when tracing is enabled")
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
		return strings.TrimSpace(value)
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

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
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

// Package config provides configuration loading and validation for the API
// server. It uses koanf to merge environment variables with optional file
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Gateway selection values.
const (
	GatewaySimulated = "simulated"
	GatewayStripe    = "stripe"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Redis (shared key-value store)
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	KeyPrefix     string `koanf:"key_prefix"`

	// RouteBase backend (system of record)
	BackendURL string `koanf:"backend_url"`

	// Payment coordination
	Gateway          string  `koanf:"gateway"` // simulated or stripe
	StripeAPIKey     string  `koanf:"stripe_api_key"`
	Currency         string  `koanf:"currency"`
	LockTTLSeconds   int     `koanf:"lock_ttl_seconds"`
	ResultTTLSeconds int     `koanf:"result_ttl_seconds"`
	SimFailureRate   float64 `koanf:"sim_failure_rate"`

	// Sessions
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// HTTP surface
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// Configuration validation errors.
var (
	ErrMissingRedisAddr    = errors.New("REDIS_ADDR is required")
	ErrMissingStripeAPIKey = errors.New("STRIPE_API_KEY is required when gateway is stripe")
	ErrInvalidGateway      = errors.New("GATEWAY must be simulated or stripe")
	ErrInvalidPort         = errors.New("PORT must be a valid integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort              = 8080
	DefaultEnv               = "development"
	DefaultRedisAddr         = "localhost:6379"
	DefaultKeyPrefix         = "routebase:"
	DefaultBackendURL        = "http://localhost:8000"
	DefaultGateway           = GatewaySimulated
	DefaultCurrency          = "pkr"
	DefaultLockTTLSeconds    = 30
	DefaultResultTTLSeconds  = 3600
	DefaultSessionTTLSeconds = 3600
	DefaultSimFailureRate    = 0.1
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables take precedence over file values. Returns the
// loaded config and a slice of validation errors (empty if valid).
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	redisDB, dbErr := getEnvIntOrDefault("REDIS_DB", k.Int("redis_db"), 0)
	if dbErr != nil {
		loadErrs = append(loadErrs, dbErr)
	}

	lockTTL, lockErr := getEnvIntOrDefault("LOCK_TTL_SECONDS", k.Int("lock_ttl_seconds"), DefaultLockTTLSeconds)
	if lockErr != nil {
		loadErrs = append(loadErrs, lockErr)
	}

	resultTTL, resultErr := getEnvIntOrDefault("RESULT_TTL_SECONDS", k.Int("result_ttl_seconds"), DefaultResultTTLSeconds)
	if resultErr != nil {
		loadErrs = append(loadErrs, resultErr)
	}

	sessionTTL, sessionErr := getEnvIntOrDefault("SESSION_TTL_SECONDS", k.Int("session_ttl_seconds"), DefaultSessionTTLSeconds)
	if sessionErr != nil {
		loadErrs = append(loadErrs, sessionErr)
	}

	failureRate, rateErr := getEnvFloatOrDefault("SIM_FAILURE_RATE", k.Float64("sim_failure_rate"), DefaultSimFailureRate)
	if rateErr != nil {
		loadErrs = append(loadErrs, rateErr)
	}

	origins := k.Strings("cors_allowed_origins")
	if val := os.Getenv("CORS_ALLOWED_ORIGINS"); val != "" {
		origins = splitAndTrim(val)
	}

	cfg := &Config{
		Port:               port,
		Env:                getEnvOrDefault("ENV", k.String("env"), DefaultEnv),
		RedisAddr:          getEnvOrDefault("REDIS_ADDR", k.String("redis_addr"), DefaultRedisAddr),
		RedisPassword:      getEnvOrKoanf("REDIS_PASSWORD", k, "redis_password"),
		RedisDB:            redisDB,
		KeyPrefix:          getEnvOrDefault("KEY_PREFIX", k.String("key_prefix"), DefaultKeyPrefix),
		BackendURL:         getEnvOrDefault("BACKEND_URL", k.String("backend_url"), DefaultBackendURL),
		Gateway:            strings.ToLower(getEnvOrDefault("GATEWAY", k.String("gateway"), DefaultGateway)),
		StripeAPIKey:       getEnvOrKoanf("STRIPE_API_KEY", k, "stripe_api_key"),
		Currency:           getEnvOrDefault("CURRENCY", k.String("currency"), DefaultCurrency),
		LockTTLSeconds:     lockTTL,
		ResultTTLSeconds:   resultTTL,
		SimFailureRate:     failureRate,
		SessionTTLSeconds:  sessionTTL,
		CORSAllowedOrigins: origins,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.RedisAddr == "" {
		errs = append(errs, ErrMissingRedisAddr)
	}

	switch c.Gateway {
	case GatewaySimulated:
	case GatewayStripe:
		if c.StripeAPIKey == "" {
			errs = append(errs, ErrMissingStripeAPIKey)
		}
	default:
		errs = append(errs, ErrInvalidGateway)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                 fmt.Sprintf("%d", c.Port),
		"env":                  c.Env,
		"redis_addr":           c.RedisAddr,
		"redis_password":       maskSecret(c.RedisPassword),
		"redis_db":             fmt.Sprintf("%d", c.RedisDB),
		"key_prefix":           c.KeyPrefix,
		"backend_url":          c.BackendURL,
		"gateway":              c.Gateway,
		"stripe_api_key":       maskStripeKey(c.StripeAPIKey),
		"currency":             c.Currency,
		"lock_ttl_seconds":     fmt.Sprintf("%d", c.LockTTLSeconds),
		"result_ttl_seconds":   fmt.Sprintf("%d", c.ResultTTLSeconds),
		"session_ttl_seconds":  fmt.Sprintf("%d", c.SessionTTLSeconds),
		"sim_failure_rate":     fmt.Sprintf("%g", c.SimFailureRate),
		"cors_allowed_origins": strings.Join(c.CORSAllowedOrigins, ","),
	}
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the
// koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise
// the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set,
// otherwise the koanf value, or default. Returns an error if the environment
// variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set,
// otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// maskSecret masks a secret value, showing only the first 4 characters.
// Short secrets are fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskStripeKey masks a Stripe API key, preserving the sk_live_/sk_test_
// prefix.
func maskStripeKey(s string) string {
	if s == "" {
		return "<not set>"
	}
	parts := strings.SplitN(s, "_", 3)
	if len(parts) == 3 {
		return parts[0] + "_" + parts[1] + "_****"
	}
	return maskSecret(s)
}

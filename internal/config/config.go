// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database. Empty means in-memory repositories (dev/test).
	DatabaseURL string `koanf:"database_url"`

	// Redis. Empty means the in-memory assertion store is used.
	RedisURL string `koanf:"redis_url"`

	// JWT Authentication
	JWTSecret string `koanf:"jwt_secret"`

	// ReceiptSalt is the server-held salt mixed into every ballot receipt hash.
	ReceiptSalt string `koanf:"receipt_salt"`

	// Admin credentials. Admin login is disabled when unset.
	AdminUsername     string `koanf:"admin_username"`
	AdminPasswordHash string `koanf:"admin_password_hash"`

	// Identity Gate
	FaceMatchThreshold float64       `koanf:"face_match_threshold"`
	AssertionTTL       time.Duration `koanf:"assertion_ttl"`

	// Security Monitor
	SuspiciousWindowHours         int `koanf:"suspicious_window_hours"`
	SuspiciousFailureThreshold    int `koanf:"suspicious_failure_threshold"`
	SuspiciousDistinctIPThreshold int `koanf:"suspicious_distinct_ip_threshold"`

	// Tally Engine
	AllowTallyBeforeClose bool `koanf:"allow_tally_before_close"`

	// Template object store (S3-compatible). Optional group; when unset the
	// in-memory template store is used.
	TemplateBucketName      string `koanf:"template_bucket_name"`
	TemplateAccessKeyID     string `koanf:"template_access_key_id"`
	TemplateSecretAccessKey string `koanf:"template_secret_access_key"`
	TemplateEndpoint        string `koanf:"template_endpoint"`

	// Tracing
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingExporterType string  `koanf:"tracing_exporter_type"`
	TracingOTLPEndpoint string  `koanf:"tracing_otlp_endpoint"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
}

// Configuration validation errors.
var (
	ErrMissingJWTSecret               = errors.New("JWT_SECRET is required")
	ErrMissingReceiptSalt             = errors.New("RECEIPT_SALT is required")
	ErrInvalidPort                    = errors.New("PORT must be a valid integer")
	ErrInvalidMatchThreshold          = errors.New("FACE_MATCH_THRESHOLD must be in (0,1]")
	ErrInvalidAssertionTTL            = errors.New("ASSERTION_TTL must be > 0")
	ErrInvalidSuspiciousWindow        = errors.New("SUSPICIOUS_WINDOW_HOURS must be > 0")
	ErrMissingTemplateBucketName      = errors.New("TEMPLATE_BUCKET_NAME is required")
	ErrMissingTemplateAccessKeyID     = errors.New("TEMPLATE_ACCESS_KEY_ID is required")
	ErrMissingTemplateSecretAccessKey = errors.New("TEMPLATE_SECRET_ACCESS_KEY is required")
	ErrMissingTemplateEndpoint        = errors.New("TEMPLATE_ENDPOINT is required")
)

// Default values for non-secret configuration.
const (
	DefaultPort                          = 8080
	DefaultEnv                           = "development"
	DefaultFaceMatchThreshold            = 0.6
	DefaultAssertionTTL                  = 5 * time.Minute
	DefaultSuspiciousWindowHours         = 24
	DefaultSuspiciousFailureThreshold    = 5
	DefaultSuspiciousDistinctIPThreshold = 1
	DefaultTracingSamplingRate           = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefaultMulti([]string{"VOTEGRITY_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	threshold, thresholdErr := getEnvFloatOrDefault("FACE_MATCH_THRESHOLD", k.Float64("face_match_threshold"), DefaultFaceMatchThreshold)
	if thresholdErr != nil {
		loadErrs = append(loadErrs, thresholdErr)
	}

	assertionTTL, ttlErr := getEnvDurationOrDefault("ASSERTION_TTL", k.Duration("assertion_ttl"), DefaultAssertionTTL)
	if ttlErr != nil {
		loadErrs = append(loadErrs, ttlErr)
	}

	windowHours, windowErr := getEnvIntOrDefault("SUSPICIOUS_WINDOW_HOURS", k.Int("suspicious_window_hours"), DefaultSuspiciousWindowHours)
	if windowErr != nil {
		loadErrs = append(loadErrs, windowErr)
	}

	failureThreshold, failErr := getEnvIntOrDefault("SUSPICIOUS_FAILURE_THRESHOLD", k.Int("suspicious_failure_threshold"), DefaultSuspiciousFailureThreshold)
	if failErr != nil {
		loadErrs = append(loadErrs, failErr)
	}

	ipThreshold, ipErr := getEnvIntOrDefault("SUSPICIOUS_DISTINCT_IP_THRESHOLD", k.Int("suspicious_distinct_ip_threshold"), DefaultSuspiciousDistinctIPThreshold)
	if ipErr != nil {
		loadErrs = append(loadErrs, ipErr)
	}

	samplingRate, samplingErr := getEnvFloatOrDefault("TRACING_SAMPLING_RATE", k.Float64("tracing_sampling_rate"), DefaultTracingSamplingRate)
	if samplingErr != nil {
		loadErrs = append(loadErrs, samplingErr)
	}

	cfg := &Config{
		Port:                          port,
		Env:                           getEnvOrDefaultMulti([]string{"VOTEGRITY_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:                   getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:                      getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:                     getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		ReceiptSalt:                   getEnvOrKoanf("RECEIPT_SALT", k, "receipt_salt"),
		AdminUsername:                 getEnvOrKoanf("ADMIN_USERNAME", k, "admin_username"),
		AdminPasswordHash:             getEnvOrKoanf("ADMIN_PASSWORD_HASH", k, "admin_password_hash"),
		FaceMatchThreshold:            threshold,
		AssertionTTL:                  assertionTTL,
		SuspiciousWindowHours:         windowHours,
		SuspiciousFailureThreshold:    failureThreshold,
		SuspiciousDistinctIPThreshold: ipThreshold,
		AllowTallyBeforeClose:         getEnvBoolOrKoanf("ALLOW_TALLY_BEFORE_CLOSE", k, "allow_tally_before_close"),
		TemplateBucketName:            getEnvOrKoanf("TEMPLATE_BUCKET_NAME", k, "template_bucket_name"),
		TemplateAccessKeyID:           getEnvOrKoanf("TEMPLATE_ACCESS_KEY_ID", k, "template_access_key_id"),
		TemplateSecretAccessKey:       getEnvOrKoanf("TEMPLATE_SECRET_ACCESS_KEY", k, "template_secret_access_key"),
		TemplateEndpoint:              getEnvOrKoanf("TEMPLATE_ENDPOINT", k, "template_endpoint"),
		TracingEnabled:                getEnvBoolOrKoanf("TRACING_ENABLED", k, "tracing_enabled"),
		TracingExporterType:           getEnvOrKoanf("TRACING_EXPORTER_TYPE", k, "tracing_exporter_type"),
		TracingOTLPEndpoint:           getEnvOrKoanf("TRACING_OTLP_ENDPOINT", k, "tracing_otlp_endpoint"),
		TracingSamplingRate:           samplingRate,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvBoolOrKoanf returns the environment variable as a bool if set, otherwise the koanf value.
func getEnvBoolOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) bool {
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return k.Bool(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
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

// getEnvDurationOrDefault returns the environment variable as a duration if set,
// otherwise the koanf value, or default.
func getEnvDurationOrDefault(envKey string, koanfVal time.Duration, defaultVal time.Duration) (time.Duration, error) {
	if val := os.Getenv(envKey); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid duration: %w", envKey, err)
		}
		return d, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present and sane.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.ReceiptSalt == "" {
		errs = append(errs, ErrMissingReceiptSalt)
	}
	if c.FaceMatchThreshold <= 0 || c.FaceMatchThreshold > 1 {
		errs = append(errs, ErrInvalidMatchThreshold)
	}
	if c.AssertionTTL <= 0 {
		errs = append(errs, ErrInvalidAssertionTTL)
	}
	if c.SuspiciousWindowHours <= 0 {
		errs = append(errs, ErrInvalidSuspiciousWindow)
	}

	// Template store configuration is optional. Only validate fields if any value is set.
	if c.TemplateBucketName != "" || c.TemplateAccessKeyID != "" || c.TemplateSecretAccessKey != "" || c.TemplateEndpoint != "" {
		if c.TemplateBucketName == "" {
			errs = append(errs, ErrMissingTemplateBucketName)
		}
		if c.TemplateAccessKeyID == "" {
			errs = append(errs, ErrMissingTemplateAccessKeyID)
		}
		if c.TemplateSecretAccessKey == "" {
			errs = append(errs, ErrMissingTemplateSecretAccessKey)
		}
		if c.TemplateEndpoint == "" {
			errs = append(errs, ErrMissingTemplateEndpoint)
		}
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                             fmt.Sprintf("%d", c.Port),
		"env":                              c.Env,
		"database_url":                     maskConnectionURL(c.DatabaseURL),
		"redis_url":                        maskConnectionURL(c.RedisURL),
		"jwt_secret":                       maskSecret(c.JWTSecret),
		"receipt_salt":                     maskSecret(c.ReceiptSalt),
		"admin_username":                   c.AdminUsername,
		"admin_password_hash":              maskSecret(c.AdminPasswordHash),
		"face_match_threshold":             fmt.Sprintf("%.2f", c.FaceMatchThreshold),
		"assertion_ttl":                    c.AssertionTTL.String(),
		"suspicious_window_hours":          fmt.Sprintf("%d", c.SuspiciousWindowHours),
		"suspicious_failure_threshold":     fmt.Sprintf("%d", c.SuspiciousFailureThreshold),
		"suspicious_distinct_ip_threshold": fmt.Sprintf("%d", c.SuspiciousDistinctIPThreshold),
		"allow_tally_before_close":         fmt.Sprintf("%t", c.AllowTallyBeforeClose),
		"template_bucket_name":             c.TemplateBucketName,
		"template_access_key_id":           maskSecret(c.TemplateAccessKeyID),
		"template_secret_access_key":       maskSecret(c.TemplateSecretAccessKey),
		"template_endpoint":                c.TemplateEndpoint,
		"tracing_enabled":                  fmt.Sprintf("%t", c.TracingEnabled),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskConnectionURL masks the password in a connection URL.
// Supports postgres://, postgresql:// and redis:// schemes.
func maskConnectionURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}

package config

import (
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/tableclean/internal/export"
	"github.com/JonMunkholm/tableclean/internal/outlier"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.URL == "" && c.Database.CredentialsFile == "" {
		errs = append(errs, "DATABASE_URL or DB_CREDENTIALS_FILE is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, "SERVER_MAX_BODY_BYTES must be positive")
	}

	// Clean validation
	if math.IsNaN(c.Clean.SkewThreshold) || math.IsInf(c.Clean.SkewThreshold, 0) || c.Clean.SkewThreshold < 0 {
		errs = append(errs, fmt.Sprintf("CLEAN_SKEW_THRESHOLD (%g) must be a finite number >= 0", c.Clean.SkewThreshold))
	}
	if c.Clean.OutlierMethod != "" {
		if _, err := outlier.ParseMethod(c.Clean.OutlierMethod); err != nil {
			errs = append(errs, fmt.Sprintf("CLEAN_OUTLIER_METHOD (%q) must be one of: iqr, z_score", c.Clean.OutlierMethod))
		}
	}
	if c.Clean.ZThreshold <= 0 {
		errs = append(errs, "CLEAN_Z_THRESHOLD must be positive")
	}
	if c.Clean.MaxConcurrent <= 0 {
		errs = append(errs, "CLEAN_MAX_CONCURRENT must be positive")
	}
	if c.Clean.MaxWaitTime <= 0 {
		errs = append(errs, "CLEAN_MAX_WAIT_TIME must be positive")
	}
	if c.Clean.Timeout <= 0 {
		errs = append(errs, "CLEAN_TIMEOUT must be positive")
	}

	// Export validation
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		errs = append(errs, fmt.Sprintf("EXPORT_FORMAT (%q) must be one of: csv, parquet", c.Export.Format))
	}
	if (c.Export.AccessKey == "") != (c.Export.SecretKey == "") {
		errs = append(errs, "EXPORT_S3_ACCESS_KEY and EXPORT_S3_SECRET_KEY must be set together")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "API_KEYS is required when REQUIRE_API_KEY is true")
	}
	if c.Security.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs and S3 secrets are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: %s, CredentialsFile: %q, MaxConns: %d}, ",
		mask(c.Database.URL), c.Database.CredentialsFile, c.Database.MaxConns))
	b.WriteString(fmt.Sprintf("Clean: {SkewThreshold: %g, OutlierMethod: %q, MaxConcurrent: %d}, ",
		c.Clean.SkewThreshold, c.Clean.OutlierMethod, c.Clean.MaxConcurrent))
	b.WriteString(fmt.Sprintf("Export: {Dir: %q, Format: %q, Bucket: %q, SecretKey: %s}, ",
		c.Export.Dir, c.Export.Format, c.Export.Bucket, mask(c.Export.SecretKey)))
	b.WriteString(fmt.Sprintf("Security: {RequireAPIKey: %t, APIKeys: %d configured, TrustedProxies: %v}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys), c.Security.TrustedProxies))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return `""`
	}
	return "[MASKED]"
}

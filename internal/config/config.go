// Package config provides centralized configuration management for tableclean.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
//
// Database credentials may also come from a YAML credentials file (see
// LoadCredentials), and each cleaning run is described by a plan file (see
// LoadPlan).
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Clean    CleanConfig
	Export   ExportConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// MaxBodyBytes caps JSON request bodies (default: 32MB)
	MaxBodyBytes int64 `env:"SERVER_MAX_BODY_BYTES" default:"33554432"`
}

// DatabaseConfig holds database connection settings.
// Either URL or CredentialsFile must be set; URL wins when both are.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// CredentialsFile is a YAML file with DB_HOST, DB_PORT, DB_USERNAME, DB_PASS and DB_NAME
	CredentialsFile string `env:"DB_CREDENTIALS_FILE" default:"credentials.yaml"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`
}

// CleanConfig holds the defaults for cleaning runs. Plan files override them.
type CleanConfig struct {
	// SkewThreshold is the minimum |skew| for automatic treatment (default: 1)
	SkewThreshold float64 `env:"CLEAN_SKEW_THRESHOLD" default:"1"`

	// OutlierMethod is iqr, z_score or empty to skip outlier handling (default: iqr)
	OutlierMethod string `env:"CLEAN_OUTLIER_METHOD" default:"iqr"`

	// ZThreshold is the |z| above which a value is an outlier (default: 3)
	ZThreshold float64 `env:"CLEAN_Z_THRESHOLD" default:"3"`

	// StrictOverrides rejects unknown transforms in manual mappings instead of using cube
	StrictOverrides bool `env:"CLEAN_STRICT_OVERRIDES" default:"false"`

	// MaxConcurrent is the maximum number of parallel cleaning runs (default: 4)
	MaxConcurrent int `env:"CLEAN_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"CLEAN_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for one run (default: 10m)
	Timeout time.Duration `env:"CLEAN_TIMEOUT" default:"10m"`
}

// ExportConfig holds export and object storage settings.
type ExportConfig struct {
	// Dir is where exported files are written (default: ./exports)
	Dir string `env:"EXPORT_DIR" default:"exports"`

	// Format is csv or parquet (default: csv)
	Format string `env:"EXPORT_FORMAT" default:"csv"`

	// Bucket enables uploads of every export when set
	Bucket string `env:"EXPORT_S3_BUCKET"`

	// Prefix is prepended to object keys
	Prefix string `env:"EXPORT_S3_PREFIX"`

	// Endpoint overrides the S3 endpoint for S3-compatible stores
	Endpoint string `env:"EXPORT_S3_ENDPOINT" envAlt:"AWS_ENDPOINT_URL_S3"`

	// Region is the S3 region (default: us-east-1)
	Region string `env:"EXPORT_S3_REGION" envAlt:"AWS_REGION" default:"us-east-1"`

	// AccessKey and SecretKey select static credentials; otherwise the AWS default chain is used
	AccessKey string `env:"EXPORT_S3_ACCESS_KEY"`
	SecretKey string `env:"EXPORT_S3_SECRET_KEY"`

	// UsePathStyle is needed by most S3-compatible stores (default: false)
	UsePathStyle bool `env:"EXPORT_S3_USE_PATH_STYLE" default:"false"`
}

// SecurityConfig holds API access settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables API key authentication on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of valid keys for the X-API-Key header
	APIKeys []string `env:"API_KEYS"`

	// RequestsPerMinute is the per-IP rate limit for /api routes (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// StorageEnabled reports whether exports are uploaded.
func (c *ExportConfig) StorageEnabled() bool {
	return c.Bucket != ""
}

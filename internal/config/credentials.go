package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// CredentialsEnvPrefix prefixes env vars that override credentials file keys,
// e.g. TABLECLEAN_DB_PASS overrides DB_PASS.
const CredentialsEnvPrefix = "TABLECLEAN_"

// Credentials are the database connection details of a credentials file.
type Credentials struct {
	Host     string `koanf:"DB_HOST"`
	Port     int    `koanf:"DB_PORT"`
	Username string `koanf:"DB_USERNAME"`
	Password string `koanf:"DB_PASS"`
	Database string `koanf:"DB_NAME"`
}

// LoadCredentials merges the YAML credentials file at path (if present) with
// TABLECLEAN_-prefixed env vars. A missing file is not an error as long as
// the environment supplies every key.
func LoadCredentials(path string) (Credentials, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, fmt.Errorf("credentials file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(CredentialsEnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(s, CredentialsEnvPrefix)
	}), nil); err != nil {
		return Credentials{}, fmt.Errorf("credentials env: %w", err)
	}

	var creds Credentials
	if err := k.Unmarshal("", &creds); err != nil {
		return Credentials{}, fmt.Errorf("credentials: %w", err)
	}
	if creds.Port == 0 {
		creds.Port = 5432
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// Validate reports every missing key at once.
func (c Credentials) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if c.Username == "" {
		missing = append(missing, "DB_USERNAME")
	}
	if c.Database == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.Port <= 0 || c.Port > 65535 {
		missing = append(missing, fmt.Sprintf("DB_PORT (%d out of range)", c.Port))
	}
	if len(missing) > 0 {
		return fmt.Errorf("credentials missing or invalid: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DSN returns the PostgreSQL connection URL.
func (c Credentials) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	return u.String()
}

// String masks the password.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Host: %q, Port: %d, Username: %q, Password: [MASKED], Database: %q}",
		c.Host, c.Port, c.Username, c.Database)
}

// DatabaseURL resolves the connection string: DATABASE_URL when set,
// otherwise the credentials file.
func (c *DatabaseConfig) DatabaseURL() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	creds, err := LoadCredentials(c.CredentialsFile)
	if err != nil {
		return "", err
	}
	return creds.DSN(), nil
}

package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultReadHeaderTimeout = 10 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 15 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultEnvironment       = "local"
	defaultLogLevel          = "info"
	defaultSiteName          = "Fairytale Party"
	defaultSiteURL           = "https://fairytaleparty.co.uk"
	defaultContactEmail      = "hello@fairytaleparty.co.uk"
	defaultRestartFile       = "tmp/restart.txt"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	Site    SiteConfig
	Paths   PathConfig
	Logging LoggingConfig
	// Environment is a free-form label such as "local" or "prod".
	Environment string
	// Dev reparses templates and content on every request.
	Dev bool
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	// H2C enables cleartext HTTP/2 for deployments behind an HTTP/2 aware proxy.
	H2C bool
}

// Addr returns the listen address for the configured port.
func (s ServerConfig) Addr() string {
	if strings.Contains(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

// SiteConfig holds values surfaced in page metadata.
type SiteConfig struct {
	Name         string
	URL          string
	ContactEmail string
}

// PathConfig points at on-disk overrides. Empty directories mean the embedded copies are served.
type PathConfig struct {
	TemplatesDir string
	ContentDir   string
	RestartFile  string
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, .env overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	var invalid []string
	duration := func(key string, fallback time.Duration) time.Duration {
		d, ok := durationWithDefault(lookup, key, fallback)
		if !ok {
			invalid = append(invalid, key)
		}
		return d
	}

	cfg := Config{
		Server: ServerConfig{
			// Cloud-style PORT is honoured when the prefixed key is absent.
			Port:              stringWithDefault(lookup, "FPARTY_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadHeaderTimeout: duration("FPARTY_READ_HEADER_TIMEOUT", defaultReadHeaderTimeout),
			ReadTimeout:       duration("FPARTY_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:      duration("FPARTY_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:       duration("FPARTY_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout:   duration("FPARTY_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
			H2C:               boolWithDefault(lookup, "FPARTY_H2C", false),
		},
		Site: SiteConfig{
			Name:         stringWithDefault(lookup, "FPARTY_SITE_NAME", defaultSiteName),
			URL:          strings.TrimRight(stringWithDefault(lookup, "FPARTY_SITE_URL", defaultSiteURL), "/"),
			ContactEmail: stringWithDefault(lookup, "FPARTY_CONTACT_EMAIL", defaultContactEmail),
		},
		Paths: PathConfig{
			TemplatesDir: stringWithDefault(lookup, "FPARTY_TEMPLATES_DIR", ""),
			ContentDir:   stringWithDefault(lookup, "FPARTY_CONTENT_DIR", ""),
			RestartFile:  stringWithDefault(lookup, "FPARTY_RESTART_FILE", defaultRestartFile),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(stringWithDefault(lookup, "FPARTY_LOG_LEVEL", defaultLogLevel)),
		},
		Environment: strings.ToLower(stringWithDefault(lookup, "FPARTY_ENV", defaultEnvironment)),
		// Dev mode: prefer FPARTY_DEV, fallback to DEV
		Dev: boolWithDefault(lookup, "FPARTY_DEV", boolWithDefault(lookup, "DEV", false)),
	}

	if err := validateConfig(cfg, invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config, invalid []string) error {
	missing := append([]string(nil), invalid...)

	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Server.ReadTimeout <= 0 {
		missing = append(missing, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		missing = append(missing, "Server.WriteTimeout")
	}
	if strings.TrimSpace(cfg.Site.Name) == "" {
		missing = append(missing, "Site.Name")
	}
	if u, err := url.Parse(cfg.Site.URL); err != nil || u.Scheme == "" || u.Host == "" {
		missing = append(missing, "Site.URL")
	}
	if strings.TrimSpace(cfg.Paths.RestartFile) == "" {
		missing = append(missing, "Paths.RestartFile")
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		missing = append(missing, "Logging.Level")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(parts[1]), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

// durationWithDefault reports ok=false when a value is present but unparsable.
func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, bool) {
	value, ok := lookup(key)
	if !ok || value == "" {
		return fallback, true
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, false
	}
	return d, true
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

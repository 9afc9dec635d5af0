package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"golang.org/x/net/http/httpguts"

	"github.com/wudi/proxymanager/internal/realip"
	"github.com/wudi/proxymanager/internal/upstream"
)

var (
	validLogLevels  = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validLogFormats = map[string]bool{"": true, "stackdriver": true, "json": true, "bunyan": true, "console": true, "text": true, "fmt": true}
)

// envOverrides are process environment settings that win over the file.
type envOverrides struct {
	LogFormat     string `env:"LOG_FORMAT"`
	LogLevel      string `env:"LOG_LEVEL"`
	ListenAddr    string `env:"LISTEN_ADDR"`
	GeoIPDatabase string `env:"GEOIP_DATABASE"`
}

// Loader handles configuration loading and parsing
type Loader struct {
	envPattern *regexp.Regexp
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPattern: regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`),
	}
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables that are already set are left untouched.
func (l *Loader) LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load reads and parses a configuration file
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return l.Parse(data)
}

// LoadOrDefault behaves like Load but falls back to the defaults when the
// file does not exist.
func (l *Loader) LoadOrDefault(path string) (*Config, error) {
	cfg, err := l.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l.Parse(nil)
	}
	return cfg, err
}

// Parse parses configuration from YAML bytes. Empty input yields the
// defaults. Environment overrides are applied before validation.
func (l *Loader) Parse(data []byte) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	if len(bytes.TrimSpace(data)) > 0 {
		expanded := l.expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := l.validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func (l *Loader) expandEnvVars(input string) string {
	return l.envPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match // Keep original if env var not set
	})
}

func applyEnvOverrides(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if o.LogFormat != "" {
		// Any value that is not a structured format selects plain text.
		cfg.Logging.Format = strings.ToLower(o.LogFormat)
		if !validLogFormats[cfg.Logging.Format] {
			cfg.Logging.Format = "console"
		}
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(o.LogLevel)
	}
	if o.ListenAddr != "" {
		cfg.Listen.Address = o.ListenAddr
	}
	if o.GeoIPDatabase != "" {
		cfg.GeoIP.Database = o.GeoIPDatabase
	}
	return nil
}

// validate checks configuration for errors
func (l *Loader) validate(cfg *Config) error {
	if cfg.Listen.Address == "" {
		return fmt.Errorf("listen.address is required")
	}
	if _, _, err := net.SplitHostPort(cfg.Listen.Address); err != nil {
		return fmt.Errorf("listen.address: %w", err)
	}

	if !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging.level: invalid level %q", cfg.Logging.Level)
	}
	if !validLogFormats[strings.ToLower(cfg.Logging.Format)] {
		return fmt.Errorf("logging.format: invalid format %q", cfg.Logging.Format)
	}

	if err := upstream.ValidateAddress(cfg.Proxies.US); err != nil {
		return fmt.Errorf("proxies.us: %w", err)
	}
	if err := upstream.ValidateAddress(cfg.Proxies.EU); err != nil {
		return fmt.Errorf("proxies.eu: %w", err)
	}

	if cfg.GeoIP.CacheSize < 0 {
		return fmt.Errorf("geoip.cache_size must be >= 0")
	}
	if h := cfg.GeoIP.CountryHeader; h != "" && !httpguts.ValidHeaderFieldName(h) {
		return fmt.Errorf("geoip.country_header: invalid header name %q", h)
	}

	for _, cidr := range cfg.TrustedProxies.CIDRs {
		if _, err := realip.ParsePrefix(cidr); err != nil {
			return fmt.Errorf("trusted_proxies: %w", err)
		}
	}
	for _, h := range cfg.TrustedProxies.Headers {
		if !httpguts.ValidHeaderFieldName(h) {
			return fmt.Errorf("trusted_proxies.headers: invalid header name %q", h)
		}
	}
	if cfg.TrustedProxies.MaxHops < 0 {
		return fmt.Errorf("trusted_proxies.max_hops must be >= 0")
	}

	if cfg.CORS.MaxAge < 0 {
		return fmt.Errorf("cors.max_age must be >= 0")
	}
	if cfg.Shutdown.Timeout < 0 {
		return fmt.Errorf("shutdown.timeout must be >= 0")
	}

	return nil
}

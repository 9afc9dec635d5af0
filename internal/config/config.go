package config

import (
	"time"

	"github.com/wudi/proxymanager/internal/upstream"
)

// Config represents the complete proxy manager configuration
type Config struct {
	Listen         ListenConfig         `yaml:"listen"`
	Logging        LoggingConfig        `yaml:"logging"`
	GeoIP          GeoIPConfig          `yaml:"geoip"`
	Proxies        ProxiesConfig        `yaml:"proxies"`
	TrustedProxies TrustedProxiesConfig `yaml:"trusted_proxies"`
	CORS           CORSConfig           `yaml:"cors"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Shutdown       ShutdownConfig       `yaml:"shutdown"`
}

// ListenConfig defines the HTTP listener
type ListenConfig struct {
	Address           string        `yaml:"address"` // e.g., "0.0.0.0:8080"
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	MaxHeaderBytes    int           `yaml:"max_header_bytes"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Format   string            `yaml:"format"` // stackdriver, json (bunyan), console (text)
	Level    string            `yaml:"level"`
	Output   string            `yaml:"output"` // stdout, stderr or a file path
	Rotation LogRotationConfig `yaml:"rotation"`
}

// LogRotationConfig defines log file rotation settings (powered by lumberjack).
type LogRotationConfig struct {
	MaxSize    int  `yaml:"max_size"`    // max megabytes before rotation (default 100)
	MaxBackups int  `yaml:"max_backups"` // old rotated files to keep (default 3)
	MaxAge     int  `yaml:"max_age"`     // days to retain old files (default 28)
	Compress   bool `yaml:"compress"`    // gzip rotated files (default true)
	LocalTime  bool `yaml:"local_time"`  // use local time in backup filenames (default false)
}

// GeoIPConfig defines the geographic database
type GeoIPConfig struct {
	Database      string `yaml:"database"`       // path to .mmdb or .ipdb; absent file disables geo
	CacheSize     int    `yaml:"cache_size"`     // LRU entries, 0 disables
	CountryHeader string `yaml:"country_header"` // e.g. X-AppEngine-Country; overrides the lookup when well-formed
}

// ProxiesConfig defines the regional proxy endpoints
type ProxiesConfig struct {
	US string `yaml:"us"`
	EU string `yaml:"eu"`
}

// TrustedProxiesConfig defines which peers may set forwarding headers.
type TrustedProxiesConfig struct {
	CIDRs   []string `yaml:"cidrs"`    // trusted proxy CIDRs (e.g. "10.0.0.0/8", "127.0.0.1/32")
	Headers []string `yaml:"headers"`  // headers to check for client IP (default: X-Forwarded-For, X-Real-IP)
	MaxHops int      `yaml:"max_hops"` // maximum number of hops to walk back in XFF chain (0 = unlimited)
}

// CORSConfig defines CORS settings
type CORSConfig struct {
	Enabled      bool     `yaml:"enabled"`
	AllowOrigins []string `yaml:"allow_origins"`
	AllowMethods []string `yaml:"allow_methods"`
	AllowHeaders []string `yaml:"allow_headers"`
	MaxAge       int      `yaml:"max_age"` // seconds
}

// MetricsConfig defines the metrics exposition
type MetricsConfig struct {
	RuntimeCollectors bool `yaml:"runtime_collectors"` // export Go runtime and process metrics
}

// ShutdownConfig defines graceful shutdown settings.
type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout"` // total shutdown timeout (default 30s)
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Listen: ListenConfig{
			Address:           "0.0.0.0:8080",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Format: "stackdriver",
			Level:  "info",
			Output: "stdout",
			Rotation: LogRotationConfig{
				MaxSize:    100,
				MaxBackups: 3,
				MaxAge:     28,
				Compress:   true,
			},
		},
		GeoIP: GeoIPConfig{
			Database: "country.mmdb",
		},
		Proxies: ProxiesConfig{
			US: upstream.DefaultUSProxy,
			EU: upstream.DefaultEUProxy,
		},
		CORS: CORSConfig{
			Enabled:      true,
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"*"},
		},
		Shutdown: ShutdownConfig{
			Timeout: 30 * time.Second,
		},
	}
}

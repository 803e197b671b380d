// Package config loads process-wide configuration from a YAML file whose
// values are environment-variable expanded, following the teacher's
// read-expand-unmarshal-validate pipeline.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Store       StoreConfig       `yaml:"store"`
	Auth        AuthConfig        `yaml:"auth"`
	Live        LiveConfig        `yaml:"live"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Workers     WorkersConfig     `yaml:"workers"`
	Development DevelopmentConfig `yaml:"development"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	Host           string        `yaml:"host"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CORS           CORSConfig    `yaml:"cors"`
}

type CORSConfig struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposeHeaders    []string `yaml:"expose_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// StoreConfig addresses the out-of-scope document store (spec.md §1) —
// a connection URI and database name, resolved once at startup.
type StoreConfig struct {
	URI            string   `yaml:"uri"`
	Database       string   `yaml:"database"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	// PollInterval governs the bounded-interval polling fallback used
	// when the concrete adapter's backing store lacks native change
	// feeds (spec.md §9).
	PollInterval Duration `yaml:"poll_interval"`
}

// AuthConfig carries the Auth Core's process-wide secret and policy
// knobs (spec.md §4.3, §6).
type AuthConfig struct {
	JWTSecret              string   `yaml:"jwt_secret"`
	AccessTokenTTL         Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL        Duration `yaml:"refresh_token_ttl"`
	BcryptCost             int      `yaml:"bcrypt_cost"`
	LockoutThreshold       int      `yaml:"lockout_threshold"`
	LockoutWindow          Duration `yaml:"lockout_window"`
	BlocklistLookupTimeout Duration `yaml:"blocklist_lookup_timeout"`
	BlocklistSweepInterval Duration `yaml:"blocklist_sweep_interval"`
	HasherPoolSize         int      `yaml:"hasher_pool_size"`
}

// LiveConfig drives the live-query multiplexer's admission and liveness
// policy (spec.md §4.4).
type LiveConfig struct {
	Port               int      `yaml:"port"`
	HeartbeatInterval  Duration `yaml:"heartbeat_interval"`
	PingTimeout        Duration `yaml:"ping_timeout"`
	MaxChannels        int      `yaml:"max_channels"`
	OutboundQueueSize  int      `yaml:"outbound_queue_size"`
}

// ObjectStoreConfig backs the opaque-blob façade (spec.md §1), an
// out-of-scope external collaborator specified only at its interface —
// this section configures the one concrete (GCS-backed) implementation
// this repository ships in addition to that interface.
type ObjectStoreConfig struct {
	Bucket          string `yaml:"bucket"`
	CredentialsPath string `yaml:"credentials_path"`
}

type LoggingConfig struct {
	Level            string `yaml:"level"`
	Format           string `yaml:"format"`
	Output           string `yaml:"output"`
	EnableStacktrace bool   `yaml:"enable_stacktrace"`
	Development      bool   `yaml:"development"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Port    int    `yaml:"port"`
}

type WorkersConfig struct {
	Enabled bool `yaml:"enabled"`
}

type DevelopmentConfig struct {
	Enabled     bool `yaml:"enabled"`
	DebugRoutes bool `yaml:"debug_routes"`
	PrettyLogs  bool `yaml:"pretty_logs"`
	DisableAuth bool `yaml:"disable_auth"`
}

// Load reads, env-expands, parses and validates the configuration file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path comes from a command-line arg, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(c *Config) {
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = Duration(15 * time.Minute)
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = Duration(7 * 24 * time.Hour)
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 10
	}
	if c.Auth.LockoutThreshold == 0 {
		c.Auth.LockoutThreshold = 5
	}
	if c.Auth.LockoutWindow == 0 {
		c.Auth.LockoutWindow = Duration(15 * time.Minute)
	}
	if c.Auth.BlocklistLookupTimeout == 0 {
		c.Auth.BlocklistLookupTimeout = Duration(time.Second)
	}
	if c.Auth.BlocklistSweepInterval == 0 {
		c.Auth.BlocklistSweepInterval = Duration(time.Minute)
	}
	if c.Auth.HasherPoolSize == 0 {
		c.Auth.HasherPoolSize = 4
	}
	if c.Live.HeartbeatInterval == 0 {
		c.Live.HeartbeatInterval = Duration(30 * time.Second)
	}
	if c.Live.PingTimeout == 0 {
		c.Live.PingTimeout = Duration(5 * time.Second)
	}
	if c.Live.MaxChannels == 0 {
		c.Live.MaxChannels = 10000
	}
	if c.Live.OutboundQueueSize == 0 {
		c.Live.OutboundQueueSize = 256
	}
	if c.Store.ConnectTimeout == 0 {
		c.Store.ConnectTimeout = Duration(3 * time.Second)
	}
	if c.Store.PollInterval == 0 {
		c.Store.PollInterval = Duration(2 * time.Second)
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks that every field the design calls out as a "hard
// startup failure" is actually present, joining every violation into a
// single error so operators see the whole picture at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Store.URI == "" {
		problems = append(problems, "store.uri is required")
	}
	if c.Store.Database == "" {
		problems = append(problems, "store.database is required")
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}
	if c.Live.Port < 0 || c.Live.Port > 65535 {
		problems = append(problems, "live.port must be between 0 and 65535")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// GetServerAddr returns the full HTTP server address.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetMetricsAddr returns the metrics server address.
func (c *Config) GetMetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Metrics.Port)
}

// GetLiveAddr returns the live-channel listener address. When Live.Port
// is zero the channel shares the HTTP server's port (sibling path, per
// spec.md §6: "a separate endpoint (/ws or sibling port)").
func (c *Config) GetLiveAddr() string {
	if c.Live.Port == 0 {
		return c.GetServerAddr()
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Live.Port)
}

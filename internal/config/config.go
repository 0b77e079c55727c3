// Package config loads primdiff configuration from YAML or TOML files.
//
// Files overlay Default(): any field a file leaves out keeps its default.
// The format is chosen by extension: .toml is TOML, anything else is YAML.
// Unknown keys are rejected in both formats.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/primdiff/internal/transport"
)

// Config is the full primdiff configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Producer ProducerConfig `yaml:"producer" toml:"producer"`
	Store    StoreConfig    `yaml:"store" toml:"store"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServerConfig configures the viewer HTTP server.
type ServerConfig struct {
	Bind               string        `yaml:"bind" toml:"bind"`
	Port               int           `yaml:"port" toml:"port"`
	StaticPaths        []string      `yaml:"static_paths" toml:"static_paths"`
	DisableStaticCache bool          `yaml:"disable_static_cache" toml:"disable_static_cache"`
	IndentResponses    bool          `yaml:"indent_responses" toml:"indent_responses"`
	LogRequests        bool          `yaml:"log_requests" toml:"log_requests"`
	LogRoutes          bool          `yaml:"log_routes" toml:"log_routes"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Bind, s.Port)
}

// ProducerConfig configures both ends of the frame transport.
type ProducerConfig struct {
	// URL is where the consumer polls.
	URL string `yaml:"url" toml:"url"`

	// Listen is where the produce command serves.
	Listen string `yaml:"listen" toml:"listen"`

	PollInterval     time.Duration           `yaml:"poll_interval" toml:"poll_interval"`
	HandshakeTimeout time.Duration           `yaml:"handshake_timeout" toml:"handshake_timeout"`
	Backoff          transport.BackoffConfig `yaml:"backoff" toml:"backoff"`
}

// StoreConfig configures frame recording. An empty Path disables it.
type StoreConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	Format     string `yaml:"format" toml:"format"`
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:               8181,
			StaticPaths:        []string{"static", "static/deps"},
			DisableStaticCache: true,
			IndentResponses:    true,
			LogRequests:        false,
			LogRoutes:          true,
			ShutdownTimeout:    5 * time.Second,
		},
		Producer: ProducerConfig{
			URL:              "ws://localhost:10001",
			Listen:           ":10001",
			PollInterval:     time.Second,
			HandshakeTimeout: 5 * time.Second,
			Backoff:          transport.DefaultBackoff(),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path over Default() and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = decodeTOML(data, &cfg)
	} else {
		err = decodeYAML(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(data []byte, cfg *Config) error {
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout cannot be negative"))
	}

	if u, err := url.Parse(c.Producer.URL); err != nil {
		errs = append(errs, fmt.Errorf("producer.url: %w", err))
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		errs = append(errs, fmt.Errorf("producer.url %q must use ws:// or wss://", c.Producer.URL))
	}
	if c.Producer.PollInterval <= 0 {
		errs = append(errs, errors.New("producer.poll_interval must be positive"))
	}
	if c.Producer.Backoff.InitialDelay < 0 || c.Producer.Backoff.MaxDelay < 0 {
		errs = append(errs, errors.New("producer.backoff delays cannot be negative"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/ooler/internal/protocol"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by Config.Backend.
const (
	BackendGoBLE  = "goble"
	BackendTinyGo = "tinygo"
)

var (
	backends      = []string{BackendGoBLE, BackendTinyGo}
	outputFormats = []string{"table", "json"}
)

// Config holds application configuration
type Config struct {
	LogLevel       string        `yaml:"log_level" json:"log_level" default:"info"`
	Backend        string        `yaml:"backend" json:"backend" default:"goble"`
	Profile        string        `yaml:"profile" json:"profile" default:"v1"`
	ProfileFile    string        `yaml:"profile_file" json:"profile_file"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout" default:"30s"`
	// IdleTimeout of zero uses the profile's disconnect delay; a negative
	// value keeps connections open until stopped.
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	OutputFormat string        `yaml:"output_format" json:"output_format" default:"table"`
	NATS         NATSConfig    `yaml:"nats" json:"nats"`
}

// NATSConfig enables publishing state changes when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url" json:"url"`
	Subject string `yaml:"subject" json:"subject" default:"ooler.state"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file. Keys missing from the file keep their
// defaults; unknown keys are an error. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	defaults.SetDefaults(cfg)
	return cfg, nil
}

// Validate checks enumerated values and that the selected profile exists.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if !slices.Contains(backends, c.Backend) {
		return fmt.Errorf("backend %q: must be one of %v", c.Backend, backends)
	}
	if !slices.Contains(outputFormats, c.OutputFormat) {
		return fmt.Errorf("output_format %q: must be one of %v", c.OutputFormat, outputFormats)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	if c.ProfileFile == "" {
		if _, err := protocol.Builtin(c.Profile); err != nil {
			return fmt.Errorf("profile: %w", err)
		}
	}
	return nil
}

// LoadProfile returns the profile file when one is configured, otherwise
// the named built-in profile.
func (c *Config) LoadProfile() (*protocol.Profile, error) {
	if c.ProfileFile != "" {
		return protocol.LoadProfile(c.ProfileFile)
	}
	return protocol.Builtin(c.Profile)
}

// ResolveIdleTimeout maps IdleTimeout onto the device option: zero takes
// the profile default, negative disables the idle disconnect.
func (c *Config) ResolveIdleTimeout(p *protocol.Profile) time.Duration {
	switch {
	case c.IdleTimeout < 0:
		return 0
	case c.IdleTimeout == 0 && p != nil:
		return p.DisconnectDelay()
	default:
		return c.IdleTimeout
	}
}

// NewLogger creates a configured logger instance. An unparsable level falls
// back to info.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}

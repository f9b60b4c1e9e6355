// Package config loads keyreply settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
	"github.com/0xcro3dile/keyreply-go/internal/domain/usecases"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "keyreply.yaml"

// Config holds all settings.
type Config struct {
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	Session   SessionConfig   `yaml:"session"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// KnowledgeConfig locates the knowledge base.
type KnowledgeConfig struct {
	Path       string `yaml:"path"` // empty: built-in set
	FallbackID string `yaml:"fallback_id"`
	Watch      bool   `yaml:"watch"`
}

// DeliveryConfig paces replies.
type DeliveryConfig struct {
	Delimiter    string        `yaml:"delimiter"`
	SegmentPause time.Duration `yaml:"segment_pause"`
}

// SessionConfig controls the reset and file acknowledgment.
type SessionConfig struct {
	ResetDelay    time.Duration `yaml:"reset_delay"`
	ResetTriggers []string      `yaml:"reset_triggers"`
	FileAck       string        `yaml:"file_ack"`
	StorePath     string        `yaml:"store_path"` // empty: in-memory
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Knowledge: KnowledgeConfig{
			FallbackID: entities.DefaultFallbackID,
		},
		Delivery: DeliveryConfig{
			Delimiter:    entities.DefaultDelimiter,
			SegmentPause: usecases.DefaultSegmentPause,
		},
		Session: SessionConfig{
			ResetDelay:    usecases.DefaultResetDelay,
			ResetTriggers: append([]string(nil), usecases.DefaultResetTriggers...),
			FileAck:       usecases.DefaultFileAck,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ApplyDefaults fills fields a file explicitly blanked.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Knowledge.FallbackID == "" {
		c.Knowledge.FallbackID = d.Knowledge.FallbackID
	}
	if c.Delivery.Delimiter == "" {
		c.Delivery.Delimiter = d.Delivery.Delimiter
	}
	if c.Session.ResetDelay == 0 {
		c.Session.ResetDelay = d.Session.ResetDelay
	}
	if c.Session.ResetTriggers == nil {
		c.Session.ResetTriggers = d.Session.ResetTriggers
	}
	if c.Session.FileAck == "" {
		c.Session.FileAck = d.Session.FileAck
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Delivery.Delimiter) == "" {
		errs = append(errs, errors.New("delivery.delimiter must not be blank"))
	}
	if c.Delivery.SegmentPause < 0 {
		errs = append(errs, errors.New("delivery.segment_pause must not be negative"))
	}
	if c.Session.ResetDelay < 0 {
		errs = append(errs, errors.New("session.reset_delay must not be negative"))
	}
	if !strings.Contains(c.Session.FileAck, "{file}") {
		errs = append(errs, errors.New("session.file_ack must contain {file}"))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("KEYREPLY_KNOWLEDGE"); path != "" {
		c.Knowledge.Path = path
	}
	if addr := os.Getenv("KEYREPLY_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("KEYREPLY_STORE"); path != "" {
		c.Session.StorePath = path
	}
	if level := os.Getenv("KEYREPLY_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Package rig holds the wiring and tuning of a bluedrive installation.
package rig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/gwillem/bluedrive/pkg/drive"
	"github.com/gwillem/bluedrive/pkg/hbridge"
	"github.com/gwillem/bluedrive/pkg/throttle"
)

const DefaultConfigFile = "bluedrive.json"

// EnvPrefix prefixes environment variables that override file settings.
const EnvPrefix = "BLUEDRIVE_"

var ErrInvalidConfig = errors.New("invalid config")

// ErrNoConfig is returned by Load when no path is given and the default
// config file does not exist. It matches os.ErrNotExist.
var ErrNoConfig = fmt.Errorf("no %s found: %w", DefaultConfigFile, os.ErrNotExist)

// Config holds the rig configuration
type Config struct {
	Link          LinkConfig     `json:"link" yaml:"link" envPrefix:"LINK_"`
	Board         hbridge.Config `json:"board" yaml:"board" envPrefix:"BOARD_"`
	NeutralOffset int            `json:"neutral_offset" yaml:"neutral_offset" env:"NEUTRAL_OFFSET"`
	MaxMagnitude  int            `json:"max_magnitude" yaml:"max_magnitude" env:"MAX_MAGNITUDE"`
	Hz            int            `json:"hz" yaml:"hz" env:"HZ"`
	Log           LogConfig      `json:"log" yaml:"log" envPrefix:"LOG_"`
}

// LinkConfig holds configuration for the phone link serial module
type LinkConfig struct {
	Port         string `json:"port" yaml:"port" env:"PORT"`
	BaudRate     int    `json:"baud" yaml:"baud" env:"BAUD"`
	StaleAfterMS int    `json:"stale_after_ms" yaml:"stale_after_ms" env:"STALE_AFTER_MS"`

	Protocol throttle.Protocol `json:"protocol" yaml:"protocol" envPrefix:"PROTOCOL_"`
}

// StaleAfter returns the reading age after which the link counts as lost.
// A negative setting disables the check.
func (l LinkConfig) StaleAfter() time.Duration {
	return time.Duration(l.StaleAfterMS) * time.Millisecond
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty" env:"LEVEL"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" env:"FORMAT"`
	Output string `json:"output,omitempty" yaml:"output,omitempty" env:"OUTPUT"`
}

// Default returns the configuration of the reference build: HM-10 at 9600
// baud, IN1/IN2/ENA on Arduino pins 10/9/11.
func Default() *Config {
	return &Config{
		Link: LinkConfig{
			BaudRate:     throttle.DefaultBaudRate,
			StaleAfterMS: int(throttle.DefaultStaleAfter / time.Millisecond),
			Protocol:     throttle.ArduinoBlue(),
		},
		Board:         hbridge.DefaultConfig(),
		NeutralOffset: drive.DefaultNeutral,
		MaxMagnitude:  drive.DefaultMaxMagnitude,
		Hz:            drive.DefaultHz,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Scale returns the throttle scale for this rig.
func (c *Config) Scale() drive.Scale {
	return drive.Scale{
		Neutral:      c.NeutralOffset,
		RawMax:       throttle.RawMax,
		MaxMagnitude: c.MaxMagnitude,
	}
}

// Validate checks ranges and pin wiring.
func (c *Config) Validate() error {
	var errs []error
	if c.NeutralOffset <= throttle.RawMin || c.NeutralOffset >= throttle.RawMax {
		errs = append(errs, fmt.Errorf("neutral_offset %d outside (%d, %d)", c.NeutralOffset, throttle.RawMin, throttle.RawMax))
	}
	if c.MaxMagnitude < 1 || c.MaxMagnitude > 255 {
		errs = append(errs, fmt.Errorf("max_magnitude %d outside [1, 255]", c.MaxMagnitude))
	}
	if c.Hz < 1 || c.Hz > 1000 {
		errs = append(errs, fmt.Errorf("hz %d outside [1, 1000]", c.Hz))
	}
	if c.Link.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("link baud %d must be positive", c.Link.BaudRate))
	}
	if err := c.Link.Protocol.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("link protocol: %w", err))
	}
	if err := c.Board.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("board: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Load loads path, or the default config file when path is empty.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadConfigFrom(path)
	}
	if !ConfigExists() {
		return nil, ErrNoConfig
	}
	return LoadConfig()
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file, on top of the
// defaults, then applies BLUEDRIVE_* environment overrides.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from BLUEDRIVE_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveAs saves configuration to path, or the default config file when path
// is empty.
func (c *Config) SaveAs(path string) error {
	if path == "" {
		return c.Save()
	}
	return c.SaveTo(path)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

package rig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/bluedrive/pkg/drive"
	"github.com/gwillem/bluedrive/pkg/hbridge"
	"github.com/gwillem/bluedrive/pkg/throttle"
)

const testJSON = `{
  "link": {"port": "/dev/cu.HMSoft", "baud": 9600},
  "board": {"backend": "firmata", "port": "/dev/ttyACM0", "pin_a": 10, "pin_b": 9, "enable": 11},
  "hz": 40
}`

const testYAML = `
link:
  port: /dev/ttyS0
board:
  backend: rpi
  pin_a: 23
  pin_b: 24
  enable: 18
  reversed: true
max_magnitude: 200
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigFrom_JSON(t *testing.T) {
	cfg, err := LoadConfigFrom(writeFile(t, "bluedrive.json", testJSON))
	require.NoError(t, err)

	assert.Equal(t, "/dev/cu.HMSoft", cfg.Link.Port)
	assert.Equal(t, 40, cfg.Hz)
	assert.Equal(t, hbridge.BackendFirmata, cfg.Board.Backend)

	// Unset fields keep their defaults.
	assert.Equal(t, 49, cfg.NeutralOffset)
	assert.Equal(t, 255, cfg.MaxMagnitude)
	assert.Equal(t, 500, cfg.Link.StaleAfterMS)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFrom_YAML(t *testing.T) {
	cfg, err := LoadConfigFrom(writeFile(t, "bluedrive.yaml", testYAML))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyS0", cfg.Link.Port)
	assert.Equal(t, hbridge.Config{Backend: hbridge.BackendRPi, PinA: 23, PinB: 24, Enable: 18, Reversed: true}, cfg.Board)
	assert.Equal(t, drive.Scale{Neutral: 49, RawMax: 99, MaxMagnitude: 200}, cfg.Scale())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFrom_EnvOverrides(t *testing.T) {
	t.Setenv("BLUEDRIVE_HZ", "20")
	t.Setenv("BLUEDRIVE_LINK_PORT", "/dev/rfcomm0")
	t.Setenv("BLUEDRIVE_BOARD_BACKEND", "sim")
	t.Setenv("BLUEDRIVE_LOG_LEVEL", "debug")

	cfg, err := LoadConfigFrom(writeFile(t, "bluedrive.json", testJSON))
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Hz)
	assert.Equal(t, "/dev/rfcomm0", cfg.Link.Port)
	assert.Equal(t, hbridge.BackendSim, cfg.Board.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Board.PinA)
}

func TestLoadConfigFrom_Errors(t *testing.T) {
	_, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfigFrom(writeFile(t, "broken.json", "{"))
	assert.Error(t, err)
}

func TestConfig_SaveTo(t *testing.T) {
	cfg := Default()
	cfg.Link.Port = "/dev/ttyUSB1"
	cfg.Board.Backend = hbridge.BackendSim
	cfg.NeutralOffset = 50

	for _, name := range []string{"out.json", "out.yml"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, cfg.SaveTo(path))

		loaded, err := LoadConfigFrom(path)
		require.NoError(t, err)
		assert.Equal(t, cfg, loaded, name)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Board.Port = "/dev/ttyACM0"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"neutral at bottom", func(c *Config) { c.NeutralOffset = 0 }},
		{"neutral at top", func(c *Config) { c.NeutralOffset = 99 }},
		{"magnitude zero", func(c *Config) { c.MaxMagnitude = 0 }},
		{"magnitude above 8 bit", func(c *Config) { c.MaxMagnitude = 256 }},
		{"hz zero", func(c *Config) { c.Hz = 0 }},
		{"baud zero", func(c *Config) { c.Link.BaudRate = 0 }},
		{"protocol code in payload range", func(c *Config) { c.Link.Protocol.Drive = 74 }},
		{"protocol codes shared", func(c *Config) { c.Link.Protocol.Slider = c.Link.Protocol.Drive }},
		{"duplicate pins", func(c *Config) { c.Board.PinB = c.Board.PinA }},
		{"unknown backend", func(c *Config) { c.Board.Backend = "gpiod" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoad_DefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	assert.False(t, ConfigExists())
	_, err := Load("")
	assert.ErrorIs(t, err, ErrNoConfig)
	assert.ErrorIs(t, err, os.ErrNotExist)

	cfg := Default()
	cfg.Link.Port = "/dev/cu.HMSoft"
	require.NoError(t, cfg.SaveAs(""))
	assert.True(t, ConfigExists())
	assert.FileExists(t, DefaultConfigFile)

	loaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_ExplicitPath(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "rig.yaml")
	cfg := Default()
	cfg.Hz = 25
	require.NoError(t, cfg.SaveAs(path))
	assert.False(t, ConfigExists(), "explicit path must not write the default file")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, loaded.Hz)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, ErrNoConfig)
}

func TestLoadConfigFrom_Protocol(t *testing.T) {
	cfg, err := LoadConfigFrom(writeFile(t, "bluedrive.json", testJSON))
	require.NoError(t, err)
	assert.Equal(t, throttle.ArduinoBlue(), cfg.Link.Protocol, "missing protocol keeps the app default")

	t.Setenv("BLUEDRIVE_LINK_PROTOCOL_DRIVE", "246")
	t.Setenv("BLUEDRIVE_LINK_PROTOCOL_STEERING_FIRST", "true")
	cfg, err = LoadConfigFrom(writeFile(t, "bluedrive.yaml", "link:\n  protocol:\n    end: 241\n"))
	require.NoError(t, err)

	want := throttle.ArduinoBlue()
	want.Drive = 246
	want.End = 241
	want.SteeringFirst = true
	assert.Equal(t, want, cfg.Link.Protocol)
}

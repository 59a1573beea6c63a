// Package config loads jscore session settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Log formats accepted by LogConfig.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config is the root of a session configuration file.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Jobs   JobsConfig   `yaml:"jobs"`
	Memory MemoryConfig `yaml:"memory"`
	Realm  RealmConfig  `yaml:"realm"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// JobsConfig bounds how long the microtask queue may keep producing work.
type JobsConfig struct {
	MaxRounds int `yaml:"maxRounds"`
}

// MemoryConfig caps ArrayBuffer allocations, including maxByteLength
// reservations of resizable buffers.
type MemoryConfig struct {
	MaxByteLength int `yaml:"maxByteLength"`
}

type RealmConfig struct {
	// Strict makes failed assignments through the embedding API throw.
	Strict bool `yaml:"strict"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: FormatConsole},
		Jobs:   JobsConfig{MaxRounds: 1000},
		Memory: MemoryConfig{MaxByteLength: 1 << 30},
		Realm:  RealmConfig{Strict: true},
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Jobs.MaxRounds <= 0 {
		return fmt.Errorf("jobs.maxRounds must be positive, got %d", c.Jobs.MaxRounds)
	}
	if c.Memory.MaxByteLength <= 0 {
		return fmt.Errorf("memory.maxByteLength must be positive, got %d", c.Memory.MaxByteLength)
	}
	return nil
}

// Marshal encodes the configuration back to YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

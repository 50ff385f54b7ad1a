// Package config loads the tsexpand YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up relative to the project root.
const DefaultPath = ".tsexpand.yaml"

var validate = validator.New()

// Config mirrors the editor extension options plus the engine knobs.
type Config struct {
	Port                  int      `yaml:"port" validate:"min=0,max=65535"`
	CompactOptionalType   bool     `yaml:"compactOptionalType"`
	CompactPropertyLength int      `yaml:"compactPropertyLength" validate:"min=0"`
	DirectExpandArray     bool     `yaml:"directExpandArray"`
	Languages             []string `yaml:"validate" validate:"min=1,dive,oneof=typescript typescriptreact"`
	SkipUnresolved        bool     `yaml:"skipUnresolved"`
	StrictExports         bool     `yaml:"strictExports"`

	Render RenderConfig `yaml:"render"`
	Index  IndexConfig  `yaml:"index"`
	Log    LogConfig    `yaml:"log"`
}

type RenderConfig struct {
	MaxDepth int `yaml:"maxDepth" validate:"min=1"`
	MaxCalls int `yaml:"maxCalls" validate:"min=1"`
}

type IndexConfig struct {
	// Path is relative to the project root unless absolute.
	Path string `yaml:"path" validate:"required"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Port:              3000,
		DirectExpandArray: true,
		Languages:         []string{"typescript", "typescriptreact"},
		SkipUnresolved:    true,
		Render:            RenderConfig{MaxDepth: 3, MaxCalls: 100},
		Index:             IndexConfig{Path: filepath.Join(".tsexpand", "index.db")},
		Log:               LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// IndexPath returns the index database path resolved against root.
func (c Config) IndexPath(root string) string {
	if filepath.IsAbs(c.Index.Path) {
		return c.Index.Path
	}
	return filepath.Join(root, c.Index.Path)
}

// Write stores c at path as YAML, creating parent directories.
func Write(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

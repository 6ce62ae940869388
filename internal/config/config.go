// Package config provides the YAML configuration for spider-pca.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"spider-pca/internal/analysis"
	"spider-pca/internal/legs"
	"spider-pca/internal/loader"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	appDir     = "spider-pca"
	configFile = "config.yaml"
)

var validate = validator.New()

// Config is the full configuration file.
type Config struct {
	Anatomy  legs.Anatomy     `yaml:"anatomy"`
	Loader   loader.Options   `yaml:"loader"`
	Analysis analysis.Options `yaml:"analysis"`
}

// Default returns the eight-legged, four-keypoint setup with legs pooled as
// coxa-centered samples.
func Default() Config {
	return Config{
		Anatomy:  legs.DefaultAnatomy(),
		Loader:   loader.DefaultOptions(),
		Analysis: analysis.DefaultOptions(),
	}
}

// DefaultPath returns ~/.config/spider-pca/config.yaml or the platform
// equivalent.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir, configFile)
}

// Load reads the configuration at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating its directory.
func (c Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks field constraints, then the cross-field anatomy rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return c.Anatomy.Validate()
}

// Package config loads and validates the engine configuration from YAML.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the engine. Zero values are filled from
// Default before validation, so a partial YAML file overrides only what
// it names.
type Config struct {
	// Reward evaluation.
	FeeRateBps           float64 `yaml:"fee_rate_bps" validate:"gte=0"`
	LambdaDrawdown       float64 `yaml:"lambda_drawdown" validate:"gte=0"`
	LambdaTurnover       float64 `yaml:"lambda_turnover" validate:"gte=0"`
	AnnualizationFactor  float64 `yaml:"annualization_factor" validate:"gt=0"`

	// Walk-forward windows.
	TrainWindowSize int `yaml:"train_window_size" validate:"gt=0"`
	TestWindowSize  int `yaml:"test_window_size" validate:"gt=0"`
	MinBars         int `yaml:"min_bars" validate:"gte=2"`

	// Experience retention and backups.
	MaxTrialsRetained   int    `yaml:"max_trials_retained" validate:"gte=0"`
	BackupEveryNAppends int    `yaml:"backup_every_n_appends" validate:"gte=0"`
	BackupsToKeep       int    `yaml:"backups_to_keep" validate:"gte=0"`
	MemoryDir           string `yaml:"memory_dir" validate:"required"`
}

// Default returns the configuration the engine runs with when no file
// overrides it.
func Default() Config {
	return Config{
		FeeRateBps:          1.5,
		LambdaDrawdown:      0.5,
		LambdaTurnover:      0.1,
		AnnualizationFactor: 252,
		TrainWindowSize:     1000,
		TestWindowSize:      250,
		MinBars:             50,
		MaxTrialsRetained:   10000,
		BackupEveryNAppends: 100,
		BackupsToKeep:       10,
		MemoryDir:           "./memory",
	}
}

// Load reads a YAML file over the defaults and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field invariants.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.TestWindowSize > c.TrainWindowSize {
		return fmt.Errorf("invalid config: test_window_size (%d) exceeds train_window_size (%d)",
			c.TestWindowSize, c.TrainWindowSize)
	}
	return nil
}

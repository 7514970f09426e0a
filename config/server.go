package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds process-wide settings, loaded from a YAML file.
type ServerConfig struct {
	Port    string        `yaml:"port"`
	DataDir string        `yaml:"data_dir"`
	Logging LoggingConfig `yaml:"logging"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Decode  DecodeConfig  `yaml:"decode"`

	// MaxRequestBytes limits request bodies accepted by the HTTP API.
	MaxRequestBytes int64 `yaml:"max_request_bytes"`

	// Defaults are applied to dictionaries created without explicit settings.
	Defaults DictionarySettings `yaml:"defaults"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// JobsConfig configures the background job manager.
type JobsConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

// DecodeConfig configures request-level decoding.
type DecodeConfig struct {
	// BatchConcurrency bounds parallel decodes inside one batch request.
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// DefaultServerConfig returns the configuration used when no file is given.
func DefaultServerConfig() ServerConfig {
	cfg := ServerConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields.
func (cfg *ServerConfig) ApplyDefaults() {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./pinyin_data"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Jobs.MaxWorkers <= 0 {
		cfg.Jobs.MaxWorkers = 2
	}
	if cfg.Decode.BatchConcurrency <= 0 {
		cfg.Decode.BatchConcurrency = 4
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = 32 << 20
	}
}

// LoadServerConfig reads a YAML configuration file. A missing file yields
// the defaults.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := ServerConfig{}
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	cfg.ApplyDefaults()
	if cfg.Defaults.BigramLambda != nil {
		if msg := ValidateLambda(*cfg.Defaults.BigramLambda); msg != "" {
			return cfg, fmt.Errorf("invalid defaults in %s: %s", path, msg)
		}
	}
	return cfg, nil
}

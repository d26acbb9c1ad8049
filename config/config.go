// Package config loads server configuration from an optional YAML or
// TOML file with STRATUS_* environment variables layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			WorkerPoolSize:  10,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Registration: RegistrationConfig{
			AutoRegister: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:         false,
			DefaultRPS:      100,
			DefaultBurst:    200,
			CleanupInterval: Duration(5 * time.Minute),
		},
		Metrics: MetricsConfig{
			Enabled:        true,
			Port:           9090,
			Path:           "/metrics",
			LatencyBuckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		Health: HealthConfig{
			Enabled:  true,
			Path:     "/healthz",
			Interval: Duration(10 * time.Second),
		},
		Serialization: "json",
	}
}

// Load builds the configuration in layers: defaults, then the file at
// path if it exists (YAML, or TOML when the extension is .toml), then
// environment overrides. A missing file is not an error; the defaults
// simply apply. A .env file in the working directory is picked up
// before the environment is read.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env and defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := unmarshalFile(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func unmarshalFile(path string, data []byte, cfg *Config) error {
	if filepath.Ext(path) == ".toml" {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.WorkerPoolSize < 0 {
		return fmt.Errorf("invalid worker pool size: %d", c.Server.WorkerPoolSize)
	}

	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		return fmt.Errorf("require_api_key is set but no api_keys are configured")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.DefaultRPS <= 0 {
			return fmt.Errorf("invalid rate limit rps: %d", c.RateLimit.DefaultRPS)
		}
		if c.RateLimit.DefaultBurst <= 0 {
			return fmt.Errorf("invalid rate limit burst: %d", c.RateLimit.DefaultBurst)
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
		}
		if c.Metrics.Path == "" {
			return fmt.Errorf("metrics path cannot be empty")
		}
	}

	if c.Health.Enabled {
		if c.Health.Path == "" {
			return fmt.Errorf("health path cannot be empty")
		}
		if c.Health.Interval <= 0 {
			return fmt.Errorf("invalid health check interval: %s", c.Health.Interval)
		}
	}

	switch c.Serialization {
	case "", "json", "msgpack", "messagepack":
	default:
		return fmt.Errorf("unknown serialization format: %q", c.Serialization)
	}

	return nil
}

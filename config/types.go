package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so every configuration layer accepts Go
// duration strings like "30s"; plain time.Duration would only take
// integer nanoseconds from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(raw))
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

type Config struct {
	Server        ServerConfig       `yaml:"server" toml:"server"`
	Security      SecurityConfig     `yaml:"security" toml:"security"`
	Registration  RegistrationConfig `yaml:"registration" toml:"registration"`
	RateLimit     RateLimitConfig    `yaml:"rate_limit" toml:"rate_limit"`
	Metrics       MetricsConfig      `yaml:"metrics" toml:"metrics"`
	Health        HealthConfig       `yaml:"health" toml:"health"`
	Serialization string             `yaml:"serialization" toml:"serialization" env:"STRATUS_SERIALIZATION"`
}

type ServerConfig struct {
	Port            int      `yaml:"port" toml:"port" env:"STRATUS_PORT"`
	Host            string   `yaml:"host" toml:"host" env:"STRATUS_HOST"`
	WorkerPoolSize  int      `yaml:"worker_pool_size" toml:"worker_pool_size" env:"STRATUS_WORKER_POOL_SIZE"`
	ReadTimeout     Duration `yaml:"read_timeout" toml:"read_timeout" env:"STRATUS_READ_TIMEOUT"`
	WriteTimeout    Duration `yaml:"write_timeout" toml:"write_timeout" env:"STRATUS_WRITE_TIMEOUT"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" env:"STRATUS_SHUTDOWN_TIMEOUT"`
	Verbose         bool     `yaml:"verbose" toml:"verbose" env:"STRATUS_VERBOSE"`
}

type SecurityConfig struct {
	RequireAPIKey bool     `yaml:"require_api_key" toml:"require_api_key" env:"STRATUS_REQUIRE_API_KEY"`
	APIKeys       []string `yaml:"api_keys" toml:"api_keys" env:"STRATUS_API_KEYS"`
}

type RegistrationConfig struct {
	AutoRegister bool   `yaml:"auto_register" toml:"auto_register" env:"STRATUS_AUTO_REGISTER"`
	Prefix       string `yaml:"prefix" toml:"prefix" env:"STRATUS_REGISTRATION_PREFIX"`
}

type RateLimitConfig struct {
	Enabled         bool     `yaml:"enabled" toml:"enabled" env:"STRATUS_RATE_LIMIT_ENABLED"`
	DefaultRPS      int      `yaml:"default_rps" toml:"default_rps" env:"STRATUS_RATE_LIMIT_RPS"`
	DefaultBurst    int      `yaml:"default_burst" toml:"default_burst" env:"STRATUS_RATE_LIMIT_BURST"`
	CleanupInterval Duration `yaml:"cleanup_interval" toml:"cleanup_interval" env:"STRATUS_RATE_LIMIT_CLEANUP_INTERVAL"`
}

type MetricsConfig struct {
	Enabled        bool      `yaml:"enabled" toml:"enabled" env:"STRATUS_METRICS_ENABLED"`
	Port           int       `yaml:"port" toml:"port" env:"STRATUS_METRICS_PORT"`
	Path           string    `yaml:"path" toml:"path" env:"STRATUS_METRICS_PATH"`
	LatencyBuckets []float64 `yaml:"latency_buckets,omitempty" toml:"latency_buckets"`
}

type HealthConfig struct {
	Enabled  bool     `yaml:"enabled" toml:"enabled" env:"STRATUS_HEALTH_ENABLED"`
	Path     string   `yaml:"path" toml:"path" env:"STRATUS_HEALTH_PATH"`
	Interval Duration `yaml:"interval" toml:"interval" env:"STRATUS_HEALTH_INTERVAL"`
}

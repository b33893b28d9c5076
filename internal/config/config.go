// Package config loads this service's configuration from, in ascending
// priority, built-in defaults, an optional YAML file, and environment
// variables, using Koanf as the layering engine.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/lxp-recflow/engine/internal/recommend"
)

// DefaultConfigPaths lists where a config file is searched for, in order.
var DefaultConfigPaths = []string{"config.yaml", "config.yml", "/etc/recflow/config.yaml"}

// ConfigPathEnvVar overrides the search list with a single explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

// PipelineConfig holds the pipeline-tunable defaults applied to a trigger
// request that doesn't specify them explicitly.
type PipelineConfig struct {
	DefaultTopK    int       `koanf:"default_top_k"`
	ChunkSize      int       `koanf:"chunk_size"`
	PenaltyWeights []float64 `koanf:"penalty_weights"`
}

// S3Config describes the S3-compatible object store holding input and
// output datasets.
type S3Config struct {
	Endpoint        string `koanf:"endpoint"`
	Region          string `koanf:"region"`
	Bucket          string `koanf:"bucket"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	UsePathStyle    bool   `koanf:"use_path_style"`
}

// CallbackConfig tunes the outbound completion-callback client.
type CallbackConfig struct {
	Timeout       time.Duration `koanf:"timeout"`
	MaxRetries    int           `koanf:"max_retries"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
	BreakerTrips  uint32        `koanf:"breaker_trips"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	RateBurst     int           `koanf:"rate_burst"`
}

// JobQueueConfig selects and tunes the async dispatch backend.
type JobQueueConfig struct {
	Backend     string `koanf:"backend"` // "gochannel" or "nats"
	NATSURL     string `koanf:"nats_url"`
	Subscribers int    `koanf:"subscribers"`
}

// IdempotencyConfig tunes the batch_id dedup store.
type IdempotencyConfig struct {
	Path string        `koanf:"path"`
	TTL  time.Duration `koanf:"ttl"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig mirrors internal/logging.Config with koanf tags.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Config is the fully assembled, validated configuration for the service.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Pipeline    PipelineConfig    `koanf:"pipeline"`
	S3          S3Config          `koanf:"s3"`
	Callback    CallbackConfig    `koanf:"callback"`
	JobQueue    JobQueueConfig    `koanf:"jobqueue"`
	Idempotency IdempotencyConfig `koanf:"idempotency"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Pipeline: PipelineConfig{
			DefaultTopK:    recommend.DefaultK,
			ChunkSize:      recommend.DefaultChunkSize,
			PenaltyWeights: recommend.DefaultPenaltyWeights,
		},
		S3: S3Config{
			Region:       "auto",
			UsePathStyle: true,
		},
		Callback: CallbackConfig{
			Timeout:       10 * time.Second,
			MaxRetries:    3,
			RetryDelay:    2 * time.Second,
			BreakerTrips:  5,
			RatePerSecond: 20,
			RateBurst:     5,
		},
		JobQueue: JobQueueConfig{
			Backend:     "gochannel",
			NATSURL:     "nats://127.0.0.1:4222",
			Subscribers: 4,
		},
		Idempotency: IdempotencyConfig{
			Path: "/data/idempotency",
			TTL:  24 * time.Hour,
		},
	}
}

// Load assembles configuration from defaults, an optional YAML file, and
// environment variables (highest priority), in that order.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("RECFLOW_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "RECFLOW_")
		return strings.Replace(strings.ToLower(s), "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks invariants Koanf's type coercion can't enforce on its own.
func (c *Config) Validate() error {
	if c.Pipeline.DefaultTopK <= 0 {
		return fmt.Errorf("pipeline.default_top_k must be > 0")
	}
	if c.Pipeline.ChunkSize <= 0 {
		return fmt.Errorf("pipeline.chunk_size must be > 0")
	}
	if c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required")
	}
	switch c.JobQueue.Backend {
	case "gochannel", "nats":
	default:
		return fmt.Errorf("jobqueue.backend must be %q or %q, got %q", "gochannel", "nats", c.JobQueue.Backend)
	}
	return nil
}

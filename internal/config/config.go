package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all weatherproxy settings, populated from environment variables.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Upstream archive API settings.
	UpstreamBaseURL string        `envconfig:"UPSTREAM_BASE_URL" default:"https://archive-api.open-meteo.com"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"5s"`
	UpstreamRPS     float64       `envconfig:"UPSTREAM_RPS" default:"8"`
	UpstreamBurst   int           `envconfig:"UPSTREAM_BURST" default:"4"`

	// Fetcher settings. Batches bound the span of a single upstream
	// request; concurrency bounds parallel in-flight batches.
	FetchBatchSize   int `envconfig:"FETCH_BATCH_SIZE" default:"30"`
	FetchConcurrency int `envconfig:"FETCH_CONCURRENCY" default:"3"`

	// Observation cache settings.
	CacheSize int           `envconfig:"CACHE_SIZE" default:"1000"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"6h"`

	// Optional Kafka sink for enriched analysis rows.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"order-weather-enriched"`
}

// Load reads configuration from environment variables, applying defaults
// where unset, then validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("UPSTREAM_TIMEOUT must be positive")
	}
	if u, err := url.Parse(c.UpstreamBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid UPSTREAM_BASE_URL %q", c.UpstreamBaseURL)
	}
	if c.UpstreamRPS <= 0 {
		return errors.New("UPSTREAM_RPS must be positive")
	}
	if c.FetchBatchSize <= 0 {
		return errors.New("FETCH_BATCH_SIZE must be positive")
	}
	if c.FetchConcurrency <= 0 {
		return errors.New("FETCH_CONCURRENCY must be positive")
	}
	if c.CacheSize <= 0 {
		return errors.New("CACHE_SIZE must be positive")
	}
	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// KafkaEnabled reports whether an enriched-row sink is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

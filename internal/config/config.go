package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "5s" or "10m"
// parse with time.ParseDuration semantics.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Feed      FeedConfig      `yaml:"feed"`
	Database  DatabaseConfig  `yaml:"database"`
	Stats     StatsConfig     `yaml:"stats"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Nats      NatsConfig      `yaml:"nats"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	HTTPPort   int    `yaml:"http_port"`
	LogLevel   string `yaml:"log_level"`
}

// FeedConfig holds master-server feed settings
type FeedConfig struct {
	URL          string   `yaml:"url"`
	PollInterval Duration `yaml:"poll_interval"`
	Timeout      Duration `yaml:"timeout"`
	UserAgent    string   `yaml:"user_agent"`
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StatsConfig holds match-tracking settings
type StatsConfig struct {
	// Timezone decides when the daily counters roll over
	Timezone string `yaml:"timezone"`
	// FinishThreshold is the minimum games played for a disappeared
	// match to count as finished rather than lobby noise
	FinishThreshold int `yaml:"finish_threshold"`
	// Retention is how long terminal registry records are kept around
	// for idempotency checks before eviction
	Retention   Duration `yaml:"retention"`
	HistoryDays int      `yaml:"history_days"`
}

// BroadcastConfig holds fan-out settings
type BroadcastConfig struct {
	// QueueSize is the per-subscriber snapshot buffer; when it is full
	// the oldest buffered snapshot is dropped for the newest
	QueueSize int `yaml:"queue_size"`
}

// NatsConfig holds optional NATS publishing settings. Publishing is
// enabled when URL is set, or when Embedded is true.
type NatsConfig struct {
	URL      string `yaml:"url"`
	Subject  string `yaml:"subject"`
	Embedded bool   `yaml:"embedded"`
	Port     int    `yaml:"port"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in every unset field
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "127.0.0.1"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Feed.PollInterval.Duration == 0 {
		cfg.Feed.PollInterval.Duration = 5 * time.Second
	}
	if cfg.Feed.Timeout.Duration == 0 {
		cfg.Feed.Timeout.Duration = 10 * time.Second
	}
	if cfg.Feed.UserAgent == "" {
		cfg.Feed.UserAgent = "courtside/1.0"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/courtside/courtside.db"
	}
	if cfg.Stats.Timezone == "" {
		cfg.Stats.Timezone = "Europe/Rome"
	}
	if cfg.Stats.FinishThreshold == 0 {
		cfg.Stats.FinishThreshold = 5
	}
	if cfg.Stats.Retention.Duration == 0 {
		cfg.Stats.Retention.Duration = 10 * time.Minute
	}
	if cfg.Stats.HistoryDays == 0 {
		cfg.Stats.HistoryDays = 7
	}
	if cfg.Broadcast.QueueSize == 0 {
		cfg.Broadcast.QueueSize = 16
	}
	if cfg.Nats.Subject == "" {
		cfg.Nats.Subject = "courtside.snapshot"
	}
	if cfg.Nats.Port == 0 {
		cfg.Nats.Port = 4222
	}
}

// Validate checks settings that serve cannot run without
func (cfg *Config) Validate() error {
	if cfg.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	return nil
}

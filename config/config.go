package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"presence-tracker-backend/internal/store"
)

// Config represents the overall application configuration.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Capture   CaptureConfig        `yaml:"capture"`
	Locations []store.LocationSeed `yaml:"locations"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	AllowedOrigin   string  `yaml:"allowed_origin"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// CaptureConfig holds the scan-station configuration.
type CaptureConfig struct {
	IngestURL       string        `yaml:"ingest_url"`
	CooldownSeconds int           `yaml:"cooldown_seconds"`
	Cooldown        time.Duration `yaml:"-"` // Ignored by YAML parser
	LocationID      int64         `yaml:"location_id"`
	Action          string        `yaml:"action"`
	Operator        string        `yaml:"operator"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Capture.CooldownSeconds <= 0 {
		log.Printf("capture.cooldown_seconds is not set or invalid; defaulting to 2")
		cfg.Capture.CooldownSeconds = 2
	}
	cfg.Capture.Cooldown = time.Duration(cfg.Capture.CooldownSeconds) * time.Second

	if cfg.Capture.Action == "" {
		cfg.Capture.Action = string(store.ActionEntry)
	}

	return &cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, read from the environment.
type Config struct {
	ListenAddr string `env:"LOGO_LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOGO_LOG_LEVEL" envDefault:"info"`

	Upstream UpstreamConfig
	Logo     LogoConfig
	Admin    AdminConfig
	Images   ImageConfig
	Storage  StorageConfig
}

type UpstreamConfig struct {
	BaseURL      string        `env:"LOGO_UPSTREAM_BASE_URL"`
	RPS          float64       `env:"LOGO_UPSTREAM_RPS" envDefault:"20"`
	Burst        int           `env:"LOGO_UPSTREAM_BURST" envDefault:"8"`
	FetchTimeout time.Duration `env:"LOGO_FETCH_TIMEOUT" envDefault:"5s"`
}

type LogoConfig struct {
	CacheTTL             time.Duration `env:"LOGO_CACHE_TTL" envDefault:"1h"`
	FailureCooldown      time.Duration `env:"LOGO_FAILURE_COOLDOWN" envDefault:"2m"`
	SweepInterval        time.Duration `env:"LOGO_SWEEP_INTERVAL" envDefault:"5m"`
	PreloadConcurrency   int           `env:"LOGO_PRELOAD_CONCURRENCY" envDefault:"4"`
	WebPSupported        bool          `env:"LOGO_WEBP_SUPPORTED" envDefault:"true"`
	CooldownClientErrors bool          `env:"LOGO_COOLDOWN_CLIENT_ERRORS" envDefault:"true"`
}

// AdminConfig guards the cache-mutating routes.
type AdminConfig struct {
	AccessControl bool     `env:"LOGO_ADMIN_ACCESS_CONTROL" envDefault:"false"`
	AllowedIPs    []string `env:"LOGO_ADMIN_ALLOWED_IPS" envSeparator:"," envDefault:"127.0.0.1,::1"`
}

type ImageConfig struct {
	CacheTTL      time.Duration `env:"LOGO_IMAGE_CACHE_TTL" envDefault:"5m"`
	CacheMaxBytes int64         `env:"LOGO_IMAGE_CACHE_MAX_BYTES" envDefault:"104857600"`
	Extensions    []string      `env:"LOGO_IMAGE_EXTENSIONS" envSeparator:"," envDefault:".png,.webp,.svg,.jpg,.jpeg"`
}

type StorageConfig struct {
	Endpoint        string `env:"S3_ENDPOINT" envDefault:"localhost:9000"`
	AccessKeyID     string `env:"S3_ACCESS_KEY" envDefault:"minioadmin"`
	SecretAccessKey string `env:"S3_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL          bool   `env:"S3_USE_SSL" envDefault:"false"`
	Bucket          string `env:"S3_BUCKET" envDefault:"logos"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads and validates the process configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports missing or out-of-range settings.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		errs = append(errs, errors.New("LOGO_UPSTREAM_BASE_URL is required"))
	}
	if c.Upstream.FetchTimeout <= 0 {
		errs = append(errs, errors.New("LOGO_FETCH_TIMEOUT must be positive"))
	}
	if c.Logo.PreloadConcurrency < 1 {
		errs = append(errs, errors.New("LOGO_PRELOAD_CONCURRENCY must be at least 1"))
	}
	if c.Logo.SweepInterval <= 0 {
		errs = append(errs, errors.New("LOGO_SWEEP_INTERVAL must be positive"))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOGO_LOG_LEVEL %q", name)
	}
	return level, nil
}

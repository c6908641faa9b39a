package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Loading presentation modes.
const (
	ModeBridge = "bridge"
	ModePaint  = "paint"
)

// Config holds all host configuration.
type Config struct {
	Content      ContentConfig
	Retry        RetryConfig
	Presentation PresentationConfig
	Server       ServerConfig
	Logging      LogConfig
	RateLimit    RateLimitConfig
}

// ContentConfig describes the embedded content entry point.
type ContentConfig struct {
	URL            string        `envconfig:"CONTENT_URL" default:"https://bouncengi.net"`
	Timeout        time.Duration `envconfig:"CONTENT_TIMEOUT" default:"15s"`
	AllowedDomains []string      `envconfig:"CONTENT_ALLOWED_DOMAINS" default:"googlesyndication.com,doubleclick.net,google.com,gstatic.com"`
	CompatScript   string        `envconfig:"CONTENT_COMPAT_SCRIPT"`
}

// RetryConfig holds the provisional failure retry budget.
type RetryConfig struct {
	MaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	BackoffUnit time.Duration `envconfig:"RETRY_BACKOFF_UNIT" default:"1s"`
}

// PresentationConfig holds native loading surface behavior.
type PresentationConfig struct {
	Mode              string        `envconfig:"LOADING_MODE" default:"bridge"`
	DOMReadyGrace     time.Duration `envconfig:"LOADING_DOM_READY_GRACE" default:"100ms"`
	FallbackHideDelay time.Duration `envconfig:"LOADING_FALLBACK_HIDE_DELAY" default:"100ms"`
	SafetyTimeout     time.Duration `envconfig:"LOADING_SAFETY_TIMEOUT" default:"0s"`
	Animated          bool          `envconfig:"LOADING_ANIMATED" default:"true"`
}

// ServerConfig holds the gateway HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig bounds inbound shell messages per connection.
type RateLimitConfig struct {
	MessagesPerSecond int  `envconfig:"RATE_LIMIT_MPS" default:"200"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"400"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Content: ContentConfig{
			URL:     "https://bouncengi.net",
			Timeout: 15 * time.Second,
			AllowedDomains: []string{
				"googlesyndication.com",
				"doubleclick.net",
				"google.com",
				"gstatic.com",
			},
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BackoffUnit: time.Second,
		},
		Presentation: PresentationConfig{
			Mode:              ModeBridge,
			DOMReadyGrace:     100 * time.Millisecond,
			FallbackHideDelay: 100 * time.Millisecond,
			Animated:          true,
		},
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			MessagesPerSecond: 200,
			Burst:             400,
			Enabled:           true,
		},
	}
}

// Validate rejects configurations the controller cannot run with.
func (c *Config) Validate() error {
	if c.Content.URL == "" {
		return fmt.Errorf("content url is required")
	}
	if c.Content.Timeout <= 0 {
		return fmt.Errorf("content timeout must be positive, got %s", c.Content.Timeout)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry max attempts must be >= 0, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BackoffUnit < 0 {
		return fmt.Errorf("retry backoff unit must be >= 0, got %s", c.Retry.BackoffUnit)
	}
	switch c.Presentation.Mode {
	case ModeBridge, ModePaint:
	default:
		return fmt.Errorf("unknown loading mode %q", c.Presentation.Mode)
	}
	if c.Presentation.SafetyTimeout < 0 {
		return fmt.Errorf("loading safety timeout must be >= 0, got %s", c.Presentation.SafetyTimeout)
	}
	return nil
}

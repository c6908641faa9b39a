package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors Config for profile files. Pointer fields distinguish
// "absent" from zero so a profile only overrides what it names.
type fileConfig struct {
	Content struct {
		URL            *string  `toml:"url" yaml:"url"`
		TimeoutMS      *int64   `toml:"timeout_ms" yaml:"timeout_ms"`
		AllowedDomains []string `toml:"allowed_domains" yaml:"allowed_domains"`
		CompatScript   *string  `toml:"compat_script" yaml:"compat_script"`
	} `toml:"content" yaml:"content"`
	Retry struct {
		MaxAttempts   *int   `toml:"max_attempts" yaml:"max_attempts"`
		BackoffUnitMS *int64 `toml:"backoff_unit_ms" yaml:"backoff_unit_ms"`
	} `toml:"retry" yaml:"retry"`
	Presentation struct {
		Mode                *string `toml:"mode" yaml:"mode"`
		DOMReadyGraceMS     *int64  `toml:"dom_ready_grace_ms" yaml:"dom_ready_grace_ms"`
		FallbackHideDelayMS *int64  `toml:"fallback_hide_delay_ms" yaml:"fallback_hide_delay_ms"`
		SafetyTimeoutMS     *int64  `toml:"safety_timeout_ms" yaml:"safety_timeout_ms"`
		Animated            *bool   `toml:"animated" yaml:"animated"`
	} `toml:"presentation" yaml:"presentation"`
	Server struct {
		Port *string `toml:"port" yaml:"port"`
		Host *string `toml:"host" yaml:"host"`
	} `toml:"server" yaml:"server"`
	Logging struct {
		Level       *string `toml:"level" yaml:"level"`
		Development *bool   `toml:"development" yaml:"development"`
	} `toml:"logging" yaml:"logging"`
}

// LoadFile reads a .toml, .yaml or .yml host profile and applies it over
// Default().
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg := Default()
	fc.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (fc *fileConfig) apply(cfg *Config) {
	setString(&cfg.Content.URL, fc.Content.URL)
	setMillis(&cfg.Content.Timeout, fc.Content.TimeoutMS)
	if fc.Content.AllowedDomains != nil {
		cfg.Content.AllowedDomains = fc.Content.AllowedDomains
	}
	setString(&cfg.Content.CompatScript, fc.Content.CompatScript)

	if fc.Retry.MaxAttempts != nil {
		cfg.Retry.MaxAttempts = *fc.Retry.MaxAttempts
	}
	setMillis(&cfg.Retry.BackoffUnit, fc.Retry.BackoffUnitMS)

	setString(&cfg.Presentation.Mode, fc.Presentation.Mode)
	setMillis(&cfg.Presentation.DOMReadyGrace, fc.Presentation.DOMReadyGraceMS)
	setMillis(&cfg.Presentation.FallbackHideDelay, fc.Presentation.FallbackHideDelayMS)
	setMillis(&cfg.Presentation.SafetyTimeout, fc.Presentation.SafetyTimeoutMS)
	setBool(&cfg.Presentation.Animated, fc.Presentation.Animated)

	setString(&cfg.Server.Port, fc.Server.Port)
	setString(&cfg.Server.Host, fc.Server.Host)

	setString(&cfg.Logging.Level, fc.Logging.Level)
	setBool(&cfg.Logging.Development, fc.Logging.Development)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setMillis(dst *time.Duration, ms *int64) {
	if ms != nil {
		*dst = time.Duration(*ms) * time.Millisecond
	}
}

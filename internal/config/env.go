package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"sign-translator/internal/domain"
)

// Env holds process-level configuration. Empty values leave stored settings untouched.
type Env struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	SettingsPath string `envconfig:"SIGN_SETTINGS_PATH"`

	APIKey         string        `envconfig:"SIGN_API_KEY"`
	APIURL         string        `envconfig:"SIGN_API_URL"`
	Language       string        `envconfig:"SIGN_LANGUAGE"`
	FDID           string        `envconfig:"SIGN_FDID"`
	TID            string        `envconfig:"SIGN_TID"`
	MaxAttempts    int           `envconfig:"SIGN_MAX_ATTEMPTS"`
	RetryDelay     time.Duration `envconfig:"SIGN_RETRY_DELAY"`
	RequestTimeout time.Duration `envconfig:"SIGN_REQUEST_TIMEOUT"`
}

// LoadEnv reads and validates environment configuration.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, err
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &env, nil
}

// Validate rejects values that can never produce a working engine.
func (e *Env) Validate() error {
	if e.MaxAttempts < 0 {
		return fmt.Errorf("SIGN_MAX_ATTEMPTS must be >= 0")
	}
	if e.RetryDelay < 0 {
		return fmt.Errorf("SIGN_RETRY_DELAY must be >= 0")
	}
	if e.RequestTimeout < 0 {
		return fmt.Errorf("SIGN_REQUEST_TIMEOUT must be >= 0")
	}
	return nil
}

// SettingsFile returns the configured settings path or the default location.
func (e *Env) SettingsFile() string {
	if e == nil || strings.TrimSpace(e.SettingsPath) == "" {
		return DefaultPath()
	}
	return e.SettingsPath
}

// Apply overlays the non-empty environment values onto cfg.
func (e *Env) Apply(cfg domain.Settings) domain.Settings {
	if e == nil {
		return cfg
	}
	cfg.APIKey = override(cfg.APIKey, e.APIKey)
	cfg.APIURL = override(cfg.APIURL, e.APIURL)
	cfg.Language = override(cfg.Language, e.Language)
	cfg.FDID = override(cfg.FDID, e.FDID)
	cfg.TID = override(cfg.TID, e.TID)
	if e.MaxAttempts > 0 {
		cfg.Retry.MaxAttempts = e.MaxAttempts
	}
	if e.RetryDelay > 0 {
		cfg.Retry.Delay = e.RetryDelay
	}
	if e.RequestTimeout > 0 {
		cfg.Retry.RequestTimeout = e.RequestTimeout
	}
	return cfg
}

// Normalize fills blank or out-of-range values with defaults.
func Normalize(cfg domain.Settings) domain.Settings {
	defaults := DefaultSettings()
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = defaults.APIURL
	}
	cfg.Language = override(defaults.Language, cfg.Language)
	cfg.FDID = override(defaults.FDID, cfg.FDID)
	cfg.TID = override(defaults.TID, cfg.TID)

	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if cfg.Retry.Delay < 0 {
		cfg.Retry.Delay = defaults.Retry.Delay
	}
	if cfg.Retry.RequestTimeout <= 0 {
		cfg.Retry.RequestTimeout = defaults.Retry.RequestTimeout
	}

	theme := defaults.Theme
	cfg.Theme.PrimaryColor = override(theme.PrimaryColor, cfg.Theme.PrimaryColor)
	cfg.Theme.BackgroundColor = override(theme.BackgroundColor, cfg.Theme.BackgroundColor)
	cfg.Theme.TextColor = override(theme.TextColor, cfg.Theme.TextColor)
	cfg.Theme.CloseButtonColor = override(theme.CloseButtonColor, cfg.Theme.CloseButtonColor)
	cfg.Theme.VideoBackgroundColor = override(theme.VideoBackgroundColor, cfg.Theme.VideoBackgroundColor)
	return cfg
}

func override(current, candidate string) string {
	if v := strings.TrimSpace(candidate); v != "" {
		return v
	}
	return current
}

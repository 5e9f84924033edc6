package config

import (
	"os"
	"path/filepath"
	"time"

	"sign-translator/internal/domain"
)

const (
	// DefaultAPIURL is the production translation endpoint.
	DefaultAPIURL = "https://kor01rp02.signfordeaf.com"
	DefaultFDID   = "16"
	DefaultTID    = "23"
	// DefaultLanguage is used for blank or unknown language tags.
	DefaultLanguage = "tr"

	DefaultMaxAttempts    = 30
	DefaultRetryDelay     = time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// DefaultTheme returns the stock overlay colors.
func DefaultTheme() domain.Theme {
	return domain.Theme{
		PrimaryColor:         "#6750A4",
		BackgroundColor:      "#FFFFFF",
		TextColor:            "#6750A4",
		CloseButtonColor:     "#6750A4",
		VideoBackgroundColor: "#000000",
	}
}

// DefaultRetryPolicy returns the stock polling schedule.
func DefaultRetryPolicy() domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxAttempts:    DefaultMaxAttempts,
		Delay:          DefaultRetryDelay,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// DefaultSettings returns baseline configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		APIURL:   DefaultAPIURL,
		Language: DefaultLanguage,
		FDID:     DefaultFDID,
		TID:      DefaultTID,
		Theme:    DefaultTheme(),
		Accessibility: domain.Accessibility{
			AnnounceOnOpen: true,
		},
		Retry: DefaultRetryPolicy(),
	}
}

// DefaultPath returns the settings file location under the user's home directory.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".sign-translator", "settings.json")
}

package bootstrap

import (
	"fmt"
	"strings"

	"sign-translator/internal/config"
	"sign-translator/internal/diagnostics"
	"sign-translator/internal/domain"
)

// FixDiagnostic resets the settings behind one failed diagnostic item to defaults.
func (a *App) FixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	fixed, err := applyDiagnosticFix(id, settings)
	if err != nil {
		return a.GetDiagnostics(), err
	}

	if err := a.Store.Save(fixed); err != nil {
		report := a.refreshDiagnosticsFromSettings(fixed)
		return report, fmt.Errorf("save settings after fix: %w", err)
	}
	a.applySettings(fixed)
	return a.refreshDiagnosticsFromSettings(fixed), nil
}

// applyDiagnosticFix returns settings with the offending fields restored.
func applyDiagnosticFix(id string, settings domain.Settings) (domain.Settings, error) {
	defaults := config.DefaultSettings()

	switch id {
	case diagnostics.CheckAPIURL:
		settings.APIURL = defaults.APIURL
	case diagnostics.CheckLanguage:
		settings.Language = defaults.Language
	case diagnostics.CheckProviderIDs:
		settings.FDID = defaults.FDID
		settings.TID = defaults.TID
	case diagnostics.CheckRetryPolicy:
		settings.Retry = defaults.Retry
	case diagnostics.CheckAPIKey:
		return settings, fmt.Errorf("the API key must be entered in settings")
	default:
		return settings, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}
	return settings, nil
}

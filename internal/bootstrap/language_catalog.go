package bootstrap

import (
	"fmt"
	"strings"

	"sign-translator/internal/domain"
	"sign-translator/internal/language"
)

// GetLanguages returns the supported sign languages with the configured one selected.
func (a *App) GetLanguages() []domain.LanguageOption {
	selected := language.Resolve(a.currentSettings().Language)

	options := make([]domain.LanguageOption, 0, len(language.Supported()))
	for _, lang := range language.Supported() {
		options = append(options, domain.LanguageOption{
			Code:         lang.Code(),
			ProviderCode: lang.ProviderCode(),
			DisplayName:  lang.DisplayName(),
			MenuTitle:    lang.MenuTitle(),
			BusinessName: lang.BusinessName(),
			Selected:     lang == selected,
		})
	}
	return options
}

// SelectLanguage persists a new sign language and refreshes the selection title.
func (a *App) SelectLanguage(tag string) (domain.Settings, error) {
	trimmed := strings.TrimSpace(tag)
	if !language.IsSupported(trimmed) {
		return domain.Settings{}, fmt.Errorf("unsupported language: %q", tag)
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings.Language = language.Resolve(trimmed).Code()
	return a.SaveSettings(settings)
}

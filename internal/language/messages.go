package language

import (
	"embed"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	xlanguage "golang.org/x/text/language"
)

//go:embed locales/active.*.toml
var localeFS embed.FS

const (
	msgDisplayName      = "DisplayName"
	msgMenuTitle        = "MenuTitle"
	msgBusinessName     = "BusinessName"
	msgLoading          = "Loading"
	msgError            = "Error"
	msgClose            = "Close"
	msgVideoPlayerLabel = "VideoPlayerLabel"
	msgTranslationReady = "TranslationReady"
)

// UIStrings carries the localized labels shown by the host overlay.
type UIStrings struct {
	Language         string `json:"language"`
	DisplayName      string `json:"displayName"`
	MenuTitle        string `json:"menuTitle"`
	BusinessName     string `json:"businessName"`
	Loading          string `json:"loading"`
	Error            string `json:"error"`
	Close            string `json:"close"`
	VideoPlayerLabel string `json:"videoPlayerLabel"`
	TranslationReady string `json:"translationReady"`
}

var (
	bundleOnce sync.Once
	bundle     *i18n.Bundle
)

func loadBundle() *i18n.Bundle {
	bundleOnce.Do(func() {
		b := i18n.NewBundle(xlanguage.Turkish)
		b.RegisterUnmarshalFunc("toml", toml.Unmarshal)
		for _, lang := range supported {
			// Embedded files are fixed at build time; a missing one falls back to the key.
			_, _ = b.LoadMessageFileFS(localeFS, "locales/active."+string(lang)+".toml")
		}
		bundle = b
	})
	return bundle
}

// DisplayName is the language's own name, e.g. "Türkçe".
func (l Language) DisplayName() string {
	return localize(l, msgDisplayName)
}

// MenuTitle is the text-selection menu entry label.
func (l Language) MenuTitle() string {
	return localize(l, msgMenuTitle)
}

// BusinessName is the brand shown in the overlay header.
func (l Language) BusinessName() string {
	return localize(l, msgBusinessName)
}

// Strings returns every overlay label for the language.
func (l Language) Strings() UIStrings {
	return UIStrings{
		Language:         l.Code(),
		DisplayName:      localize(l, msgDisplayName),
		MenuTitle:        localize(l, msgMenuTitle),
		BusinessName:     localize(l, msgBusinessName),
		Loading:          localize(l, msgLoading),
		Error:            localize(l, msgError),
		Close:            localize(l, msgClose),
		VideoPlayerLabel: localize(l, msgVideoPlayerLabel),
		TranslationReady: localize(l, msgTranslationReady),
	}
}

func localize(l Language, id string) string {
	localizer := i18n.NewLocalizer(loadBundle(), l.Code(), string(Default))
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil {
		return id
	}
	return msg
}

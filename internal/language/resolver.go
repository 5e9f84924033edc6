package language

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a sign language supported by the translation provider.
type Language string

const (
	Turkish Language = "tr"
	English Language = "en"
	German  Language = "de"
	French  Language = "fr"
	Spanish Language = "es"
	Arabic  Language = "ar"

	// Default is used for blank and unrecognized tags.
	Default = Turkish
)

// supported lists languages in provider-code order.
var supported = []Language{Turkish, English, German, French, Spanish, Arabic}

var providerCodes = map[Language]string{
	Turkish: "1",
	English: "2",
	German:  "3",
	French:  "4",
	Spanish: "5",
	Arabic:  "6",
}

var (
	aliasOnce sync.Once
	aliases   map[string]Language
)

// Supported returns all languages in provider-code order.
func Supported() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// Resolve maps a code, BCP-47 tag, English name or native name to a Language.
// Matching is case-insensitive; unknown and blank input resolve to Default.
func Resolve(raw string) Language {
	lang, ok := lookup(raw)
	if !ok {
		return Default
	}
	return lang
}

// IsSupported reports whether raw names one of the supported languages.
func IsSupported(raw string) bool {
	_, ok := lookup(raw)
	return ok
}

// ProviderCode returns the numeric code sent as the "language" query parameter.
func (l Language) ProviderCode() string {
	if code, ok := providerCodes[l]; ok {
		return code
	}
	return providerCodes[Default]
}

// Code returns the two-letter tag, falling back to Default for unknown values.
func (l Language) Code() string {
	if _, ok := providerCodes[l]; ok {
		return string(l)
	}
	return string(Default)
}

// Tag returns the BCP 47 tag for the language.
func (l Language) Tag() xlanguage.Tag {
	return xlanguage.Make(l.Code())
}

func lookup(raw string) (Language, bool) {
	folded := fold(raw)
	if folded == "" {
		return "", false
	}

	aliasOnce.Do(buildAliases)
	if lang, ok := aliases[folded]; ok {
		return lang, true
	}

	tag, err := xlanguage.Parse(strings.ReplaceAll(folded, "_", "-"))
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	lang := Language(base.String())
	if _, ok := providerCodes[lang]; ok {
		return lang, true
	}
	return "", false
}

// buildAliases indexes codes, English names, self names and catalog display names.
func buildAliases() {
	aliases = make(map[string]Language, len(supported)*4)
	englishNames := display.English.Languages()
	for _, lang := range supported {
		tag := lang.Tag()
		for _, name := range []string{
			string(lang),
			englishNames.Name(tag),
			display.Self.Name(tag),
			localize(lang, msgDisplayName),
		} {
			if key := fold(name); key != "" {
				aliases[key] = lang
			}
		}
	}
}

func fold(raw string) string {
	return cases.Fold().String(strings.TrimSpace(raw))
}

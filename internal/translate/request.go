package translate

import (
	"fmt"
	"net/url"
	"strings"

	"sign-translator/internal/domain"
	"sign-translator/internal/language"
)

const (
	translatePath = "/Translate"

	// DefaultDomainID is the fdid query value used when settings leave it blank.
	DefaultDomainID = "16"
	// DefaultTranslatorID is the tid query value used when settings leave it blank.
	DefaultTranslatorID = "23"
)

// TranslationRequest is the immutable input of one job.
type TranslationRequest struct {
	Text         string
	APIKey       string
	APIURL       string
	Language     language.Language
	LanguageCode string
	DomainID     string
	TranslatorID string
}

// NewRequest validates text and settings and resolves provider parameters.
// It never touches the network.
func NewRequest(text string, settings domain.Settings) (TranslationRequest, error) {
	if strings.TrimSpace(text) == "" {
		return TranslationRequest{}, newError(ErrInvalidInput, 0, "text is required", nil)
	}

	apiKey := strings.TrimSpace(settings.APIKey)
	if apiKey == "" {
		return TranslationRequest{}, newError(ErrNotConfigured, 0, "api key is required", nil)
	}
	apiURL, err := normalizeAPIURL(settings.APIURL)
	if err != nil {
		return TranslationRequest{}, newError(ErrNotConfigured, 0, "api url is invalid", err)
	}

	lang := language.Resolve(settings.Language)
	return TranslationRequest{
		Text:         text,
		APIKey:       apiKey,
		APIURL:       apiURL,
		Language:     lang,
		LanguageCode: lang.ProviderCode(),
		DomainID:     valueOrDefault(settings.FDID, DefaultDomainID),
		TranslatorID: valueOrDefault(settings.TID, DefaultTranslatorID),
	}, nil
}

// URL builds the polling endpoint with every query parameter the service expects.
func (r TranslationRequest) URL() string {
	query := url.Values{}
	query.Set("s", r.Text)
	query.Set("url", r.APIURL)
	query.Set("rk", r.APIKey)
	query.Set("fdid", r.DomainID)
	query.Set("tid", r.TranslatorID)
	query.Set("language", r.LanguageCode)
	return r.APIURL + translatePath + "?" + query.Encode()
}

// normalizeAPIURL trims whitespace and trailing slashes and requires an absolute http(s) URL.
func normalizeAPIURL(raw string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "", fmt.Errorf("api url is empty")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("host is missing")
	}
	return trimmed, nil
}

func valueOrDefault(raw, fallback string) string {
	if v := strings.TrimSpace(raw); v != "" {
		return v
	}
	return fallback
}

// maskKey keeps the first characters of an API key for log correlation.
func maskKey(key string) string {
	const visible = 4
	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}
	return key[:visible] + strings.Repeat("*", len(key)-visible)
}

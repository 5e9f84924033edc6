package diagnostics

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sign-translator/internal/domain"
	"sign-translator/internal/language"
)

const (
	// ProbeTimeout bounds the reachability request.
	ProbeTimeout = 5 * time.Second

	maxAttemptsCeiling = 300
	maxWorstCase       = 10 * time.Minute
)

// Check identifiers shared with the fix handlers.
const (
	CheckAPIKey       = "api_key"
	CheckAPIURL       = "api_url"
	CheckLanguage     = "language"
	CheckProviderIDs  = "provider_ids"
	CheckRetryPolicy  = "retry_policy"
	CheckAPIReachable = "api_reachable"
)

// ProbeFunc issues one request to baseURL and returns the HTTP status.
type ProbeFunc func(ctx context.Context, baseURL string) (int, error)

// Checker validates translation settings and service reachability.
type Checker struct {
	probe ProbeFunc
	now   func() time.Time
}

// NewChecker builds a checker probing with client.
func NewChecker(client *http.Client) *Checker {
	if client == nil {
		client = &http.Client{Timeout: ProbeTimeout}
	}
	return &Checker{
		probe: httpProbe(client),
		now:   time.Now,
	}
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(probe ProbeFunc, now func() time.Time) *Checker {
	if now == nil {
		now = time.Now
	}
	return &Checker{probe: probe, now: now}
}

// Run executes all checks and returns a combined report.
func (c *Checker) Run(ctx context.Context, settings domain.Settings) domain.DiagnosticReport {
	urlItem, baseURL := c.checkAPIURL(settings.APIURL)
	items := []domain.DiagnosticItem{
		c.checkAPIKey(settings.APIKey),
		urlItem,
		c.checkLanguage(settings.Language),
		c.checkProviderIDs(settings.FDID, settings.TID),
		c.checkRetryPolicy(settings.Retry),
		c.checkReachable(ctx, baseURL),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: c.now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

func (c *Checker) checkAPIKey(key string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: CheckAPIKey, Name: "API key"}
	if strings.TrimSpace(key) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "API key is empty."
		item.Hint = "Request an API key from SignForDeaf and enter it in settings."
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	item.Message = "API key is configured."
	return item
}

// checkAPIURL validates the service URL and returns it normalized when usable.
func (c *Checker) checkAPIURL(raw string) (domain.DiagnosticItem, string) {
	item := domain.DiagnosticItem{ID: CheckAPIURL, Name: "API URL"}
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "API URL is empty."
		item.Hint = "Set the translation service URL, for example https://kor01rp02.signfordeaf.com."
		item.Fixable = true
		return item, ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("API URL is not an absolute http(s) URL: %s", raw)
		item.Hint = "Use the full service URL including https://."
		item.Fixable = true
		return item, ""
	}

	if parsed.Scheme == "http" {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("API URL is not encrypted: %s", trimmed)
		item.Hint = "The API key is sent in the query string; prefer https."
		return item, trimmed
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Using %s", trimmed)
	return item, trimmed
}

func (c *Checker) checkLanguage(raw string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: CheckLanguage, Name: "Language"}
	resolved := language.Resolve(raw)
	if !language.IsSupported(raw) {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("Language %q is not supported; falling back to %s.", raw, resolved.DisplayName())
		item.Hint = "Choose one of tr, en, de, fr, es, ar."
		item.Fixable = true
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("%s (code %s)", resolved.DisplayName(), resolved.ProviderCode())
	return item
}

func (c *Checker) checkProviderIDs(fdid, tid string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: CheckProviderIDs, Name: "Provider ids"}
	var invalid []string
	for _, field := range []struct{ name, value string }{{"fdid", fdid}, {"tid", tid}} {
		v := strings.TrimSpace(field.value)
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err != nil || n <= 0 {
			invalid = append(invalid, fmt.Sprintf("%s=%q", field.name, field.value))
		}
	}
	if len(invalid) > 0 {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Provider ids must be positive numbers: " + strings.Join(invalid, ", ")
		item.Hint = "Leave them blank to use the defaults (fdid 16, tid 23)."
		item.Fixable = true
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	item.Message = "Provider ids are valid."
	return item
}

func (c *Checker) checkRetryPolicy(policy domain.RetryPolicy) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: CheckRetryPolicy, Name: "Retry policy"}
	switch {
	case policy.MaxAttempts < 1 || policy.MaxAttempts > maxAttemptsCeiling:
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Max attempts must be between 1 and %d, got %d.", maxAttemptsCeiling, policy.MaxAttempts)
	case policy.Delay < 0:
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Retry delay cannot be negative, got %s.", policy.Delay)
	case policy.RequestTimeout <= 0:
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Request timeout must be positive."
	case time.Duration(policy.MaxAttempts-1)*policy.Delay > maxWorstCase:
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("A translation may wait up to %s before timing out.", time.Duration(policy.MaxAttempts-1)*policy.Delay)
	default:
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("%d attempts, %s apart.", policy.MaxAttempts, policy.Delay)
		return item
	}
	item.Hint = "Reset the retry policy to 30 attempts, 1s apart."
	item.Fixable = true
	return item
}

func (c *Checker) checkReachable(ctx context.Context, baseURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: CheckAPIReachable, Name: "Service reachability"}
	if baseURL == "" {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = "Skipped: API URL is not usable."
		return item
	}
	if c.probe == nil {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = "Skipped: no network probe configured."
		return item
	}

	probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	status, err := c.probe(probeCtx, baseURL)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot reach %s: %v", baseURL, err)
		item.Hint = "Check the network connection and the API URL."
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("%s answered with status %d.", baseURL, status)
	return item
}

func httpProbe(client *http.Client) ProbeFunc {
	return func(ctx context.Context, baseURL string) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return 0, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		_ = resp.Body.Close()
		return resp.StatusCode, nil
	}
}

package diagnostics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sign-translator/internal/domain"
)

func validSettings(apiURL string) domain.Settings {
	return domain.Settings{
		APIKey:   "key",
		APIURL:   apiURL,
		Language: "en",
		FDID:     "16",
		TID:      "23",
		Retry: domain.RetryPolicy{
			MaxAttempts:    30,
			Delay:          time.Second,
			RequestTimeout: 30 * time.Second,
		},
	}
}

// TestCheckerRunAllPass validates happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	checker := NewCheckerForTests(func(context.Context, string) (int, error) {
		return http.StatusNotFound, nil
	}, nil)

	report := checker.Run(context.Background(), validSettings("https://api.example"))
	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
	for _, item := range report.Items {
		if item.Status != domain.DiagnosticStatusPass {
			t.Fatalf("item %s: got %s, want pass", item.ID, item.Status)
		}
	}
}

// TestCheckerRunMissingConfiguration validates failure reporting.
func TestCheckerRunMissingConfiguration(t *testing.T) {
	probed := false
	checker := NewCheckerForTests(func(context.Context, string) (int, error) {
		probed = true
		return http.StatusOK, nil
	}, nil)

	report := checker.Run(context.Background(), domain.Settings{
		Language: "klingon",
		FDID:     "abc",
		Retry:    domain.RetryPolicy{MaxAttempts: 0},
	})

	if !report.HasFailures {
		t.Fatal("expected failures")
	}
	if probed {
		t.Fatal("expected reachability probe to be skipped")
	}

	assertStatusByID(t, report, CheckAPIKey, domain.DiagnosticStatusFail)
	assertStatusByID(t, report, CheckAPIURL, domain.DiagnosticStatusFail)
	assertStatusByID(t, report, CheckLanguage, domain.DiagnosticStatusWarn)
	assertStatusByID(t, report, CheckProviderIDs, domain.DiagnosticStatusFail)
	assertStatusByID(t, report, CheckRetryPolicy, domain.DiagnosticStatusFail)
	assertStatusByID(t, report, CheckAPIReachable, domain.DiagnosticStatusWarn)
}

// TestCheckerWarnsOnPlainHTTP checks insecure URLs are flagged without failing.
func TestCheckerWarnsOnPlainHTTP(t *testing.T) {
	checker := NewCheckerForTests(func(context.Context, string) (int, error) {
		return http.StatusOK, nil
	}, nil)

	report := checker.Run(context.Background(), validSettings("http://api.example/"))
	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
	assertStatusByID(t, report, CheckAPIURL, domain.DiagnosticStatusWarn)
}

// TestCheckerUnreachableService reports probe errors.
func TestCheckerUnreachableService(t *testing.T) {
	checker := NewCheckerForTests(func(context.Context, string) (int, error) {
		return 0, errors.New("dial tcp: connection refused")
	}, nil)

	report := checker.Run(context.Background(), validSettings("https://api.example"))
	assertStatusByID(t, report, CheckAPIReachable, domain.DiagnosticStatusFail)
}

// TestCheckerProbesRealServer exercises the HTTP probe against a local server.
func TestCheckerProbesRealServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	report := NewChecker(srv.Client()).Run(context.Background(), validSettings(srv.URL))
	assertStatusByID(t, report, CheckAPIReachable, domain.DiagnosticStatusPass)
}

// TestCheckerRetryPolicyWorstCase warns on very long schedules.
func TestCheckerRetryPolicyWorstCase(t *testing.T) {
	settings := validSettings("https://api.example")
	settings.Retry = domain.RetryPolicy{MaxAttempts: 200, Delay: 5 * time.Second, RequestTimeout: time.Second}

	report := NewCheckerForTests(nil, nil).Run(context.Background(), settings)
	assertStatusByID(t, report, CheckRetryPolicy, domain.DiagnosticStatusWarn)
	assertStatusByID(t, report, CheckAPIReachable, domain.DiagnosticStatusWarn)
}

// assertStatusByID checks status for one diagnostic item by ID.
func assertStatusByID(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			if item.Status != want {
				t.Fatalf("item %s: got %s, want %s", id, item.Status, want)
			}
			return
		}
	}
	t.Fatalf("diagnostic item not found: %s", id)
}

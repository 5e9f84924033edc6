package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sign-translator/internal/domain"
	"sign-translator/internal/mockapi"
)

type recordingWaiter struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (w *recordingWaiter) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.delays = append(w.delays, d)
	w.mu.Unlock()
	return ctx.Err()
}

func (w *recordingWaiter) recorded() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.delays...)
}

type notificationLog struct {
	mu    sync.Mutex
	items []Notification
}

func (l *notificationLog) add(n Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, n)
}

func (l *notificationLog) forJob(jobID string) []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Notification
	for _, n := range l.items {
		if n.JobID == jobID {
			out = append(out, n)
		}
	}
	return out
}

func testSettings(apiURL string) domain.Settings {
	return domain.Settings{
		APIKey:   "test-key",
		APIURL:   apiURL,
		Language: "de",
		Retry: domain.RetryPolicy{
			MaxAttempts:    DefaultMaxAttempts,
			Delay:          DefaultRetryDelay,
			RequestTimeout: 5 * time.Second,
		},
	}
}

func newTestServer(t *testing.T, script mockapi.Script) (*mockapi.Server, *httptest.Server) {
	t.Helper()
	api := mockapi.New(script, zerolog.Nop())
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return api, srv
}

// TestSubmitReadyOnLastAttempt verifies the 30th poll can still complete the job.
func TestSubmitReadyOnLastAttempt(t *testing.T) {
	api, srv := newTestServer(t, mockapi.Script{PendingPolls: 29, BaseURL: "http://a/", FileName: "b.mp4"})
	waiter := &recordingWaiter{}
	engine := NewEngine(testSettings(srv.URL), WithWaiter(waiter.wait))

	result, err := engine.Submit(context.Background(), "merhaba")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.URL != "https://a/b.mp4" {
		t.Fatalf("video url = %q, want https://a/b.mp4", result.URL)
	}
	if api.RequestCount() != 30 {
		t.Fatalf("requests = %d, want 30", api.RequestCount())
	}

	delays := waiter.recorded()
	if len(delays) != 29 {
		t.Fatalf("waits = %d, want 29", len(delays))
	}
	for i, d := range delays {
		if d != time.Second {
			t.Fatalf("wait %d = %s, want 1s", i, d)
		}
	}
	if engine.Active() {
		t.Fatal("expected no active job after completion")
	}
}

// TestSubmitTimesOutAfterMaxAttempts verifies no request is issued beyond the cap.
func TestSubmitTimesOutAfterMaxAttempts(t *testing.T) {
	api, srv := newTestServer(t, mockapi.Script{NeverReady: true})
	waiter := &recordingWaiter{}
	engine := NewEngine(testSettings(srv.URL), WithWaiter(waiter.wait))

	_, err := engine.Submit(context.Background(), "hello")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if api.RequestCount() != 30 {
		t.Fatalf("requests = %d, want 30", api.RequestCount())
	}
	if got := len(waiter.recorded()); got != 29 {
		t.Fatalf("waits = %d, want 29", got)
	}

	var jobErr *Error
	if !errors.As(err, &jobErr) || jobErr.Attempt != 30 {
		t.Fatalf("expected attempt 30 on error, got %+v", err)
	}
}

// TestSubmitImmediateReady checks the first-poll success path and the query contract.
func TestSubmitImmediateReady(t *testing.T) {
	api, srv := newTestServer(t, mockapi.Script{BaseURL: "http://x.com/", FileName: "v.mp4"})
	engine := NewEngine(testSettings(srv.URL + "/"))

	result, err := engine.Submit(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.URL != "https://x.com/v.mp4" {
		t.Fatalf("video url = %q", result.URL)
	}

	reqs := api.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	q := reqs[0].Query
	want := map[string]string{
		"s":        "hello world",
		"url":      srv.URL,
		"rk":       "test-key",
		"fdid":     DefaultDomainID,
		"tid":      DefaultTranslatorID,
		"language": "3",
	}
	for key, value := range want {
		if got := q.Get(key); got != value {
			t.Fatalf("query %s = %q, want %q", key, got, value)
		}
	}
	if got := reqs[0].Header.Get("Accept"); got != "application/json" {
		t.Fatalf("Accept = %q", got)
	}
	if got := reqs[0].Header.Get("Origin"); got != srv.URL {
		t.Fatalf("Origin = %q, want %q", got, srv.URL)
	}
}

// TestSubmitUsesConfiguredProviderIDs verifies fdid and tid overrides.
func TestSubmitUsesConfiguredProviderIDs(t *testing.T) {
	api, srv := newTestServer(t, mockapi.Script{})
	settings := testSettings(srv.URL)
	settings.FDID = "7"
	settings.TID = "9"
	settings.Language = "zz"
	engine := NewEngine(settings)

	if _, err := engine.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	q := api.Requests()[0].Query
	if q.Get("fdid") != "7" || q.Get("tid") != "9" {
		t.Fatalf("unexpected provider ids: %v", q)
	}
	if q.Get("language") != "1" {
		t.Fatalf("unknown language should fall back to Turkish, got %q", q.Get("language"))
	}
}

// TestSubmitRejectsInvalidInput verifies validation happens before any request.
func TestSubmitRejectsInvalidInput(t *testing.T) {
	api, srv := newTestServer(t, mockapi.Script{})

	cases := []struct {
		name     string
		text     string
		settings domain.Settings
		want     error
	}{
		{"blank text", "   ", testSettings(srv.URL), ErrInvalidInput},
		{"missing key", "hello", domain.Settings{APIURL: srv.URL}, ErrNotConfigured},
		{"bad url", "hello", domain.Settings{APIKey: "k", APIURL: "not a url"}, ErrNotConfigured},
		{"unsupported scheme", "hello", domain.Settings{APIKey: "k", APIURL: "ftp://api.example"}, ErrNotConfigured},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			log := &notificationLog{}
			engine := NewEngine(tc.settings, WithNotifier(log.add))
			_, err := engine.SubmitJob(context.Background(), "job", tc.text)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if n := len(log.forJob("job")); n != 0 {
				t.Fatalf("expected no notifications, got %d", n)
			}
		})
	}
	if api.RequestCount() != 0 {
		t.Fatalf("requests = %d, want 0", api.RequestCount())
	}
}

// TestSubmitNonSuccessStatus verifies a non-2xx answer ends the job at once.
func TestSubmitNonSuccessStatus(t *testing.T) {
	api, srv := newTestServer(t, mockapi.Script{StatusCode: http.StatusInternalServerError})
	engine := NewEngine(testSettings(srv.URL))

	_, err := engine.Submit(context.Background(), "hello")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	var jobErr *Error
	if !errors.As(err, &jobErr) || jobErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status 500 on error, got %+v", err)
	}
	if api.RequestCount() != 1 {
		t.Fatalf("requests = %d, want 1", api.RequestCount())
	}
}

// TestSubmitTransportFailure verifies transport errors are not retried.
func TestSubmitTransportFailure(t *testing.T) {
	calls := 0
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("connection refused")
	})
	engine := NewEngine(testSettings("https://api.example"), WithHTTPClient(client))

	_, err := engine.Submit(context.Background(), "hello")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

// TestSubmitMalformedBody verifies decoding failures surface as decoding errors.
func TestSubmitMalformedBody(t *testing.T) {
	for _, body := range []string{"{not-json", `{"state":"maybe"}`} {
		api, srv := newTestServer(t, mockapi.Script{RawBody: body})
		engine := NewEngine(testSettings(srv.URL))

		_, err := engine.Submit(context.Background(), "hello")
		if !errors.Is(err, ErrDecoding) {
			t.Fatalf("body %q: expected decoding error, got %v", body, err)
		}
		if api.RequestCount() != 1 {
			t.Fatalf("body %q: requests = %d, want 1", body, api.RequestCount())
		}
	}
}

// TestSubmitOversizedBody verifies responses past the size limit are not buffered whole.
func TestSubmitOversizedBody(t *testing.T) {
	body := `{"state":true,"baseUrl":"http://a/","name":"b.mp4","pad":"` + strings.Repeat("x", maxResponseBytes) + `"}`
	api, srv := newTestServer(t, mockapi.Script{RawBody: body})
	engine := NewEngine(testSettings(srv.URL))

	_, err := engine.Submit(context.Background(), "hello")
	if !errors.Is(err, ErrDecoding) {
		t.Fatalf("expected decoding error, got %v", err)
	}
	if api.RequestCount() != 1 {
		t.Fatalf("requests = %d, want 1", api.RequestCount())
	}
}

// TestSubmitReadyWithoutVideo verifies a ready payload missing its location is rejected.
func TestSubmitReadyWithoutVideo(t *testing.T) {
	api, srv := newTestServer(t, mockapi.Script{OmitVideo: true})
	engine := NewEngine(testSettings(srv.URL))

	_, err := engine.Submit(context.Background(), "hello")
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected invalid response, got %v", err)
	}
	if api.RequestCount() != 1 {
		t.Fatalf("requests = %d, want 1", api.RequestCount())
	}
}

// TestCancelDuringWait verifies cancel interrupts the delay and stops polling.
func TestCancelDuringWait(t *testing.T) {
	api, srv := newTestServer(t, mockapi.Script{NeverReady: true})
	waiting := make(chan struct{}, 1)
	waiter := func(ctx context.Context, _ time.Duration) error {
		select {
		case waiting <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}
	log := &notificationLog{}
	engine := NewEngine(testSettings(srv.URL), WithWaiter(waiter), WithNotifier(log.add))

	done := make(chan error, 1)
	go func() {
		_, err := engine.SubmitJob(context.Background(), "job-1", "hello")
		done <- err
	}()

	<-waiting
	if !engine.Cancel() {
		t.Fatal("expected cancel to find the active job")
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrCancelled) {
			t.Fatalf("expected cancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cancellation")
	}

	if api.RequestCount() != 1 {
		t.Fatalf("requests = %d, want 1", api.RequestCount())
	}
	if engine.Cancel() {
		t.Fatal("expected second cancel to be a no-op")
	}

	notes := log.forJob("job-1")
	if last := notes[len(notes)-1]; last.Type != NotifyCancelled {
		t.Fatalf("last notification = %s, want cancelled", last.Type)
	}
}

// TestCancelDuringRequest verifies an in-flight request is abandoned.
func TestCancelDuringRequest(t *testing.T) {
	api, srv := newTestServer(t, mockapi.Script{Latency: 10 * time.Second})
	engine := NewEngine(testSettings(srv.URL))

	done := make(chan error, 1)
	go func() {
		_, err := engine.Submit(context.Background(), "hello")
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for api.RequestCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("request never reached the server")
		}
		time.Sleep(5 * time.Millisecond)
	}
	engine.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrCancelled) {
			t.Fatalf("expected cancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cancellation")
	}
}

// TestCallerContextCancelled verifies a dead caller context never reaches the network.
func TestCallerContextCancelled(t *testing.T) {
	api, srv := newTestServer(t, mockapi.Script{})
	engine := NewEngine(testSettings(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Submit(ctx, "hello")
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
	if api.RequestCount() != 0 {
		t.Fatalf("requests = %d, want 0", api.RequestCount())
	}
}

// TestSubmitSupersedesActiveJob verifies a second submit cancels the first.
func TestSubmitSupersedesActiveJob(t *testing.T) {
	// The first poll for a text is pending, the second is ready.
	_, srv := newTestServer(t, mockapi.Script{PendingPolls: 1})
	waiting := make(chan struct{}, 1)
	waiter := func(ctx context.Context, _ time.Duration) error {
		waiting <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}
	log := &notificationLog{}
	engine := NewEngine(testSettings(srv.URL), WithWaiter(waiter), WithNotifier(log.add))

	first := make(chan error, 1)
	go func() {
		_, err := engine.SubmitJob(context.Background(), "first", "hello")
		first <- err
	}()
	<-waiting

	result, err := engine.SubmitJob(context.Background(), "second", "hello")
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !strings.HasPrefix(result.URL, "https://") {
		t.Fatalf("video url = %q", result.URL)
	}

	select {
	case err := <-first:
		if !errors.Is(err, ErrCancelled) {
			t.Fatalf("first job: expected cancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first job never settled")
	}

	for _, n := range log.forJob("first") {
		if n.Type == NotifyComplete {
			t.Fatal("superseded job must not complete")
		}
	}
	second := log.forJob("second")
	if second[len(second)-1].Type != NotifyComplete {
		t.Fatalf("second job last notification = %s", second[len(second)-1].Type)
	}
}

// TestNotificationOrder verifies start, attempts and one terminal notification.
func TestNotificationOrder(t *testing.T) {
	_, srv := newTestServer(t, mockapi.Script{PendingPolls: 2})
	waiter := &recordingWaiter{}
	log := &notificationLog{}
	engine := NewEngine(testSettings(srv.URL), WithWaiter(waiter.wait), WithNotifier(log.add))

	if _, err := engine.SubmitJob(context.Background(), "job", "hello"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	notes := log.forJob("job")
	want := []NotificationType{NotifyStart, NotifyAttempt, NotifyAttempt, NotifyAttempt, NotifyComplete}
	if len(notes) != len(want) {
		t.Fatalf("notifications = %d, want %d", len(notes), len(want))
	}
	for i, n := range notes {
		if n.Type != want[i] {
			t.Fatalf("notification %d = %s, want %s", i, n.Type, want[i])
		}
	}
	for i := 1; i <= 3; i++ {
		if notes[i].Attempt != i || notes[i].MaxAttempts != DefaultMaxAttempts {
			t.Fatalf("attempt notification %d = %+v", i, notes[i])
		}
	}
	if notes[4].VideoURL == "" {
		t.Fatal("complete notification missing video url")
	}
}

// TestPanickingNotifier verifies observers cannot break a job.
func TestPanickingNotifier(t *testing.T) {
	_, srv := newTestServer(t, mockapi.Script{})
	engine := NewEngine(testSettings(srv.URL), WithNotifier(func(Notification) {
		panic("observer failure")
	}))

	result, err := engine.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.URL == "" {
		t.Fatal("expected video url")
	}
}

// TestInvalidSubmitKeepsActiveJob verifies rejected input does not supersede a running job.
func TestInvalidSubmitKeepsActiveJob(t *testing.T) {
	_, srv := newTestServer(t, mockapi.Script{NeverReady: true})
	waiting := make(chan struct{}, 1)
	waiter := func(ctx context.Context, _ time.Duration) error {
		select {
		case waiting <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}
	engine := NewEngine(testSettings(srv.URL), WithWaiter(waiter))

	done := make(chan error, 1)
	go func() {
		_, err := engine.Submit(context.Background(), "hello")
		done <- err
	}()
	<-waiting

	if _, err := engine.Submit(context.Background(), ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if !engine.Active() {
		t.Fatal("running job should survive an invalid submit")
	}

	engine.Cancel()
	<-done
}

// TestNormalizePolicyDefaults verifies non-positive settings fall back to defaults.
func TestNormalizePolicyDefaults(t *testing.T) {
	t.Parallel()

	got := normalizePolicy(domain.RetryPolicy{MaxAttempts: -1})
	if got.MaxAttempts != DefaultMaxAttempts || got.Delay != DefaultRetryDelay || got.RequestTimeout != DefaultRequestTimeout {
		t.Fatalf("unexpected policy: %+v", got)
	}
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

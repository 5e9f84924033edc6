package translate

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sign-translator/internal/domain"
)

const (
	// DefaultMaxAttempts caps the number of poll requests for one job.
	DefaultMaxAttempts = 30
	// DefaultRetryDelay is the fixed wait between "not ready" polls.
	DefaultRetryDelay = time.Second
	// DefaultRequestTimeout bounds a single poll request.
	DefaultRequestTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
)

// NotificationType classifies lifecycle notifications emitted for a job.
type NotificationType string

const (
	NotifyStart     NotificationType = "start"
	NotifyAttempt   NotificationType = "attempt"
	NotifyComplete  NotificationType = "complete"
	NotifyError     NotificationType = "error"
	NotifyCancelled NotificationType = "cancelled"
)

// Notification reports job progress. Per job the order is start, attempts, then one terminal.
type Notification struct {
	Type        NotificationType
	JobID       string
	Text        string
	Attempt     int
	MaxAttempts int
	VideoURL    string
	Err         error
}

// Doer sends HTTP requests; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Waiter blocks for d or until ctx is done.
type Waiter func(ctx context.Context, d time.Duration) error

// Notifier receives lifecycle notifications. It must not block for long.
type Notifier func(Notification)

// PollState is the mutable progress of the active job. Only the engine touches it.
type PollState struct {
	JobID       string
	Attempt     int
	MaxAttempts int
	Delay       time.Duration
	Cancelled   bool
	StartedAt   time.Time
	cancel      context.CancelFunc
}

// Engine submits translation jobs and polls until the render completes.
// It runs at most one job at a time; a new submit cancels the previous one.
type Engine struct {
	mu       sync.Mutex
	settings domain.Settings
	active   *PollState

	client Doer
	logger zerolog.Logger
	wait   Waiter
	notify Notifier
	now    func() time.Time
	newID  func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithHTTPClient replaces the HTTP client used for polling.
func WithHTTPClient(client Doer) Option {
	return func(e *Engine) {
		if client != nil {
			e.client = client
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithWaiter replaces the retry delay implementation.
func WithWaiter(wait Waiter) Option {
	return func(e *Engine) {
		if wait != nil {
			e.wait = wait
		}
	}
}

// WithNotifier registers the lifecycle notification sink.
func WithNotifier(notify Notifier) Option {
	return func(e *Engine) { e.notify = notify }
}

// NewEngine builds an engine for the given settings.
func NewEngine(settings domain.Settings, opts ...Option) *Engine {
	e := &Engine{
		settings: settings,
		client:   &http.Client{},
		logger:   zerolog.Nop(),
		wait:     sleepContext,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UpdateSettings replaces configuration for future submits.
func (e *Engine) UpdateSettings(settings domain.Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = settings
}

// Active reports whether a job is in flight.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// Submit runs one translation job under a generated id.
func (e *Engine) Submit(ctx context.Context, text string) (VideoResult, error) {
	return e.SubmitJob(ctx, e.newID(), text)
}

// SubmitJob runs one translation job and blocks until its terminal outcome.
// Invalid text or settings fail before any request and leave a running job untouched.
func (e *Engine) SubmitJob(ctx context.Context, jobID, text string) (VideoResult, error) {
	e.mu.Lock()
	settings := e.settings
	e.mu.Unlock()

	req, err := NewRequest(text, settings)
	if err != nil {
		e.logger.Warn().Err(err).Str("job", jobID).Msg("translation rejected")
		return VideoResult{}, err
	}
	policy := normalizePolicy(settings.Retry)

	jobCtx, cancel := context.WithCancel(ctx)
	state := &PollState{
		JobID:       jobID,
		MaxAttempts: policy.MaxAttempts,
		Delay:       policy.Delay,
		StartedAt:   e.now(),
		cancel:      cancel,
	}

	e.mu.Lock()
	if ctx.Err() != nil {
		// A caller that gave up before the job registered must not displace a newer one.
		e.mu.Unlock()
		cancel()
		return VideoResult{}, newError(ErrCancelled, 0, "", ctx.Err())
	}
	if prev := e.active; prev != nil {
		prev.Cancelled = true
		prev.cancel()
		e.logger.Info().Str("job", prev.JobID).Str("superseded_by", jobID).Msg("translation superseded")
	}
	e.active = state
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		if e.active == state {
			e.active = nil
		}
		e.mu.Unlock()
	}()

	e.logger.Info().
		Str("job", jobID).
		Str("language", req.Language.Code()).
		Str("api_key", maskKey(req.APIKey)).
		Int("max_attempts", policy.MaxAttempts).
		Msg("translation started")
	e.emit(Notification{Type: NotifyStart, JobID: jobID, Text: text, MaxAttempts: policy.MaxAttempts})

	result, err := e.poll(jobCtx, state, req, policy.RequestTimeout)
	elapsed := e.now().Sub(state.StartedAt)
	switch {
	case err == nil:
		e.logger.Info().Str("job", jobID).Str("video_url", result.URL).Dur("elapsed", elapsed).Msg("translation complete")
		e.emit(Notification{Type: NotifyComplete, JobID: jobID, Text: text, VideoURL: result.URL, Attempt: state.Attempt, MaxAttempts: state.MaxAttempts})
	case errors.Is(err, ErrCancelled):
		e.logger.Info().Str("job", jobID).Int("attempt", state.Attempt).Msg("translation cancelled")
		e.emit(Notification{Type: NotifyCancelled, JobID: jobID, Text: text, Attempt: state.Attempt, MaxAttempts: state.MaxAttempts, Err: err})
	default:
		e.logger.Warn().Err(err).Str("job", jobID).Int("attempt", state.Attempt).Dur("elapsed", elapsed).Msg("translation failed")
		e.emit(Notification{Type: NotifyError, JobID: jobID, Text: text, Attempt: state.Attempt, MaxAttempts: state.MaxAttempts, Err: err})
	}
	return result, err
}

// Cancel aborts the active job, if any. It is safe to call repeatedly.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil || e.active.Cancelled {
		return false
	}
	e.active.Cancelled = true
	e.active.cancel()
	return true
}

// poll issues sequential requests until the render is ready or the job settles otherwise.
func (e *Engine) poll(ctx context.Context, state *PollState, req TranslationRequest, requestTimeout time.Duration) (VideoResult, error) {
	for {
		if e.cancelled(ctx, state) {
			return VideoResult{}, newError(ErrCancelled, state.Attempt, "", ctx.Err())
		}

		e.mu.Lock()
		state.Attempt++
		attempt := state.Attempt
		e.mu.Unlock()

		e.logger.Debug().Str("job", state.JobID).Int("attempt", attempt).Int("max_attempts", state.MaxAttempts).Msg("polling translation")
		e.emit(Notification{Type: NotifyAttempt, JobID: state.JobID, Text: req.Text, Attempt: attempt, MaxAttempts: state.MaxAttempts})

		payload, err := e.fetch(ctx, state, req, requestTimeout)
		if err != nil {
			return VideoResult{}, err
		}

		if payload.IsReady() {
			result, ok := Normalize(payload)
			if !ok {
				return VideoResult{}, newError(ErrInvalidResponse, attempt, "render is ready but video location is missing", nil)
			}
			return result, nil
		}

		if attempt >= state.MaxAttempts {
			return VideoResult{}, newError(ErrTimeout, attempt, "render did not finish in time", nil)
		}

		if err := e.wait(ctx, state.Delay); err != nil || e.cancelled(ctx, state) {
			return VideoResult{}, newError(ErrCancelled, attempt, "", ctx.Err())
		}
	}
}

// fetch performs one poll request and decodes the payload.
func (e *Engine) fetch(ctx context.Context, state *PollState, req TranslationRequest, timeout time.Duration) (JobStatusPayload, error) {
	attempt := state.Attempt
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, req.URL(), nil)
	if err != nil {
		return JobStatusPayload{}, newError(ErrNotConfigured, attempt, "build translation request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Origin", req.APIURL)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if e.cancelled(ctx, state) {
			return JobStatusPayload{}, newError(ErrCancelled, attempt, "", err)
		}
		return JobStatusPayload{}, newError(ErrNetwork, attempt, "send translation request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return JobStatusPayload{}, &Error{Kind: ErrNetwork, Attempt: attempt, Message: "unexpected response", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		if e.cancelled(ctx, state) {
			return JobStatusPayload{}, newError(ErrCancelled, attempt, "", err)
		}
		return JobStatusPayload{}, newError(ErrNetwork, attempt, "read translation response", err)
	}
	if e.cancelled(ctx, state) {
		return JobStatusPayload{}, newError(ErrCancelled, attempt, "", ctx.Err())
	}

	if len(body) > maxResponseBytes {
		return JobStatusPayload{}, newError(ErrDecoding, attempt, "translation response exceeds 1 MiB", nil)
	}

	payload, err := decodePayload(body)
	if err != nil {
		return JobStatusPayload{}, newError(ErrDecoding, attempt, "decode translation response", err)
	}
	if cid := payload.CID(); cid != "" {
		e.logger.Debug().Str("job", state.JobID).Str("cid", cid).Bool("ready", payload.IsReady()).Msg("translation status")
	}
	return payload, nil
}

func (e *Engine) cancelled(ctx context.Context, state *PollState) bool {
	if ctx.Err() != nil {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return state.Cancelled
}

// emit delivers a notification; a panicking notifier never affects the job.
func (e *Engine) emit(n Notification) {
	if e.notify == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("job", n.JobID).Str("notification", string(n.Type)).Msg("notifier panicked")
		}
	}()
	e.notify(n)
}

func normalizePolicy(policy domain.RetryPolicy) domain.RetryPolicy {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.Delay <= 0 {
		policy.Delay = DefaultRetryDelay
	}
	if policy.RequestTimeout <= 0 {
		policy.RequestTimeout = DefaultRequestTimeout
	}
	return policy
}

// sleepContext waits for d unless ctx finishes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

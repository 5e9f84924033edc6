package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"sign-translator/internal/config"
	"sign-translator/internal/diagnostics"
	"sign-translator/internal/domain"
	"sign-translator/internal/jobs"
	"sign-translator/internal/language"
	"sign-translator/internal/logging"
	"sign-translator/internal/translate"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// EventChannel is the Wails event name carrying every published jobs.Event.
const EventChannel = "sign:event"

// SelectionProvider attaches a text-selection action to the host UI.
// Attach returns a function that removes the action again.
type SelectionProvider interface {
	Attach(menuTitle string, onSelect func(text string)) (detach func())
}

// translator isolates the polling engine behind an interface.
type translator interface {
	SubmitJob(ctx context.Context, jobID, text string) (translate.VideoResult, error)
	UpdateSettings(settings domain.Settings)
}

// App wires configuration, the translation engine, lifecycle state, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Translator  translator
	Diagnostics domain.DiagnosticReport
	Logger      zerolog.Logger
	assets      fs.FS
	checker     *diagnostics.Checker

	mu             sync.Mutex
	enabled        bool
	overlayVisible bool
	activeJobID    string
	cancel         context.CancelFunc
	selection      SelectionProvider
	detach         func()
	events         *jobs.EventBus
	runtimeCtx     context.Context
	newID          func() string
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(env.Environment, env.LogLevel)
	if err != nil {
		return nil, err
	}

	store := config.NewJSONStore(env.SettingsFile())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = config.Normalize(env.Apply(settings))

	checker := diagnostics.NewChecker(nil)
	app := &App{
		Settings:    settings,
		Store:       store,
		Jobs:        jobs.NewManager(),
		Diagnostics: checker.Run(context.Background(), settings),
		Logger:      logger,
		assets:      assets,
		checker:     checker,
		enabled:     true,
		events:      jobs.NewEventBus(1000),
	}
	app.Translator = translate.NewEngine(settings,
		translate.WithLogger(logger.With().Str("component", "engine").Logger()),
		translate.WithNotifier(app.onNotification),
	)

	logger.Info().
		Str("settings", store.Path()).
		Str("language", language.Resolve(settings.Language).Code()).
		Bool("diagnostics_failed", app.Diagnostics.HasFailures).
		Msg("application initialized")
	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Sign Language Translator",
		Width:       520,
		Height:      760,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.Disable()
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	normalized := config.Normalize(settings)
	a.applySettings(normalized)
	return normalized, nil
}

// Configure applies settings to the running engine without persisting them.
// The API key and URL are required.
func (a *App) Configure(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if _, err := translate.NewRequest("configure", normalized); err != nil {
		return domain.Settings{}, err
	}
	a.applySettings(normalized)
	return normalized, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
// Incomplete settings are saved too; diagnostics report what is missing.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	a.applySettings(normalized)
	a.refreshDiagnosticsFromSettings(normalized)
	return normalized, nil
}

// RefreshDiagnostics reloads settings and reruns configuration checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	return a.refreshDiagnosticsFromSettings(config.Normalize(settings)), nil
}

// RegisterSelectionProvider installs the host's text-selection integration.
func (a *App) RegisterSelectionProvider(provider SelectionProvider) {
	a.mu.Lock()
	a.selection = provider
	a.mu.Unlock()
	a.reattachSelection()
}

// Enable turns on translation of selected text.
func (a *App) Enable() {
	a.mu.Lock()
	a.enabled = true
	a.mu.Unlock()
	a.reattachSelection()
}

// Disable removes the selection action and cancels any running translation.
func (a *App) Disable() {
	a.mu.Lock()
	a.enabled = false
	detach := a.detach
	a.detach = nil
	a.mu.Unlock()

	if detach != nil {
		detach()
	}
	if err := a.CancelTranslation(); err != nil && !errors.Is(err, jobs.ErrNoRunningJob) {
		a.Logger.Warn().Err(err).Msg("cancel on disable")
	}
}

// IsEnabled reports whether selected text is translated.
func (a *App) IsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// TextSelected is the selection callback. It records the selection and translates it when enabled.
func (a *App) TextSelected(text string) (domain.Job, error) {
	a.publishEvent(jobs.Event{Type: jobs.EventTypeTextSelected, Text: text})
	if !a.IsEnabled() {
		return a.Jobs.Current(), nil
	}
	return a.TranslateText(text)
}

// TranslateClipboard translates the current clipboard text.
func (a *App) TranslateClipboard() (domain.Job, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return domain.Job{}, err
	}
	text, err := wailsruntime.ClipboardGetText(ctx)
	if err != nil {
		return domain.Job{}, fmt.Errorf("read clipboard: %w", err)
	}
	return a.TextSelected(text)
}

// TranslateText opens the overlay in loading state and translates text asynchronously.
// A translation already running is superseded.
func (a *App) TranslateText(text string) (domain.Job, error) {
	settings := a.currentSettings()
	if _, err := translate.NewRequest(text, settings); err != nil {
		a.publishEvent(jobs.Event{
			Type:      jobs.EventTypeTranslationError,
			Text:      text,
			Message:   err.Error(),
			ErrorCode: translate.Code(err),
		})
		return domain.Job{}, err
	}

	jobID := a.nextJobID()
	ctx, cancel := context.WithCancel(context.Background())

	// The displaced cancel func must belong to the job the lifecycle supersedes.
	a.mu.Lock()
	superseded, err := a.Jobs.Start(jobID, text)
	if err != nil {
		a.mu.Unlock()
		cancel()
		return domain.Job{}, err
	}
	prevCancel := a.cancel
	a.activeJobID = jobID
	a.cancel = cancel
	opened := !a.overlayVisible
	a.overlayVisible = true
	job := a.Jobs.Current()
	a.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
	}
	if superseded != "" {
		a.publishStatus(superseded, domain.JobStatusCancelled, "Superseded by a new translation")
	}
	if opened {
		a.publishEvent(jobs.Event{JobID: jobID, Type: jobs.EventTypeSheetOpen})
	}
	a.publishStatus(jobID, domain.JobStatusLoading, language.Resolve(settings.Language).Strings().Loading)

	go a.runTranslation(ctx, jobID, text)
	return job, nil
}

// CancelTranslation cancels the currently running translation, if any.
func (a *App) CancelTranslation() error {
	a.mu.Lock()
	cancel := a.cancel
	activeJobID := a.activeJobID
	if cancel == nil {
		a.mu.Unlock()
		return jobs.ErrNoRunningJob
	}
	cancelErr := a.Jobs.Cancel()
	a.mu.Unlock()

	cancel()
	if cancelErr != nil {
		return cancelErr
	}

	if activeJobID != "" {
		a.publishStatus(activeJobID, domain.JobStatusCancelled, "Cancellation requested")
	}
	return nil
}

// ShowOverlay presents an already rendered video without calling the service.
func (a *App) ShowOverlay(videoURL, text string) (domain.Job, error) {
	secure := translate.SecureURL(strings.TrimSpace(videoURL))
	if !strings.HasPrefix(strings.ToLower(secure), "https://") {
		return domain.Job{}, fmt.Errorf("video url must be an http(s) URL: %q", videoURL)
	}
	if err := a.CancelTranslation(); err != nil && !errors.Is(err, jobs.ErrNoRunningJob) {
		return domain.Job{}, err
	}

	jobID := a.nextJobID()
	a.mu.Lock()
	if _, err := a.Jobs.Start(jobID, text); err != nil {
		a.mu.Unlock()
		return domain.Job{}, err
	}
	prevCancel := a.cancel
	a.activeJobID = ""
	a.cancel = nil
	opened := !a.overlayVisible
	a.overlayVisible = true
	a.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
	}
	if err := a.Jobs.Complete(jobID, secure); err != nil {
		return domain.Job{}, err
	}
	if opened {
		a.publishEvent(jobs.Event{JobID: jobID, Type: jobs.EventTypeSheetOpen})
	}
	a.publishEvent(jobs.Event{
		JobID:    jobID,
		Type:     jobs.EventTypeTranslationComplete,
		Status:   domain.JobStatusReady,
		Text:     text,
		VideoURL: secure,
	})
	return a.Jobs.Current(), nil
}

// DismissOverlay closes the overlay, cancelling a translation still loading.
func (a *App) DismissOverlay() domain.Job {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.activeJobID = ""
	wasVisible := a.overlayVisible
	a.overlayVisible = false
	prev := a.Jobs.Dismiss()
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if prev.ID != "" && prev.Status == domain.JobStatusCancelled {
		a.publishStatus(prev.ID, domain.JobStatusCancelled, "Dismissed while loading")
	}
	if wasVisible {
		a.publishEvent(jobs.Event{JobID: prev.ID, Type: jobs.EventTypeSheetClose})
	}
	return a.Jobs.Current()
}

// IsOverlayVisible reports whether the overlay is shown.
func (a *App) IsOverlayVisible() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.overlayVisible
}

// ReportVideoStarted records that the host player began playback.
func (a *App) ReportVideoStarted() {
	a.publishVideoEvent(jobs.EventTypeVideoStart, "")
}

// ReportVideoEnded records that playback finished.
func (a *App) ReportVideoEnded() {
	a.publishVideoEvent(jobs.EventTypeVideoEnd, "")
}

// ReportVideoFailed records a playback error reported by the host player.
func (a *App) ReportVideoFailed(message string) {
	a.publishVideoEvent(jobs.EventTypeVideoError, message)
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// UIStrings returns the overlay labels for the configured language.
func (a *App) UIStrings() language.UIStrings {
	return language.Resolve(a.currentSettings().Language).Strings()
}

// runTranslation executes one engine job and maps its outcome to lifecycle events.
func (a *App) runTranslation(ctx context.Context, jobID, text string) {
	defer a.clearActiveJob(jobID)

	result, err := a.Translator.SubmitJob(ctx, jobID, text)
	switch {
	case err == nil:
		if a.Jobs.Complete(jobID, result.URL) != nil {
			return
		}
		a.publishEvent(jobs.Event{
			JobID:    jobID,
			Type:     jobs.EventTypeTranslationComplete,
			Status:   domain.JobStatusReady,
			Text:     text,
			VideoURL: result.URL,
		})
	case errors.Is(err, translate.ErrCancelled):
		if a.Jobs.CancelJob(jobID) == nil {
			a.publishStatus(jobID, domain.JobStatusCancelled, "Job cancelled")
		}
	default:
		code := translate.Code(err)
		message := language.Resolve(a.currentSettings().Language).Strings().Error
		if a.Jobs.Fail(jobID, code, message) != nil {
			return
		}
		a.Logger.Warn().Err(err).Str("job", jobID).Str("code", code).Msg("translation failed")
		a.publishEvent(jobs.Event{
			JobID:     jobID,
			Type:      jobs.EventTypeTranslationError,
			Status:    domain.JobStatusFailed,
			Text:      text,
			Message:   message,
			ErrorCode: code,
			Retryable: translate.Retryable(err),
		})
	}
}

// onNotification mirrors engine progress into the event stream.
func (a *App) onNotification(n translate.Notification) {
	switch n.Type {
	case translate.NotifyStart:
		a.publishEvent(jobs.Event{
			JobID:       n.JobID,
			Type:        jobs.EventTypeTranslationStart,
			Status:      domain.JobStatusLoading,
			Text:        n.Text,
			MaxAttempts: n.MaxAttempts,
		})
	case translate.NotifyAttempt:
		a.publishEvent(jobs.Event{
			JobID:       n.JobID,
			Type:        jobs.EventTypeTranslationAttempt,
			Attempt:     n.Attempt,
			MaxAttempts: n.MaxAttempts,
		})
	}
}

func (a *App) publishVideoEvent(eventType jobs.EventType, message string) {
	a.publishEvent(jobs.Event{
		JobID:    a.Jobs.Current().ID,
		Type:     eventType,
		Message:  message,
		VideoURL: a.Jobs.Current().VideoURL,
	})
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, status domain.JobStatus, message string) {
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, EventChannel, published)
	}
}

// clearActiveJob clears cancellation handles for completed job IDs.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		a.activeJobID = ""
		a.cancel = nil
	}
}

// reattachSelection refreshes the selection action so its title follows the language.
func (a *App) reattachSelection() {
	a.mu.Lock()
	detach := a.detach
	a.detach = nil
	provider := a.selection
	enabled := a.enabled
	title := language.Resolve(a.Settings.Language).MenuTitle()
	a.mu.Unlock()

	if detach != nil {
		detach()
	}
	if !enabled || provider == nil {
		return
	}

	next := provider.Attach(title, func(text string) {
		if _, err := a.TextSelected(text); err != nil {
			a.Logger.Warn().Err(err).Msg("translate selection")
		}
	})
	a.mu.Lock()
	a.detach = next
	a.mu.Unlock()
}

// applySettings swaps the active settings into the engine and selection title.
func (a *App) applySettings(settings domain.Settings) {
	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()
	if a.Translator != nil {
		a.Translator.UpdateSettings(settings)
	}
	a.reattachSelection()
}

func (a *App) currentSettings() domain.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Settings
}

func (a *App) nextJobID() string {
	if a.newID != nil {
		return a.newID()
	}
	return uuid.NewString()
}

// runtimeContext returns current Wails runtime context for runtime APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	var report domain.DiagnosticReport
	if a.checker != nil {
		report = a.checker.Run(context.Background(), settings)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = report
	}
	return a.Diagnostics
}

package domain

import "time"

// JobStatus tracks the presentation state of a single translation job.
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusLoading   JobStatus = "loading"
	JobStatusReady     JobStatus = "ready"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Theme holds overlay colors forwarded to the host UI.
type Theme struct {
	PrimaryColor         string `json:"primaryColor"`
	BackgroundColor      string `json:"backgroundColor"`
	TextColor            string `json:"textColor"`
	CloseButtonColor     string `json:"closeButtonColor"`
	VideoBackgroundColor string `json:"videoBackgroundColor"`
}

// Accessibility holds announcement flags and labels for the overlay.
type Accessibility struct {
	AnnounceOnOpen   bool   `json:"announceOnOpen"`
	AnnounceOnClose  bool   `json:"announceOnClose"`
	VideoPlayerLabel string `json:"videoPlayerLabel,omitempty"`
	CloseButtonLabel string `json:"closeButtonLabel,omitempty"`
	BottomSheetHint  string `json:"bottomSheetHint,omitempty"`
}

// RetryPolicy bounds the polling schedule of one translation job.
type RetryPolicy struct {
	MaxAttempts    int           `json:"maxAttempts"`
	Delay          time.Duration `json:"delay"`
	RequestTimeout time.Duration `json:"requestTimeout"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	APIKey        string        `json:"apiKey"`
	APIURL        string        `json:"apiUrl"`
	Language      string        `json:"language"`
	FDID          string        `json:"fdid"`
	TID           string        `json:"tid"`
	Theme         Theme         `json:"theme"`
	Accessibility Accessibility `json:"accessibility"`
	Retry         RetryPolicy   `json:"retry"`
}

// Job stores the current job identity and presentation status.
type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Text      string    `json:"text,omitempty"`
	VideoURL  string    `json:"videoUrl,omitempty"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Error     string    `json:"error,omitempty"`
}

package jobs

import (
	"sync"
	"time"

	"sign-translator/internal/domain"
)

// EventType classifies messages emitted to the host UI.
type EventType string

const (
	EventTypeTextSelected        EventType = "text-selected"
	EventTypeTranslationStart    EventType = "translation-start"
	EventTypeTranslationAttempt  EventType = "translation-attempt"
	EventTypeTranslationComplete EventType = "translation-complete"
	EventTypeTranslationError    EventType = "translation-error"
	EventTypeSheetOpen           EventType = "sheet-open"
	EventTypeSheetClose          EventType = "sheet-close"
	EventTypeVideoStart          EventType = "video-start"
	EventTypeVideoEnd            EventType = "video-end"
	EventTypeVideoError          EventType = "video-error"
	EventTypeStatus              EventType = "status"
)

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq         int64            `json:"seq"`
	Timestamp   time.Time        `json:"timestamp"`
	JobID       string           `json:"jobId,omitempty"`
	Type        EventType        `json:"type"`
	Status      domain.JobStatus `json:"status,omitempty"`
	Text        string           `json:"text,omitempty"`
	Message     string           `json:"message,omitempty"`
	Attempt     int              `json:"attempt,omitempty"`
	MaxAttempts int              `json:"maxAttempts,omitempty"`
	VideoURL    string           `json:"videoUrl,omitempty"`
	ErrorCode   string           `json:"errorCode,omitempty"`
	Retryable   bool             `json:"retryable,omitempty"`
}

// EventBus stores recent events and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		b.events = append([]Event(nil), b.events[len(b.events)-b.maxEvents:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// ForJob returns the buffered events of one job in publish order.
func (b *EventBus) ForJob(jobID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, event := range b.events {
		if event.JobID == jobID {
			out = append(out, event)
		}
	}
	return out
}

package jobs

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"sign-translator/internal/domain"
)

// ErrNoRunningJob is returned when cancel is requested while nothing is loading.
var ErrNoRunningJob = errors.New("no running job")

// ErrStaleJob is returned when an outcome arrives for a job that is no longer current.
var ErrStaleJob = errors.New("job is no longer current")

// Manager drives the presentation lifecycle of the single visible job.
type Manager struct {
	mu      sync.RWMutex
	current domain.Job
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Job{
			Status: domain.JobStatusIdle,
		},
	}
}

// Start moves a new job into loading state. A job still loading is marked
// cancelled first and its id is returned as superseded.
func (m *Manager) Start(jobID, text string) (superseded string, err error) {
	if strings.TrimSpace(jobID) == "" {
		return "", fmt.Errorf("job id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if isRunning(m.current.Status) {
		superseded = m.current.ID
	}
	m.current = domain.Job{
		ID:     jobID,
		Status: domain.JobStatusLoading,
		Text:   text,
	}
	return superseded, nil
}

// Complete settles the current job as ready with its video URL.
func (m *Manager) Complete(jobID, videoURL string) error {
	return m.settle(jobID, domain.JobStatusReady, func(job *domain.Job) {
		job.VideoURL = videoURL
	})
}

// Fail settles the current job as failed with a host error code.
func (m *Manager) Fail(jobID, code, message string) error {
	return m.settle(jobID, domain.JobStatusFailed, func(job *domain.Job) {
		job.ErrorCode = code
		job.Error = message
	})
}

// CancelJob settles jobID as cancelled when it is still the current loading job.
func (m *Manager) CancelJob(jobID string) error {
	return m.settle(jobID, domain.JobStatusCancelled, nil)
}

// Cancel moves the loading job to cancelled state.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isRunning(m.current.Status) {
		return ErrNoRunningJob
	}
	m.current.Status = domain.JobStatusCancelled
	return nil
}

// Dismiss closes the presentation and returns the job that was shown.
// A loading job is reported as cancelled.
func (m *Manager) Dismiss() domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.current
	if isRunning(prev.Status) {
		prev.Status = domain.JobStatusCancelled
	}
	m.current = domain.Job{Status: domain.JobStatusIdle}
	return prev
}

// Transition validates and applies state transitions for the current job.
func (m *Manager) Transition(status domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" && status != domain.JobStatusIdle {
		return fmt.Errorf("cannot transition without an active job")
	}
	if status == m.current.Status {
		return nil
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}

	m.current.Status = status
	if status == domain.JobStatusIdle {
		m.current = domain.Job{Status: domain.JobStatusIdle}
	}
	return nil
}

// Current returns a snapshot of the current job.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset clears job metadata and returns manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Job{Status: domain.JobStatusIdle}
}

// IsRunning reports whether a translation is loading.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isRunning(m.current.Status)
}

func (m *Manager) settle(jobID string, status domain.JobStatus, apply func(*domain.Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID != jobID {
		return ErrStaleJob
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}
	m.current.Status = status
	if apply != nil {
		apply(&m.current)
	}
	return nil
}

func isRunning(status domain.JobStatus) bool {
	return status == domain.JobStatusLoading
}

// isValidTransition enforces the allowed lifecycle edges.
func isValidTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusIdle:
		return to == domain.JobStatusLoading
	case domain.JobStatusLoading:
		return to == domain.JobStatusReady || to == domain.JobStatusFailed || to == domain.JobStatusCancelled
	case domain.JobStatusReady, domain.JobStatusFailed, domain.JobStatusCancelled:
		return to == domain.JobStatusLoading || to == domain.JobStatusIdle
	default:
		return false
	}
}

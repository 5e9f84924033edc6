package translate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JobStatusPayload is the server's view of a render job for one poll.
type JobStatusPayload struct {
	Ready         *bool   `json:"state"`
	BaseURL       *string `json:"baseUrl"`
	FileName      *string `json:"name"`
	CorrelationID *string `json:"cid"`
	SecondaryFlag *bool   `json:"st"`
}

// VideoResult is the playable outcome of a finished job.
type VideoResult struct {
	URL string `json:"videoUrl"`
}

// IsReady reports whether the render finished.
func (p JobStatusPayload) IsReady() bool {
	return p.Ready != nil && *p.Ready
}

// CID returns the correlation id or an empty string.
func (p JobStatusPayload) CID() string {
	if p.CorrelationID == nil {
		return ""
	}
	return *p.CorrelationID
}

// decodePayload parses one poll response body.
func decodePayload(body []byte) (JobStatusPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return JobStatusPayload{}, fmt.Errorf("empty response body")
	}
	var payload JobStatusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return JobStatusPayload{}, err
	}
	return payload, nil
}

// Normalize concatenates baseUrl and name and upgrades a leading http:// to https://.
// It returns false only when either field is absent.
func Normalize(p JobStatusPayload) (VideoResult, bool) {
	if p.BaseURL == nil || p.FileName == nil {
		return VideoResult{}, false
	}
	return VideoResult{URL: SecureURL(*p.BaseURL + *p.FileName)}, true
}

// SecureURL replaces an initial http:// (any case) with https://.
// Every other value is returned unchanged.
func SecureURL(raw string) string {
	const insecure = "http://"
	if len(raw) >= len(insecure) && strings.EqualFold(raw[:len(insecure)], insecure) {
		return "https://" + raw[len(insecure):]
	}
	return raw
}

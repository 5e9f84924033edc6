// Package mockapi simulates the sign-language translation service for local
// development and tests.
package mockapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL  = "http://cdn.signfordeaf.test/videos/"
	DefaultFileName = "sign.mp4"
)

// Script controls how the simulated service answers polls.
type Script struct {
	// PendingPolls is the number of "not ready" answers before the render is ready.
	PendingPolls int
	// NeverReady keeps every answer in the "not ready" state.
	NeverReady bool
	// OmitVideo answers ready without baseUrl and name.
	OmitVideo bool
	BaseURL   string
	FileName  string
	// StatusCode, when set, is returned for every poll with an empty body.
	StatusCode int
	// RawBody, when set, is written verbatim with status 200.
	RawBody string
	// Latency delays each answer unless the client goes away first.
	Latency time.Duration
}

// RecordedRequest is one poll observed by the server.
type RecordedRequest struct {
	Query  url.Values
	Header http.Header
	At     time.Time
}

// Server is an in-memory stand-in for the /Translate endpoint.
type Server struct {
	mu       sync.Mutex
	script   Script
	polls    map[string]int
	requests []RecordedRequest
	logger   zerolog.Logger
	router   chi.Router
}

// New builds a server answering according to script.
func New(script Script, logger zerolog.Logger) *Server {
	s := &Server{
		script: script,
		polls:  make(map[string]int),
		logger: logger,
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the HTTP handler serving the simulated API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetScript replaces the script and resets per-text progress.
func (s *Server) SetScript(script Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = script
	s.polls = make(map[string]int)
}

// Requests returns a copy of every recorded poll.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns the number of polls received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Origin"},
		MaxAge:         300,
	}))

	r.Get("/Translate", s.handleTranslate)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

type statusResponse struct {
	State   bool    `json:"state"`
	BaseURL *string `json:"baseUrl,omitempty"`
	Name    *string `json:"name,omitempty"`
	CID     string  `json:"cid"`
	ST      bool    `json:"st"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Query:  query,
		Header: r.Header.Clone(),
		At:     time.Now(),
	})
	script := s.script
	key := query.Get("language") + "|" + query.Get("s")
	s.polls[key]++
	poll := s.polls[key]
	s.mu.Unlock()

	if script.Latency > 0 {
		timer := time.NewTimer(script.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-r.Context().Done():
			return
		}
	}

	if script.StatusCode != 0 {
		w.WriteHeader(script.StatusCode)
		return
	}
	if script.RawBody != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(script.RawBody))
		return
	}
	if query.Get("rk") == "" {
		http.Error(w, "missing rk", http.StatusUnauthorized)
		return
	}
	if query.Get("s") == "" {
		http.Error(w, "missing s", http.StatusBadRequest)
		return
	}

	resp := statusResponse{CID: chimw.GetReqID(r.Context())}
	if !script.NeverReady && poll > script.PendingPolls {
		resp.State = true
		resp.ST = true
		if !script.OmitVideo {
			base := valueOr(script.BaseURL, DefaultBaseURL)
			name := valueOr(script.FileName, DefaultFileName)
			resp.BaseURL = &base
			resp.Name = &name
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// requestLogger logs each request at debug level; failures at warn.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			event := logger.Debug()
			if ww.Status() >= 400 {
				event = logger.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

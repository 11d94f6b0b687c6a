// Package server exposes the request API and the analytics stream. The chat
// endpoint and the WebSocket endpoint bind to separate ports so a dashboard
// can watch cognition without touching the request path.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lucaproject/luca/internal/affect"
	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/config"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/logging"
	"github.com/lucaproject/luca/internal/memory"
)

// Decider selects a pipeline for a query.
type Decider interface {
	Decide(ctx context.Context, query string, state affect.State) engine.OrchestrationDecision
}

// Runner executes an arbitrated decision and reports the mode actually run.
type Runner interface {
	Run(ctx context.Context, query string, decision engine.OrchestrationDecision) (*engine.MasterResponse, string)
}

// AffectTracker supplies the affective reading for each request and hears
// about the finished turn.
type AffectTracker interface {
	Assess(ctx context.Context, query string) affect.State
	ObserveResponse(ctx context.Context, finalAnswer, selfCriticism string)
}

// ActivityMonitor is told when a request is in flight so background cycles
// stay out of the way.
type ActivityMonitor interface {
	SetBusy()
	SetIdle()
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Query     string `json:"query"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Server hosts the request API and the analytics WebSocket.
type Server struct {
	cfg      config.ServerConfig
	decider  Decider
	runner   Runner
	tracker  AffectTracker
	activity ActivityMonitor
	bus      *bus.AnalyticsBus
	working  *memory.WorkingMemory
	mem      *memory.Log
	log      *logging.Logger

	api       *http.Server
	analytics *http.Server
}

// New creates a server. tracker, activity, bus, working and mem may be nil;
// the corresponding side effects are skipped, and a nil tracker pins the
// affective input to neutral.
func New(cfg config.ServerConfig, decider Decider, runner Runner, tracker AffectTracker, activity ActivityMonitor, b *bus.AnalyticsBus, working *memory.WorkingMemory, mem *memory.Log) *Server {
	return &Server{
		cfg:      cfg,
		decider:  decider,
		runner:   runner,
		tracker:  tracker,
		activity: activity,
		bus:      b,
		working:  working,
		mem:      mem,
		log:      logging.Component("server"),
	}
}

// Handler returns the request API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/chat", s.handleChat)
	mux.HandleFunc("/healthz", s.handleHealth)
	return s.recoverPanics(mux)
}

// AnalyticsHandler returns the analytics stream routes.
func (s *Server) AnalyticsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/analytics", s.handleAnalytics)
	return mux
}

// Start begins serving on both ports. It returns after the listeners are
// launched; failures surface through the logger.
func (s *Server) Start() {
	s.api = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: s.Handler(),
	}
	s.analytics = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.AnalyticsPort),
		Handler: s.AnalyticsHandler(),
	}

	go func() {
		s.log.Info("request API listening on %s", s.api.Addr)
		if err := s.api.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Err(err, "request API stopped")
		}
	}()
	go func() {
		s.log.Info("analytics stream listening on %s", s.analytics.Addr)
		if err := s.analytics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Err(err, "analytics stream stopped")
		}
	}()
}

// Shutdown stops both listeners gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	var first error
	if s.api != nil {
		if err := s.api.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	if s.analytics != nil {
		if err := s.analytics.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	if s.activity != nil {
		s.activity.SetBusy()
		defer s.activity.SetIdle()
	}

	ctx := r.Context()
	s.publish(func(ev *bus.Event) {
		ev.Type = bus.EventRequestStart
		ev.SessionID = req.SessionID
		ev.Content = req.Query
	})

	state := affect.Neutral()
	if s.tracker != nil {
		state = s.tracker.Assess(ctx, req.Query)
	}
	decision := s.decider.Decide(ctx, req.Query, state)
	s.publish(func(ev *bus.Event) {
		ev.Type = bus.EventModeSelected
		ev.SessionID = req.SessionID
		ev.Mode = decision.ChosenMode
		ev.Confidence = decision.Confidence
		ev.Reasoning = decision.Reasoning
	})

	resp, mode := s.runner.Run(ctx, req.Query, decision)
	if s.tracker != nil {
		s.tracker.ObserveResponse(ctx, resp.FinalAnswer, resp.SelfCriticism)
	}
	s.publish(func(ev *bus.Event) {
		ev.Type = bus.EventRequestComplete
		ev.SessionID = req.SessionID
		ev.Mode = mode
	})

	s.recordExchange(req, resp, mode)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Err(err, "writing chat response failed")
	}
}

// recordExchange persists the turn pair and the interaction entry. Failures
// are logged; the response has already been computed.
func (s *Server) recordExchange(req ChatRequest, resp *engine.MasterResponse, mode string) {
	if s.working != nil {
		now := time.Now().UTC()
		if err := s.working.AppendTurn(req.SessionID, memory.Turn{Timestamp: now, Role: "user", Content: req.Query}); err != nil {
			s.log.Err(err, "recording user turn failed")
		}
		if err := s.working.AppendTurn(req.SessionID, memory.Turn{Timestamp: now, Role: "assistant", Content: resp.FinalAnswer, Mode: mode}); err != nil {
			s.log.Err(err, "recording assistant turn failed")
		}
	}
	if s.mem != nil {
		entry := memory.Entry{
			Kind:      memory.KindInteraction,
			SessionID: req.SessionID,
			Content:   fmt.Sprintf("Q: %s\nA: %s", req.Query, resp.FinalAnswer),
			Metadata:  map[string]string{"mode": mode},
		}
		if req.UserID != "" {
			entry.Metadata["user_id"] = req.UserID
		}
		if err := s.mem.Append(entry); err != nil {
			s.log.Err(err, "logging interaction failed")
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) publish(fill func(*bus.Event)) {
	if s.bus == nil {
		return
	}
	ev := bus.NewEvent("")
	fill(&ev)
	s.bus.Publish(ev)
}

// recoverPanics turns an escaped handler panic into a plain 500 so the
// process keeps serving.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("handler panic on %s: %v", r.URL.Path, rec)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

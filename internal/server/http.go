package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/intervox/internal/interview"
	"github.com/MrWong99/intervox/internal/observe"
	"github.com/MrWong99/intervox/internal/orchestrator"
	"github.com/MrWong99/intervox/pkg/provider/llm"
	"github.com/MrWong99/intervox/pkg/provider/tts"
)

// mockProxyReply is returned by the LLM proxy when no model is configured or
// the upstream call fails.
const mockProxyReply = "This is a placeholder response; the language model is currently unavailable."

// Server wires the HTTP API, the metrics endpoint, and the interview
// websocket channel. TTS and LLM providers may be nil; the affected
// endpoints then degrade per the error-handling contract.
type Server struct {
	orch    *orchestrator.Orchestrator
	hub     *Hub
	ttsProv tts.Provider
	llmProv llm.Provider
	metrics *observe.Metrics
	log     *slog.Logger

	originPatterns []string
}

// Option customises a [Server].
type Option func(*Server)

// WithTTS sets the speech-synthesis provider backing POST /api/tts.
func WithTTS(p tts.Provider) Option {
	return func(s *Server) { s.ttsProv = p }
}

// WithLLM sets the model backing POST /api/llm-proxy.
func WithLLM(p llm.Provider) Option {
	return func(s *Server) { s.llmProv = p }
}

// WithMetrics sets the metrics instance. Default is observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger. Default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithOriginPatterns sets the websocket origin allow-list. Default allows
// any origin, suitable for same-host deployments behind a proxy.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.originPatterns = patterns }
}

// New builds a server around the orchestrator and hub.
func New(orch *orchestrator.Orchestrator, hub *Hub, opts ...Option) *Server {
	s := &Server{
		orch:           orch,
		hub:            hub,
		log:            slog.Default(),
		originPatterns: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Router assembles the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.measure)

	r.Post("/api/interviews", s.handleCreateInterview)
	r.Post("/api/tts", s.handleTTS)
	r.Post("/api/llm-proxy", s.handleLLMProxy)
	r.Get("/interview", s.handleInterviewWS)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

// measure records request latency per method and route pattern.
func (s *Server) measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		s.metrics.HTTPRequestDuration.Record(r.Context(), time.Since(start).Seconds(),
			httpAttrs(r.Method, pattern),
		)
	})
}

type createRequest struct {
	Company         string `json:"company"`
	Role            string `json:"role"`
	RoleDescription string `json:"roleDescription"`
	Competencies    string `json:"competencies"`
	Level           string `json:"level"`
	MaxTurns        int    `json:"maxTurns"`
}

type createResponse struct {
	ID       string          `json:"id"`
	Question string          `json:"question"`
	Phase    interview.Phase `json:"phase"`
}

func (s *Server) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	created, err := s.orch.Create(r.Context(), orchestrator.Params{
		Company:         req.Company,
		Role:            req.Role,
		RoleDescription: req.RoleDescription,
		Competencies:    req.Competencies,
		Level:           req.Level,
		MaxTurns:        req.MaxTurns,
	})
	if err != nil {
		s.log.Error("interview creation failed", "error", err)
		http.Error(w, "could not create interview", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{
		ID:       created.ID,
		Question: created.Question,
		Phase:    created.Phase,
	})
}

type ttsRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if s.ttsProv == nil {
		http.Error(w, "speech synthesis is not configured", http.StatusServiceUnavailable)
		return
	}

	start := time.Now()
	clip, err := s.ttsProv.Synthesize(r.Context(), req.Text)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observe.RecordStageDuration(r.Context(), s.metrics.TTSDuration, time.Since(start).Seconds(), status)
	if err != nil {
		s.log.Warn("tts synthesis failed", "error", err)
		http.Error(w, "speech synthesis failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", clip.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(clip.Audio)
}

type llmProxyRequest struct {
	Prompt string `json:"prompt"`
}

type llmProxyResponse struct {
	Text string `json:"text"`
	Mock bool   `json:"mock"`
}

// handleLLMProxy always succeeds: upstream failure or an unconfigured model
// yields a mock payload instead of an error status.
func (s *Server) handleLLMProxy(w http.ResponseWriter, r *http.Request) {
	var req llmProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}

	if s.llmProv == nil {
		writeJSON(w, http.StatusOK, llmProxyResponse{Text: mockProxyReply, Mock: true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	resp, err := s.llmProv.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: req.Prompt}},
	})
	if err != nil || resp == nil {
		s.log.Warn("llm proxy call failed, serving mock", "error", err)
		writeJSON(w, http.StatusOK, llmProxyResponse{Text: mockProxyReply, Mock: true})
		return
	}
	writeJSON(w, http.StatusOK, llmProxyResponse{Text: resp.Content})
}

func httpAttrs(method, pattern string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", pattern),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

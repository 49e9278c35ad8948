// Package server exposes the report pipeline, the backend proxy and the
// demo fixtures over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"cyberflux/internal/config"
	"cyberflux/internal/ingest"
	"cyberflux/internal/llm"
	"cyberflux/internal/logging"
	"cyberflux/internal/rag"
	"cyberflux/internal/report"
	"cyberflux/internal/session"
)

// Server wires handlers, pipeline and storage together.
type Server struct {
	cfg       *config.Config
	generator *report.Generator
	sessions  *session.Manager
	datasets  *ingest.DatasetIndex
	client    llm.Client
	embedder  rag.Embedder
	srv       *http.Server
}

// New builds a server from its dependencies. datasets and embedder may be
// nil; the related endpoints then degrade rather than fail.
func New(cfg *config.Config, gen *report.Generator, sessions *session.Manager, datasets *ingest.DatasetIndex, client llm.Client, embedder rag.Embedder) *Server {
	return &Server{
		cfg:       cfg,
		generator: gen,
		sessions:  sessions,
		datasets:  datasets,
		client:    client,
		embedder:  embedder,
	}
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/report/generate", s.handleGenerate)
	mux.HandleFunc("/report/download", s.handleDownload)
	mux.HandleFunc("/report/direct", s.handleDirect)
	mux.HandleFunc("/report/direct_debug", s.handleDirectDebug)

	mux.HandleFunc("/api/report_proxy", s.handleReportProxy)
	mux.HandleFunc("/api/incidents", s.handleIncidents)
	mux.HandleFunc("/api/action-bench", s.handleActionBench)
	mux.HandleFunc("/api/datasets", s.handleDatasets)

	mux.HandleFunc("/api/session", s.handleSessionStart)
	mux.HandleFunc("/api/session/ask", s.handleSessionAsk)
	mux.HandleFunc("/api/session/turns", s.handleSessionTurns)

	return mux
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:        s.cfg.Server.Addr,
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.GetReadTimeout(),
	}

	logging.Server("listening on %s", s.cfg.Server.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// writeJSON sends v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.ServerError("failed to encode response: %v", err)
	}
}

// writeError sends the standard {error, detail} body.
func writeError(w http.ResponseWriter, status int, msg, detail string) {
	body := map[string]string{"error": msg}
	if detail != "" {
		body["detail"] = detail
	}
	writeJSON(w, status, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

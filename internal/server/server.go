// Package server exposes ingestion and the graph snapshot over HTTP.
//
// Routes:
//   - GET  /health  plain-text liveness message
//   - POST /ingest  {"repoUrl": "..."} rebuilds the graph from a repository
//   - GET  /graph   the current snapshot as {nodes, links}
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mvp-joe/archaeologist/internal/graph"
	"github.com/mvp-joe/archaeologist/internal/indexer"
)

// Response bodies shared with existing frontends.
const (
	HealthMessage      = "GraphRAG Archaeologist Backend is running"
	MissingRepoMessage = "Missing repoUrl"
	IngestFailMessage  = "Ingestion failed"
	IngestDoneStatus   = "Ingestion complete"
)

const shutdownTimeout = 10 * time.Second

// Ingester runs one ingestion. *indexer.Ingestor is the production
// implementation.
type Ingester interface {
	Ingest(ctx context.Context, location string) (*indexer.Result, error)
}

// Options configures a Server.
type Options struct {
	CORSOrigins []string // empty means no CORS headers; "*" allows any origin
	Logger      *log.Logger
}

// Server routes HTTP requests to the ingester and graph reader.
type Server struct {
	ingester Ingester
	reader   graph.Reader
	logger   *log.Logger
	router   chi.Router
}

// New creates a server. A nil logger discards request logs.
func New(ing Ingester, reader graph.Reader, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Server{
		ingester: ing,
		reader:   reader,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(opts.CORSOrigins))

	r.Get("/health", s.handleHealth)
	r.Post("/ingest", s.handleIngest)
	r.Get("/graph", s.handleGraph)

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, HealthMessage)
}

type ingestRequest struct {
	RepoURL string `json:"repoUrl"`
}

type ingestResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	// A malformed body is reported the same way as a missing field.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if strings.TrimSpace(req.RepoURL) == "" {
		writeText(w, http.StatusBadRequest, MissingRepoMessage)
		return
	}

	// The run owns its transaction; a client hanging up must not abort it.
	ctx := context.WithoutCancel(r.Context())
	if _, err := s.ingester.Ingest(ctx, req.RepoURL); err != nil {
		s.logger.Error("ingestion failed", "repo", req.RepoURL, "err", err)
		writeText(w, http.StatusInternalServerError, IngestFailMessage)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{Status: IngestDoneStatus})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.reader.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("graph read failed", "err", err)
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/archaeologist/internal/graph"
	"github.com/mvp-joe/archaeologist/internal/indexer"
	"github.com/mvp-joe/archaeologist/internal/storage"
)

// Test Plan for the HTTP server:
// - GET /health returns the plain-text liveness message
// - POST /ingest without repoUrl (missing, empty, malformed body) is 400
// - POST /ingest passes repoUrl to the ingester and returns the status JSON
// - POST /ingest failure is 500 with a generic message
// - GET /graph returns the stored snapshot, isolated nodes included
// - GET /graph read failure is 500 with the error message
// - CORS headers for wildcard and listed origins, preflight answered
// - ListenAndServe stops when the context is cancelled

type fakeIngester struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeIngester) Ingest(_ context.Context, location string) (*indexer.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, location)
	if f.err != nil {
		return nil, f.err
	}
	return &indexer.Result{RunID: "run"}, nil
}

type failingReader struct{}

func (failingReader) Snapshot(context.Context) (*storage.Graph, error) {
	return nil, errors.New("connection refused")
}

func newTestServer(t *testing.T, ing Ingester, reader graph.Reader, origins ...string) *Server {
	t.Helper()
	if ing == nil {
		ing = &fakeIngester{}
	}
	if reader == nil {
		reader = graph.NewReader(storage.NewTestStore(t), 0)
	}
	return New(ing, reader, Options{CORSOrigins: origins})
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil, nil)

	rec := do(s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HealthMessage, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestIngest_MissingRepoURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"no body", ""},
		{"empty object", `{}`},
		{"blank url", `{"repoUrl": "  "}`},
		{"malformed json", `{"repoUrl":`},
		{"wrong field", `{"repo_url": "https://example.com/r.git"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &fakeIngester{}
			s := newTestServer(t, ing, nil)

			rec := do(s, http.MethodPost, "/ingest", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, MissingRepoMessage, rec.Body.String())
			assert.Empty(t, ing.calls)
		})
	}
}

func TestIngest_Success(t *testing.T) {
	t.Parallel()
	ing := &fakeIngester{}
	s := newTestServer(t, ing, nil)

	rec := do(s, http.MethodPost, "/ingest", `{"repoUrl":"https://github.com/acme/app.git"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Ingestion complete"}`, rec.Body.String())
	assert.Equal(t, []string{"https://github.com/acme/app.git"}, ing.calls)
}

func TestIngest_Failure(t *testing.T) {
	t.Parallel()
	ing := &fakeIngester{err: errors.New("clone failed: repository not found")}
	s := newTestServer(t, ing, nil)

	rec := do(s, http.MethodPost, "/ingest", `{"repoUrl":"https://github.com/acme/missing.git"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, IngestFailMessage, rec.Body.String())
}

func TestGraph(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewTestStore(t)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.MergeFile(ctx, "src/a.js", "import b"))
	require.NoError(t, tx.MergeFile(ctx, "src/b.js", ""))
	require.NoError(t, tx.MergeDependency(ctx, "src/a.js", "src/b.js"))
	require.NoError(t, tx.MergeFile(ctx, "lonely.py", ""))
	require.NoError(t, tx.Commit(ctx))

	s := newTestServer(t, nil, graph.NewReader(st, 0))
	rec := do(s, http.MethodGet, "/graph", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got storage.Graph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.ElementsMatch(t, []storage.Node{
		{ID: "src/a.js", Group: "file"},
		{ID: "src/b.js", Group: "file"},
		{ID: "lonely.py", Group: "file"},
	}, got.Nodes)
	assert.Equal(t, []storage.Link{{Source: "src/a.js", Target: "src/b.js", Type: "DEPENDS_ON"}}, got.Links)
}

func TestGraph_Empty(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil, nil)

	rec := do(s, http.MethodGet, "/graph", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"nodes":[],"links":[]}`, rec.Body.String())
}

func TestGraph_ReadFailure(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil, failingReader{})

	rec := do(s, http.MethodGet, "/graph", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "connection refused", rec.Body.String())
}

func TestCORS(t *testing.T) {
	t.Parallel()

	t.Run("wildcard", func(t *testing.T) {
		s := newTestServer(t, nil, nil, "*")
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("listed origin echoed", func(t *testing.T) {
		s := newTestServer(t, nil, nil, "http://app.example.com")
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://app.example.com")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, "http://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("unlisted origin", func(t *testing.T) {
		s := newTestServer(t, nil, nil, "http://app.example.com")
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		s := newTestServer(t, nil, nil, "*")
		req := httptest.NewRequest(http.MethodOptions, "/ingest", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	})
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	assert.NoError(t, <-done)
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/archaeologist/internal/indexer"
	"github.com/mvp-joe/archaeologist/internal/storage"
)

// Test Plan for CLI commands:
// - ingest --local builds the graph into the configured SQLite store
// - graph prints the stored snapshot in {nodes, links} shape
// - cycles reports circular imports, as text and JSON
// - check prints connectivity, counts and samples
// - ingest of an oversized repository fails and leaves the graph untouched
// - invalid configuration fails before any command runs
// - version prints without loading configuration
// - ProgressObserver draws the bar and summary; formatNumber separators
//
// Note: tests run commands against a SQLite file in t.TempDir(); none of them
// touch the network.

type env struct {
	cfgPath string
	dbPath  string
}

func newEnv(t *testing.T, extraYAML string) *env {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	e := &env{
		cfgPath: filepath.Join(dir, "archaeologist.yaml"),
		dbPath:  filepath.Join(dir, "graph.db"),
	}
	yaml := fmt.Sprintf("store:\n  backend: sqlite\n  sqlite:\n    path: %s\n%s", e.dbPath, extraYAML)
	require.NoError(t, os.WriteFile(e.cfgPath, []byte(yaml), 0644))
	return e
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer

	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", e.cfgPath}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestIngestLocalThenGraph(t *testing.T) {
	e := newEnv(t, "")
	repo := writeRepo(t, map[string]string{
		"src/app.js":   "import util from './util';\nimport fs from 'fs';\n",
		"src/util.js":  "export default 1;\n",
		"tools/run.py": "import os\n",
	})

	out, err := e.run(t, "ingest", "--local", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "3 discovered, 3 parsed, 0 skipped")
	assert.Contains(t, out, "Edges:      1")

	out, err = e.run(t, "graph")
	require.NoError(t, err)

	var g storage.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.ElementsMatch(t, []storage.Node{
		{ID: "src/app.js", Group: "file"},
		{ID: "src/util.js", Group: "file"},
		{ID: "tools/run.py", Group: "file"},
	}, g.Nodes)
	assert.Equal(t, []storage.Link{{Source: "src/app.js", Target: "src/util.js", Type: "DEPENDS_ON"}}, g.Links)
}

func TestIngestQuietPrintsNothing(t *testing.T) {
	e := newEnv(t, "")
	repo := writeRepo(t, map[string]string{"a.js": "require('./b')", "b.js": ""})

	out, err := e.run(t, "ingest", "--local", "--quiet", repo)

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCycles(t *testing.T) {
	e := newEnv(t, "")
	repo := writeRepo(t, map[string]string{
		"a.js": "import './b';",
		"b.js": "import './a';",
		"c.js": "import './a';",
	})

	_, err := e.run(t, "ingest", "--local", "-q", repo)
	require.NoError(t, err)

	out, err := e.run(t, "cycles")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 dependency cycle(s):")
	assert.Contains(t, out, "1. a.js, b.js")

	out, err = e.run(t, "cycles", "--json")
	require.NoError(t, err)
	var cycles [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &cycles))
	assert.Equal(t, [][]string{{"a.js", "b.js"}}, cycles)
}

func TestCycles_None(t *testing.T) {
	e := newEnv(t, "")

	out, err := e.run(t, "cycles")

	require.NoError(t, err)
	assert.Equal(t, "No dependency cycles found\n", out)
}

func TestCheck(t *testing.T) {
	e := newEnv(t, "")
	repo := writeRepo(t, map[string]string{"a.js": "import './b';", "b.js": "x"})
	_, err := e.run(t, "ingest", "--local", "-q", repo)
	require.NoError(t, err)

	out, err := e.run(t, "check")

	require.NoError(t, err)
	assert.Contains(t, out, "SUCCESS: Connected to sqlite store")
	assert.Contains(t, out, "Node count: 2")
	assert.Contains(t, out, "Relationship count: 1")
	assert.Contains(t, out, `"path": "a.js"`)
}

func TestIngestOverLimitKeepsGraph(t *testing.T) {
	e := newEnv(t, "discovery:\n  max_files: 2\n")

	small := writeRepo(t, map[string]string{"a.js": "import './b';", "b.js": ""})
	_, err := e.run(t, "ingest", "--local", "-q", small)
	require.NoError(t, err)

	big := writeRepo(t, map[string]string{"x.js": "", "y.js": "", "z.js": ""})
	_, err = e.run(t, "ingest", "--local", "-q", big)
	require.Error(t, err)

	out, err := e.run(t, "graph", "--compact")
	require.NoError(t, err)
	var g storage.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Links, 1)
}

func TestIngestRequiresOneArgument(t *testing.T) {
	e := newEnv(t, "")

	_, err := e.run(t, "ingest")

	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	e := newEnv(t, "graph:\n  row_limit: -1\n")

	_, err := e.run(t, "graph")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", "/does/not/exist.yaml", "version"})

	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "Archaeologist dev")
	assert.Contains(t, out.String(), "Git commit: none")
}

func TestProgressObserver(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := NewProgressObserver(&buf)

	p.OnDiscoveryComplete("run", 2)
	p.OnFileProcessed("run", "a.js", 1, 2)
	p.OnFileProcessed("run", "b.js", 2, 2)
	p.OnComplete(&indexer.Result{FilesParsed: 2, EdgesMerged: 1, Duration: 1500 * time.Millisecond})

	out := buf.String()
	assert.Contains(t, out, "Ingesting 2 files")
	assert.Contains(t, out, "✓ Graph built: 2 files, 1 edges (took 1.5s)")
}

func TestProgressObserver_Failure(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := NewProgressObserver(&buf)

	p.OnDiscoveryComplete("run", 3)
	p.OnFileProcessed("run", "a.js", 1, 3)
	p.OnFailed("run", assert.AnError)

	assert.Contains(t, buf.String(), "✗ Ingestion failed, previous graph kept")
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1500, "-1,500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.n))
	}
}

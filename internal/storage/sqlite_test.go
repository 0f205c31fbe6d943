package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/archaeologist/internal/config"
)

// Test Plan for the SQLite store:
// - MergeFile upserts by path and updates the snippet
// - MergeDependency creates missing targets and never duplicates edges
// - MergeDependency from an unknown source is a no-op
// - DeleteFile removes the node and edges in both directions
// - Clear empties the graph inside the transaction
// - Rollback leaves the previously committed graph untouched
// - Snapshot includes isolated nodes, dedupes nodes and honors the row limit
// - Stats reports counts and samples in insertion order
// - A closed transaction rejects further writes

func seed(t *testing.T, st Store, files map[string]string, deps [][2]string) {
	t.Helper()
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, tx.Clear(ctx))
	for path, snippet := range files {
		require.NoError(t, tx.MergeFile(ctx, path, snippet))
	}
	for _, d := range deps {
		require.NoError(t, tx.MergeDependency(ctx, d[0], d[1]))
	}
	require.NoError(t, tx.Commit(ctx))
}

func TestSQLiteStore_MergeFileUpserts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewTestStore(t)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.MergeFile(ctx, "a.js", "old"))
	require.NoError(t, tx.MergeFile(ctx, "a.js", "new"))
	require.NoError(t, tx.Commit(ctx))

	stats, err := st.Stats(ctx, DefaultSampleMax)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Nodes)
	assert.Equal(t, []FileNode{{Path: "a.js", Snippet: "new"}}, stats.Samples)
}

func TestSQLiteStore_MergeDependency(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewTestStore(t)

	seed(t, st, map[string]string{"src/a.js": "a"}, [][2]string{
		{"src/a.js", "src/b.js"},
		{"src/a.js", "src/b.js"},
		{"ghost.js", "src/a.js"},
	})

	stats, err := st.Stats(ctx, DefaultSampleMax)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Nodes, "target created once, unknown source ignored")
	assert.Equal(t, int64(1), stats.Relationships, "duplicate edges merged")

	g, err := st.Snapshot(ctx, DefaultRowLimit)
	require.NoError(t, err)
	assert.Equal(t, []Link{{Source: "src/a.js", Target: "src/b.js", Type: RelDependsOn}}, g.Links)
}

func TestSQLiteStore_DeleteFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewTestStore(t)

	seed(t, st,
		map[string]string{"a.js": "", "b.js": "", "c.js": ""},
		[][2]string{{"a.js", "b.js"}, {"b.js", "c.js"}, {"a.js", "c.js"}},
	)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.DeleteFile(ctx, "b.js"))
	require.NoError(t, tx.DeleteFile(ctx, "missing.js"))
	require.NoError(t, tx.Commit(ctx))

	g, err := st.Snapshot(ctx, DefaultRowLimit)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Node{{ID: "a.js", Group: NodeGroupFile}, {ID: "c.js", Group: NodeGroupFile}}, g.Nodes)
	assert.Equal(t, []Link{{Source: "a.js", Target: "c.js", Type: RelDependsOn}}, g.Links)
}

func TestSQLiteStore_ClearAndRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewTestStore(t)

	seed(t, st, map[string]string{"keep.js": "k"}, nil)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Clear(ctx))
	require.NoError(t, tx.MergeFile(ctx, "other.js", "o"))
	require.NoError(t, tx.Rollback(ctx))

	// second rollback and deferred rollbacks are harmless
	require.NoError(t, tx.Rollback(ctx))

	stats, err := st.Stats(ctx, DefaultSampleMax)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Nodes)
	assert.Equal(t, "keep.js", stats.Samples[0].Path)
}

func TestSQLiteStore_ClosedTxRejectsWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewTestStore(t)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	assert.ErrorIs(t, tx.MergeFile(ctx, "a.js", ""), ErrTxClosed)
	assert.ErrorIs(t, tx.Commit(ctx), ErrTxClosed)
	assert.NoError(t, tx.Rollback(ctx))
}

func TestSQLiteStore_SnapshotIncludesIsolatedNodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewTestStore(t)

	seed(t, st,
		map[string]string{"a.js": "", "b.js": "", "lonely.py": ""},
		[][2]string{{"a.js", "b.js"}},
	)

	g, err := st.Snapshot(ctx, DefaultRowLimit)
	require.NoError(t, err)

	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
		assert.Equal(t, NodeGroupFile, n.Group)
	}
	assert.ElementsMatch(t, []string{"a.js", "b.js", "lonely.py"}, ids)
	assert.Len(t, g.Links, 1)
}

func TestSQLiteStore_SnapshotRowLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewTestStore(t)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.MergeFile(ctx, "hub.js", ""))
	for _, dep := range []string{"a.js", "b.js", "c.js", "d.js"} {
		require.NoError(t, tx.MergeDependency(ctx, "hub.js", dep))
	}
	require.NoError(t, tx.Commit(ctx))

	g, err := st.Snapshot(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, g.Links, 2)
	assert.Len(t, g.Nodes, 3)
}

func TestSQLiteStore_EmptySnapshot(t *testing.T) {
	t.Parallel()
	st := NewTestStore(t)

	g, err := st.Snapshot(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Links)
	assert.Empty(t, g.Nodes)
}

func TestSQLiteStore_FilePersistsAcrossOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st, path := NewTestStoreFile(t)
	seed(t, st, map[string]string{"a.js": "x"}, nil)
	require.NoError(t, st.Close(ctx))

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close(ctx)

	require.NoError(t, reopened.Ping(ctx))
	stats, err := reopened.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Nodes)
}

func TestSQLiteStore_PingAfterClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st, err := OpenSQLite(ctx, MemoryPath)
	require.NoError(t, err)
	require.NoError(t, st.Close(ctx))

	assert.ErrorIs(t, st.Ping(ctx), ErrUnreachable)
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st, err := Open(ctx, config.StoreConfig{Backend: "SQLite", SQLite: config.SQLiteConfig{Path: MemoryPath}})
	require.NoError(t, err)
	defer st.Close(ctx)
	assert.IsType(t, &SQLiteStore{}, st)

	_, err = Open(ctx, config.StoreConfig{Backend: "redis"})
	assert.Error(t, err)
}

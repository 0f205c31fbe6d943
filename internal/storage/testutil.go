package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestStore creates an in-memory SQLite store with the schema applied.
// Cleanup is registered with t.Cleanup().
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    st := storage.NewTestStore(t)
//	    // ... test code ...
//	}
func NewTestStore(t testing.TB) *SQLiteStore {
	t.Helper()

	st, err := OpenSQLite(context.Background(), MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close(context.Background()) })

	return st
}

// NewTestStoreFile creates a file-backed SQLite store in t.TempDir().
// Use it when a test reopens the database or needs several connections.
func NewTestStoreFile(t testing.TB) (*SQLiteStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	st, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close(context.Background()) })

	return st, path
}

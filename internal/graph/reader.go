// Package graph serves the stored dependency graph to readers: bounded
// snapshots for visualization, a TTL cache in front of them, and structural
// queries (cycles, dependencies, dependents) over a snapshot.
package graph

import (
	"context"
	"fmt"

	"github.com/mvp-joe/archaeologist/internal/storage"
)

// Reader returns the current graph snapshot.
type Reader interface {
	Snapshot(ctx context.Context) (*storage.Graph, error)
}

// StoreReader reads snapshots straight from a store.
type StoreReader struct {
	store storage.Store
	limit int
}

var _ Reader = (*StoreReader)(nil)

// NewReader creates a reader returning at most limit rows per snapshot.
// A non-positive limit uses storage.DefaultRowLimit.
func NewReader(st storage.Store, limit int) *StoreReader {
	if limit <= 0 {
		limit = storage.DefaultRowLimit
	}
	return &StoreReader{store: st, limit: limit}
}

// Snapshot queries the store. It never writes.
func (r *StoreReader) Snapshot(ctx context.Context) (*storage.Graph, error) {
	g, err := r.store.Snapshot(ctx, r.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	return g, nil
}

package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/archaeologist/internal/indexer"
	"github.com/mvp-joe/archaeologist/internal/storage"
)

const snapshotKey = "snapshot"

// otter admits an entry only when its cost fits in a tenth of the capacity.
const snapshotCapacity = 16

// CachedReader keeps the last snapshot for a fixed time. A committed
// ingestion invalidates it through the observer returned by Invalidator.
type CachedReader struct {
	next  Reader
	cache *otter.Cache[string, *storage.Graph] // nil when caching is off
}

var _ Reader = (*CachedReader)(nil)

// NewCachedReader wraps next. A zero ttl disables caching and returns a
// pass-through reader.
func NewCachedReader(next Reader, ttl time.Duration) (*CachedReader, error) {
	c := &CachedReader{next: next}
	if ttl <= 0 {
		return c, nil
	}

	cache, err := otter.MustBuilder[string, *storage.Graph](snapshotCapacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot cache: %w", err)
	}
	c.cache = &cache
	return c, nil
}

// Snapshot returns the cached snapshot or reads a fresh one. Callers must
// not modify the returned graph.
func (c *CachedReader) Snapshot(ctx context.Context) (*storage.Graph, error) {
	if c.cache == nil {
		return c.next.Snapshot(ctx)
	}
	if g, ok := c.cache.Get(snapshotKey); ok {
		return g, nil
	}

	g, err := c.next.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(snapshotKey, g)
	return g, nil
}

// Invalidate drops the cached snapshot.
func (c *CachedReader) Invalidate() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Close stops the cache's background cleanup.
func (c *CachedReader) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// Invalidator returns an ingestion observer that drops the cache after every
// committed run.
func (c *CachedReader) Invalidator() indexer.Observer {
	return invalidator{c: c}
}

type invalidator struct {
	indexer.NoOpObserver
	c *CachedReader
}

func (i invalidator) OnComplete(*indexer.Result) {
	i.c.Invalidate()
}

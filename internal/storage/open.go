package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/mvp-joe/archaeologist/internal/config"
)

// Backend names accepted by Open.
const (
	BackendNeo4j  = "neo4j"
	BackendSQLite = "sqlite"
)

// Open constructs the store selected by cfg. The caller owns the store and
// must Close it. Connectivity is not checked; call Ping before serving.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendNeo4j:
		st, err := OpenNeo4j(Neo4jConfig{
			URI:      cfg.Neo4j.URI,
			User:     cfg.Neo4j.User,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	case BackendSQLite:
		st, err := OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

package storage

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jConfig holds the Bolt connection settings.
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string // empty means the server default
}

// Neo4jStore keeps the graph in Neo4j as (:File {path, snippet}) nodes joined
// by [:DEPENDS_ON] relationships.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

var _ Store = (*Neo4jStore)(nil)

// Cypher statements.
const (
	cypherClear        = `MATCH (n) DETACH DELETE n`
	cypherMergeFile    = `MERGE (f:File {path: $path}) SET f.snippet = $snippet`
	cypherMergeDep     = `MATCH (f:File {path: $from}) MERGE (t:File {path: $to}) MERGE (f)-[:DEPENDS_ON]->(t)`
	cypherDeleteFile   = `MATCH (f:File {path: $path}) DETACH DELETE f`
	cypherSnapshot     = `MATCH (n:File) OPTIONAL MATCH (n)-[r]->(m) RETURN n, r, m LIMIT $limit`
	cypherCountNodes   = `MATCH (n) RETURN count(n) AS count`
	cypherCountRels    = `MATCH ()-[r]->() RETURN count(r) AS count`
	cypherSampleNodes  = `MATCH (n) RETURN n LIMIT $limit`
	cypherConnectivity = `RETURN 1 AS num`
)

// OpenNeo4j creates a driver for cfg. It does not contact the server; call
// Ping to verify connectivity. TLS is selected by the URI scheme
// (neo4j+s://, bolt+s://).
func OpenNeo4j(cfg Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return &Neo4jStore{driver: driver, database: cfg.Database}, nil
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// Begin opens an explicit write transaction on a fresh session.
func (s *Neo4jStore) Begin(ctx context.Context) (Tx, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &neo4jTx{session: session, tx: tx}, nil
}

// Snapshot runs the optional-match join and folds the rows into a graph.
func (s *Neo4jStore) Snapshot(ctx context.Context, limit int) (*Graph, error) {
	if limit <= 0 {
		limit = DefaultRowLimit
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	records, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]*neo4j.Record, error) {
		res, err := tx.Run(ctx, cypherSnapshot, map[string]any{"limit": limit})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	return foldRows(snapshotRows(records)), nil
}

// snapshotRows converts (n, r, m) records. Nodes are keyed by element id.
func snapshotRows(records []*neo4j.Record) []snapshotRow {
	rows := make([]snapshotRow, 0, len(records))
	for _, record := range records {
		n, ok := nodeFromRecord(record, "n")
		if !ok {
			continue
		}
		row := snapshotRow{nodeKey: n.ElementId, nodePath: stringProp(n.Props, "path")}

		r, rok := relationshipFromRecord(record, "r")
		m, mok := nodeFromRecord(record, "m")
		if rok && mok {
			row.relType = r.Type
			row.neighborKey = m.ElementId
			row.neighborPath = stringProp(m.Props, "path")
		}
		rows = append(rows, row)
	}
	return rows
}

// Stats mirrors the node/relationship counts and sample listing.
func (s *Neo4jStore) Stats(ctx context.Context, samples int) (*Stats, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	return neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (*Stats, error) {
		stats := &Stats{Samples: []FileNode{}}

		nodes, err := singleCount(ctx, tx, cypherCountNodes)
		if err != nil {
			return nil, fmt.Errorf("failed to count nodes: %w", err)
		}
		rels, err := singleCount(ctx, tx, cypherCountRels)
		if err != nil {
			return nil, fmt.Errorf("failed to count relationships: %w", err)
		}
		stats.Nodes, stats.Relationships = nodes, rels

		if samples <= 0 {
			return stats, nil
		}

		res, err := tx.Run(ctx, cypherSampleNodes, map[string]any{"limit": samples})
		if err != nil {
			return nil, fmt.Errorf("failed to query sample nodes: %w", err)
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read sample nodes: %w", err)
		}
		for _, record := range records {
			if n, ok := nodeFromRecord(record, "n"); ok {
				stats.Samples = append(stats.Samples, FileNode{
					Path:    stringProp(n.Props, "path"),
					Snippet: stringProp(n.Props, "snippet"),
				})
			}
		}
		return stats, nil
	})
}

func singleCount(ctx context.Context, tx neo4j.ManagedTransaction, cypher string) (int64, error) {
	res, err := tx.Run(ctx, cypher, nil)
	if err != nil {
		return 0, err
	}
	record, err := res.Single(ctx)
	if err != nil {
		return 0, err
	}
	count, _, err := neo4j.GetRecordValue[int64](record, "count")
	return count, err
}

// Ping verifies connectivity and that the server runs a trivial query.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypherConnectivity, nil)
	if err == nil {
		_, err = res.Consume(ctx)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

// Close closes the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

type neo4jTx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	done    bool
}

func (t *neo4jTx) run(ctx context.Context, cypher string, params map[string]any) error {
	if t.done {
		return ErrTxClosed
	}
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func (t *neo4jTx) Clear(ctx context.Context) error {
	if err := t.run(ctx, cypherClear, nil); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}
	return nil
}

func (t *neo4jTx) MergeFile(ctx context.Context, path, snippet string) error {
	params := map[string]any{"path": path, "snippet": snippet}
	if err := t.run(ctx, cypherMergeFile, params); err != nil {
		return fmt.Errorf("failed to merge file %s: %w", path, err)
	}
	return nil
}

func (t *neo4jTx) MergeDependency(ctx context.Context, from, to string) error {
	params := map[string]any{"from": from, "to": to}
	if err := t.run(ctx, cypherMergeDep, params); err != nil {
		return fmt.Errorf("failed to merge dependency %s -> %s: %w", from, to, err)
	}
	return nil
}

func (t *neo4jTx) DeleteFile(ctx context.Context, path string) error {
	if err := t.run(ctx, cypherDeleteFile, map[string]any{"path": path}); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

func (t *neo4jTx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxClosed
	}
	t.done = true
	defer t.session.Close(ctx)

	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback is a no-op after Commit or a previous Rollback.
func (t *neo4jTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.session.Close(ctx)

	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func nodeFromRecord(record *neo4j.Record, key string) (neo4j.Node, bool) {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return neo4j.Node{}, false
	}
	n, ok := val.(neo4j.Node)
	return n, ok
}

func relationshipFromRecord(record *neo4j.Record, key string) (neo4j.Relationship, bool) {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return neo4j.Relationship{}, false
	}
	r, ok := val.(neo4j.Relationship)
	return r, ok
}

func stringProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

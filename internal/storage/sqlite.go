package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore keeps the graph in an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists. MemoryPath gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != MemoryPath {
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign keys (required for cascade deletes)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := CreateSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Begin opens a write transaction.
func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

// Snapshot returns up to limit rows of the graph. Rows are ordered by node
// insertion so the truncation point is stable.
func (s *SQLiteStore) Snapshot(ctx context.Context, limit int) (*Graph, error) {
	if limit <= 0 {
		limit = DefaultRowLimit
	}

	query := sq.Select("n.id", "n.path", "d.kind", "m.id", "m.path").
		From("files n").
		LeftJoin("dependencies d ON d.from_id = n.id").
		LeftJoin("files m ON m.id = d.to_id").
		OrderBy("n.id", "m.id").
		Limit(uint64(limit))

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var out []snapshotRow
	for rows.Next() {
		var (
			nodeID     int64
			nodePath   string
			kind       sql.NullString
			neighborID sql.NullInt64
			neighbor   sql.NullString
		)
		if err := rows.Scan(&nodeID, &nodePath, &kind, &neighborID, &neighbor); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		row := snapshotRow{nodeKey: fmt.Sprint(nodeID), nodePath: nodePath}
		if kind.Valid && neighborID.Valid {
			row.relType = kind.String
			row.neighborKey = fmt.Sprint(neighborID.Int64)
			row.neighborPath = neighbor.String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot rows: %w", err)
	}

	return foldRows(out), nil
}

// Stats counts nodes and edges and returns the first few nodes.
func (s *SQLiteStore) Stats(ctx context.Context, samples int) (*Stats, error) {
	stats := &Stats{Samples: []FileNode{}}

	if err := sq.Select("COUNT(*)").From("files").RunWith(s.db).QueryRowContext(ctx).Scan(&stats.Nodes); err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	if err := sq.Select("COUNT(*)").From("dependencies").RunWith(s.db).QueryRowContext(ctx).Scan(&stats.Relationships); err != nil {
		return nil, fmt.Errorf("failed to count dependencies: %w", err)
	}

	if samples <= 0 {
		return stats, nil
	}

	rows, err := sq.Select("path", "snippet").From("files").OrderBy("id").Limit(uint64(samples)).
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query sample files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n FileNode
		if err := rows.Scan(&n.Path, &n.Snippet); err != nil {
			return nil, fmt.Errorf("failed to scan sample file: %w", err)
		}
		stats.Samples = append(stats.Samples, n)
	}
	return stats, rows.Err()
}

// Ping verifies the database answers queries.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

// DB exposes the underlying connection for tests and diagnostics.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

type sqliteTx struct {
	tx   *sql.Tx
	done bool
}

func (t *sqliteTx) Clear(ctx context.Context) error {
	if t.done {
		return ErrTxClosed
	}
	// Clear in reverse dependency order to avoid FK violations
	for _, table := range []string{"dependencies", "files"} {
		if _, err := sq.Delete(table).RunWith(t.tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func (t *sqliteTx) MergeFile(ctx context.Context, path, snippet string) error {
	if t.done {
		return ErrTxClosed
	}
	_, err := sq.Insert("files").
		Columns("path", "snippet").
		Values(path, snippet).
		Suffix("ON CONFLICT(path) DO UPDATE SET snippet = excluded.snippet").
		RunWith(t.tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to merge file %s: %w", path, err)
	}
	return nil
}

func (t *sqliteTx) MergeDependency(ctx context.Context, from, to string) error {
	if t.done {
		return ErrTxClosed
	}

	_, err := sq.Insert("files").
		Columns("path").
		Values(to).
		Suffix("ON CONFLICT(path) DO NOTHING").
		RunWith(t.tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to merge dependency target %s: %w", to, err)
	}

	// Inserts nothing when the source node is missing.
	sel := sq.Select("f.id", "t.id").
		Column(sq.Expr("?", RelDependsOn)).
		From("files f, files t").
		Where(sq.Eq{"f.path": from, "t.path": to})

	_, err = sq.Insert("dependencies").
		Options("OR IGNORE").
		Columns("from_id", "to_id", "kind").
		Select(sel).
		RunWith(t.tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to merge dependency %s -> %s: %w", from, to, err)
	}
	return nil
}

func (t *sqliteTx) DeleteFile(ctx context.Context, path string) error {
	if t.done {
		return ErrTxClosed
	}

	ids := sq.Select("id").From("files").Where(sq.Eq{"path": path})
	idSQL, idArgs, err := ids.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build file id query: %w", err)
	}

	_, err = sq.Delete("dependencies").
		Where(sq.Or{
			sq.Expr("from_id IN ("+idSQL+")", idArgs...),
			sq.Expr("to_id IN ("+idSQL+")", idArgs...),
		}).
		RunWith(t.tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete dependencies of %s: %w", path, err)
	}

	if _, err := sq.Delete("files").Where(sq.Eq{"path": path}).RunWith(t.tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

func (t *sqliteTx) Commit(context.Context) error {
	if t.done {
		return ErrTxClosed
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback is a no-op after Commit or a previous Rollback.
func (t *sqliteTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates the files and dependencies tables if they do not exist.
// Runs in one transaction so a partial schema is never left behind.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	statements := []struct {
		name string
		ddl  string
	}{
		{"files", createFilesTable},
		{"dependencies", createDependenciesTable},
		{"idx_dependencies_to", createDependenciesToIndex},
	}

	for _, s := range statements {
		if _, err := tx.ExecContext(ctx, s.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    path    TEXT NOT NULL UNIQUE,
    snippet TEXT NOT NULL DEFAULT ''
)`

// Edges reference files by id; the primary key gives merge semantics.
const createDependenciesTable = `
CREATE TABLE IF NOT EXISTS dependencies (
    from_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    to_id   INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    kind    TEXT NOT NULL,
    PRIMARY KEY (from_id, to_id, kind)
)`

const createDependenciesToIndex = `
CREATE INDEX IF NOT EXISTS idx_dependencies_to ON dependencies(to_id)`

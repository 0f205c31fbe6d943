// Package storage persists the file dependency graph.
//
// Two backends implement Store: Neo4j for production and SQLite for embedded
// use and tests. Both apply merge semantics, so writing the same file or the
// same dependency twice inside one transaction leaves a single node or edge.
package storage

import (
	"context"
	"errors"
)

// Label and relationship kind written by every backend.
const (
	LabelFile        = "File"
	RelDependsOn     = "DEPENDS_ON"
	NodeGroupFile    = "file"
	DefaultRowLimit  = 1000
	DefaultSampleMax = 5
)

var (
	// ErrUnreachable is returned when the store cannot be contacted.
	ErrUnreachable = errors.New("graph store unreachable")

	// ErrTxClosed is returned when a committed or rolled back transaction is used.
	ErrTxClosed = errors.New("transaction already closed")
)

// Store is a graph store holding File nodes and DEPENDS_ON edges.
type Store interface {
	// Begin opens a write transaction. Nothing is visible to readers until Commit.
	Begin(ctx context.Context) (Tx, error)

	// Snapshot returns up to limit (node, edge, neighbor) rows folded into a
	// graph. Isolated nodes are included.
	Snapshot(ctx context.Context, limit int) (*Graph, error)

	// Stats returns counts and a few sample nodes.
	Stats(ctx context.Context, samples int) (*Stats, error)

	// Ping verifies connectivity. Failures wrap ErrUnreachable.
	Ping(ctx context.Context) error

	Close(ctx context.Context) error
}

// Tx is one write transaction against a Store.
type Tx interface {
	// Clear removes every node and edge.
	Clear(ctx context.Context) error

	// MergeFile creates the node for path if absent and sets its snippet.
	MergeFile(ctx context.Context, path, snippet string) error

	// MergeDependency creates the edge from -> to, creating the target node
	// if it does not yet exist. The source node must already exist.
	MergeDependency(ctx context.Context, from, to string) error

	// DeleteFile removes the node for path and every edge touching it.
	DeleteFile(ctx context.Context, path string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Node is one file in a snapshot.
type Node struct {
	ID    string `json:"id"`
	Group string `json:"group"`
}

// Link is one dependency in a snapshot.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Graph is the visualization payload.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Stats summarizes the stored graph.
type Stats struct {
	Nodes         int64
	Relationships int64
	Samples       []FileNode
}

// FileNode is a stored node with its properties.
type FileNode struct {
	Path    string `json:"path"`
	Snippet string `json:"snippet"`
}

// snapshotRow is one (node, edge, neighbor) row. Edge fields are empty when
// the node has no outgoing edge.
type snapshotRow struct {
	nodeKey      string
	nodePath     string
	relType      string
	neighborKey  string
	neighborPath string
}

// foldRows builds a Graph from snapshot rows, deduplicating nodes by their
// store identity and keeping first-seen order.
func foldRows(rows []snapshotRow) *Graph {
	g := &Graph{Nodes: []Node{}, Links: []Link{}}
	seen := make(map[string]bool)

	add := func(key, path string) {
		if seen[key] {
			return
		}
		seen[key] = true
		g.Nodes = append(g.Nodes, Node{ID: path, Group: NodeGroupFile})
	}

	for _, row := range rows {
		add(row.nodeKey, row.nodePath)
		if row.relType == "" || row.neighborKey == "" {
			continue
		}
		add(row.neighborKey, row.neighborPath)
		g.Links = append(g.Links, Link{Source: row.nodePath, Target: row.neighborPath, Type: row.relType})
	}
	return g
}

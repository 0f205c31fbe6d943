package graph

import (
	"errors"
	"fmt"
	"sort"

	dgraph "github.com/dominikbraun/graph"

	"github.com/mvp-joe/archaeologist/internal/storage"
)

// QueryOperation selects the traversal direction.
type QueryOperation string

const (
	OperationDependencies QueryOperation = "dependencies"
	OperationDependents   QueryOperation = "dependents"
)

// Query defaults and limits
const (
	DefaultDepth      = 1
	DefaultMaxResults = 100
	MaxDepth          = 10
)

// ErrUnknownFile is returned when a query names a file that is not in the snapshot.
var ErrUnknownFile = errors.New("file not in graph")

// QueryRequest is a traversal request.
type QueryRequest struct {
	Operation  QueryOperation
	Target     string
	Depth      int // default 1, capped at MaxDepth
	MaxResults int // default 100
}

// QueryResult is one file reached by a traversal.
type QueryResult struct {
	Path  string `json:"path"`
	Depth int    `json:"depth"`
}

// QueryResponse is the answer to a QueryRequest.
type QueryResponse struct {
	Operation     string        `json:"operation"`
	Target        string        `json:"target"`
	Results       []QueryResult `json:"results"`
	TotalFound    int           `json:"total_found"`
	TotalReturned int           `json:"total_returned"`
	Truncated     bool          `json:"truncated"`
}

// Analysis answers structural questions about one snapshot.
type Analysis struct {
	g          dgraph.Graph[string, string]
	successors map[string]map[string]dgraph.Edge[string]
	preds      map[string]map[string]dgraph.Edge[string]
}

// Analyze builds an in-memory directed graph from a snapshot.
func Analyze(snapshot *storage.Graph) (*Analysis, error) {
	g := dgraph.New(dgraph.StringHash, dgraph.Directed())

	for _, n := range snapshot.Nodes {
		if err := g.AddVertex(n.ID); err != nil && !errors.Is(err, dgraph.ErrVertexAlreadyExists) {
			return nil, fmt.Errorf("failed to add node %s: %w", n.ID, err)
		}
	}
	for _, l := range snapshot.Links {
		err := g.AddEdge(l.Source, l.Target)
		if err != nil && !errors.Is(err, dgraph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("failed to add edge %s -> %s: %w", l.Source, l.Target, err)
		}
	}

	successors, err := g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to build adjacency map: %w", err)
	}
	preds, err := g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to build predecessor map: %w", err)
	}

	return &Analysis{g: g, successors: successors, preds: preds}, nil
}

// Cycles returns every dependency cycle as a sorted list of files. A cycle
// is a strongly connected component with more than one file, or a file that
// imports itself. Cycles are ordered by their first file.
func (a *Analysis) Cycles() ([][]string, error) {
	components, err := dgraph.StronglyConnectedComponents(a.g)
	if err != nil {
		return nil, fmt.Errorf("failed to compute strongly connected components: %w", err)
	}

	cycles := [][]string{}
	for _, c := range components {
		if len(c) == 1 {
			if _, self := a.successors[c[0]][c[0]]; !self {
				continue
			}
		}
		sorted := append([]string(nil), c...)
		sort.Strings(sorted)
		cycles = append(cycles, sorted)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles, nil
}

// Query walks dependencies or dependents of the target up to the requested
// depth. Each file is reported once, at the shallowest depth it was reached.
func (a *Analysis) Query(req QueryRequest) (*QueryResponse, error) {
	if req.Depth <= 0 {
		req.Depth = DefaultDepth
	}
	if req.Depth > MaxDepth {
		req.Depth = MaxDepth
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}

	var adjacency map[string]map[string]dgraph.Edge[string]
	switch req.Operation {
	case OperationDependencies:
		adjacency = a.successors
	case OperationDependents:
		adjacency = a.preds
	default:
		return nil, fmt.Errorf("unsupported operation: %s", req.Operation)
	}

	if _, ok := adjacency[req.Target]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFile, req.Target)
	}

	found := traverse(adjacency, req.Target, req.Depth)

	results := found
	if len(results) > req.MaxResults {
		results = results[:req.MaxResults]
	}

	return &QueryResponse{
		Operation:     string(req.Operation),
		Target:        req.Target,
		Results:       results,
		TotalFound:    len(found),
		TotalReturned: len(results),
		Truncated:     len(results) < len(found),
	}, nil
}

// traverse is a breadth-first walk; neighbors at each level are visited in
// path order so results are stable.
func traverse(adjacency map[string]map[string]dgraph.Edge[string], target string, depth int) []QueryResult {
	results := []QueryResult{}
	visited := map[string]bool{target: true}
	frontier := []string{target}

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var next []string
		for _, id := range frontier {
			neighbors := make([]string, 0, len(adjacency[id]))
			for n := range adjacency[id] {
				neighbors = append(neighbors, n)
			}
			sort.Strings(neighbors)

			for _, n := range neighbors {
				if visited[n] {
					continue
				}
				visited[n] = true
				results = append(results, QueryResult{Path: n, Depth: level})
				next = append(next, n)
			}
		}
		frontier = next
	}
	return results
}

// Package extraction collects import specifiers from syntax trees.
package extraction

import (
	"fmt"
	"strings"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/archaeologist/internal/indexer/parsers"
)

// Extractor runs the import pattern table against syntax trees. Compiled
// queries are cached per (grammar, family); an Extractor is safe for
// concurrent use.
type Extractor struct {
	mu       sync.Mutex
	patterns map[Family][]Pattern
	queries  map[queryKey]*compiledQuery
}

type queryKey struct {
	language *sitter.Language
	family   Family
}

type compiledQuery struct {
	query    *sitter.Query
	patterns []Pattern
	err      error
}

// New creates an extractor over the default pattern table.
func New() *Extractor {
	return NewWithPatterns(Patterns)
}

// NewWithPatterns creates an extractor over a custom pattern table.
func NewWithPatterns(patterns map[Family][]Pattern) *Extractor {
	return &Extractor{
		patterns: patterns,
		queries:  make(map[queryKey]*compiledQuery),
	}
}

// Extract returns the raw specifiers declared in tree, in document order.
// A query that does not compile against the tree's grammar yields an empty
// result with CompileErr set; it is never returned as an error.
func (e *Extractor) Extract(tree *parsers.Tree) Result {
	family := FamilyForRoot(tree.RootKind())
	result := Result{Family: family, Specifiers: []string{}}

	cq := e.compiled(tree.Language(), family)
	if cq.err != nil {
		result.CompileErr = cq.err
		return result
	}

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	names := cq.query.CaptureNames()
	matches := cursor.Matches(cq.query, tree.Root(), tree.Source)
	for match := matches.Next(); match != nil; match = matches.Next() {
		pattern := cq.patterns[match.PatternIndex]

		var specifier, callee string
		var found bool
		for _, capture := range match.Captures {
			switch names[capture.Index] {
			case CaptureSpecifier:
				specifier = capture.Node.Utf8Text(tree.Source)
				found = true
			case CaptureCallee:
				callee = capture.Node.Utf8Text(tree.Source)
			}
		}

		if !found || (pattern.Callee != "" && callee != pattern.Callee) {
			continue
		}
		result.Specifiers = append(result.Specifiers, StripQuotes(specifier))
	}

	return result
}

// compiled returns the cached query for a grammar and family, compiling it on
// first use. Compile failures are cached too.
func (e *Extractor) compiled(lang *sitter.Language, family Family) *compiledQuery {
	key := queryKey{language: lang, family: family}

	e.mu.Lock()
	defer e.mu.Unlock()

	if cq, ok := e.queries[key]; ok {
		return cq
	}

	patterns := e.patterns[family]
	cq := &compiledQuery{patterns: patterns}

	if len(patterns) == 0 {
		cq.err = fmt.Errorf("no patterns for family %s", family)
	} else {
		sources := make([]string, len(patterns))
		for i, p := range patterns {
			sources[i] = p.Query
		}
		query, qerr := sitter.NewQuery(lang, strings.Join(sources, "\n"))
		if qerr != nil {
			cq.err = fmt.Errorf("failed to compile %s import query: %s", family, qerr.Error())
		} else {
			cq.query = query
		}
	}

	e.queries[key] = cq
	return cq
}

// Close releases every compiled query.
func (e *Extractor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for key, cq := range e.queries {
		if cq.query != nil {
			cq.query.Close()
		}
		delete(e.queries, key)
	}
}

// StripQuotes removes one surrounding quote character (', " or `) from each
// end of s, if present.
func StripQuotes(s string) string {
	if len(s) > 0 && strings.ContainsRune("'\"`", rune(s[0])) {
		s = s[1:]
	}
	if len(s) > 0 && strings.ContainsRune("'\"`", rune(s[len(s)-1])) {
		s = s[:len(s)-1]
	}
	return s
}

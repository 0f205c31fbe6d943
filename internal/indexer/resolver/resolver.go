// Package resolver maps raw import specifiers to files in the discovered set.
package resolver

import (
	"path"
	"strings"
)

// RelationDependsOn is the only relationship kind the graph carries.
const RelationDependsOn = "DEPENDS_ON"

// DefaultRootMarkers are prefixes that make a specifier repository-absolute.
var DefaultRootMarkers = []string{"src/"}

// Extensions are tried, in order, as suffixes of the base path.
var Extensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".py", ".ipynb"}

// IndexFiles are tried, in order, beneath the base path when it names a directory.
var IndexFiles = []string{
	"/index.js",
	"/index.jsx",
	"/index.ts",
	"/index.tsx",
	"/index.ipynb",
	"/index.py",
	"/__init__.py",
}

// Edge is a resolved dependency between two discovered files.
type Edge struct {
	From string
	To   string
	Kind string
}

// Resolver resolves specifiers against one run's discovered path set.
type Resolver struct {
	paths       map[string]bool
	rootMarkers []string
}

// New creates a resolver. An empty rootMarkers uses DefaultRootMarkers.
func New(paths map[string]bool, rootMarkers []string) *Resolver {
	if len(rootMarkers) == 0 {
		rootMarkers = DefaultRootMarkers
	}
	return &Resolver{paths: paths, rootMarkers: rootMarkers}
}

// Resolve returns the discovered path that specifier refers to when imported
// from fromPath. The first candidate present in the path set wins.
func (r *Resolver) Resolve(fromPath, specifier string) (string, bool) {
	for _, candidate := range Candidates(r.Base(fromPath, specifier)) {
		if r.paths[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// ResolveAll resolves every specifier for fromPath. Resolved specifiers become
// edges in input order; the rest are returned separately.
func (r *Resolver) ResolveAll(fromPath string, specifiers []string) (edges []Edge, unresolved []string) {
	for _, s := range specifiers {
		target, ok := r.Resolve(fromPath, s)
		if !ok {
			unresolved = append(unresolved, s)
			continue
		}
		edges = append(edges, Edge{From: fromPath, To: target, Kind: RelationDependsOn})
	}
	return edges, unresolved
}

// Base computes the path a specifier points at before any suffix is added.
// Specifiers starting with a root marker are taken as-is; everything else is
// joined to the importing file's directory and cleaned. A trailing slash is
// kept, so a specifier naming a directory never matches a sibling file.
func (r *Resolver) Base(fromPath, specifier string) string {
	for _, marker := range r.rootMarkers {
		if strings.HasPrefix(specifier, marker) {
			return specifier
		}
	}
	specifier = toSlash(specifier)
	base := path.Join(path.Dir(toSlash(fromPath)), specifier)
	if strings.HasSuffix(specifier, "/") && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// Candidates lists the paths tried for base, in priority order.
func Candidates(base string) []string {
	out := make([]string, 0, 1+len(Extensions)+len(IndexFiles))
	out = append(out, base)
	for _, ext := range Extensions {
		out = append(out, base+ext)
	}
	for _, idx := range IndexFiles {
		out = append(out, base+idx)
	}
	return out
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

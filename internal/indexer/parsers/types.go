package parsers

import sitter "github.com/tree-sitter/go-tree-sitter"

// Root node kinds that distinguish language families.
const (
	RootModule  = "module"  // python
	RootProgram = "program" // javascript, typescript, tsx
)

// Tree is the parse result for one file. It lives only for the duration of
// the file's processing step.
type Tree struct {
	Path   string
	Tag    Tag
	Source []byte

	tree     *sitter.Tree
	language *sitter.Language
}

// Root returns the root node of the syntax tree.
func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

// RootKind returns the declared type of the root node.
func (t *Tree) RootKind() string {
	return t.Root().Kind()
}

// Language returns the grammar that actually produced the tree, which differs
// from Tag when the tag is degraded.
func (t *Tree) Language() *sitter.Language {
	return t.language
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

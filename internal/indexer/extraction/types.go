package extraction

import "github.com/mvp-joe/archaeologist/internal/indexer/parsers"

// Family groups grammars that share import syntax.
type Family string

const (
	FamilyPython Family = "python"
	FamilyScript Family = "script"
)

// Capture names used by the pattern table.
const (
	// CaptureSpecifier marks the text that names the imported module.
	CaptureSpecifier = "specifier"
	// CaptureCallee marks the called function in call-form imports; the match
	// only counts when its text equals Pattern.Callee.
	CaptureCallee = "callee"
)

// Pattern is one structural import form.
type Pattern struct {
	Name   string
	Query  string
	Callee string // required callee text, empty when the pattern has no call
}

// Patterns is the ordered table of import forms per family. Query strings
// are tree-sitter S-expressions compiled against whichever grammar actually
// produced the tree.
var Patterns = map[Family][]Pattern{
	FamilyPython: {
		{
			Name:  "import",
			Query: `(import_statement name: (dotted_name) @specifier)`,
		},
		{
			Name:  "import_as",
			Query: `(import_statement name: (aliased_import name: (dotted_name) @specifier))`,
		},
		{
			Name:  "from_import",
			Query: `(import_from_statement module_name: (dotted_name) @specifier)`,
		},
	},
	FamilyScript: {
		{
			Name:  "import",
			Query: `(import_statement source: (string (string_fragment) @specifier))`,
		},
		{
			Name: "require",
			Query: `(call_expression
	function: (identifier) @callee
	arguments: (arguments (string (string_fragment) @specifier))
	(#eq? @callee "require"))`,
			Callee: "require",
		},
	},
}

// FamilyForRoot selects the pattern family from the tree's root node kind.
// Anything that is not a python module uses the script patterns.
func FamilyForRoot(kind string) Family {
	if kind == parsers.RootModule {
		return FamilyPython
	}
	return FamilyScript
}

// Result is what extraction produced for one file.
type Result struct {
	Family     Family
	Specifiers []string
	// CompileErr is set when the family's query did not compile against the
	// tree's grammar. Specifiers is then empty.
	CompileErr error
}

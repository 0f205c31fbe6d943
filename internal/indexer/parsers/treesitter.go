package parsers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unsafe"

	sitter "github.com/tree-sitter/go-tree-sitter"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Tag names a grammar in the registry.
type Tag string

const (
	TagJavaScript Tag = "javascript"
	TagTypeScript Tag = "typescript"
	TagTSX        Tag = "tsx"
	TagPython     Tag = "python"
)

var (
	// ErrParseFailed is returned when a grammar cannot produce a tree for a file.
	ErrParseFailed = errors.New("failed to parse")

	// ErrRequiredGrammar is returned at startup when the javascript or python
	// grammar cannot be registered.
	ErrRequiredGrammar = errors.New("required grammar unavailable")
)

// fallbackTag is what an optional grammar degrades to.
const fallbackTag = TagJavaScript

// optional grammars may be missing; everything else is required.
var optional = map[Tag]bool{
	TagTypeScript: true,
	TagTSX:        true,
}

// loader returns the raw tree-sitter language pointer for a grammar.
type loader func() unsafe.Pointer

var defaultLoaders = map[Tag]loader{
	TagJavaScript: javascript.Language,
	TagTypeScript: typescript.LanguageTypescript,
	TagTSX:        typescript.LanguageTSX,
	TagPython:     python.Language,
}

// Options configures the registry.
type Options struct {
	// Disabled lists optional grammars to leave unregistered.
	Disabled []string
}

// Registry maps grammar tags to tree-sitter languages. It is built once at
// process start and is safe for concurrent use afterwards.
type Registry struct {
	languages map[Tag]*sitter.Language
	degraded  map[Tag]error
}

// NewRegistry registers every known grammar. Optional grammars that fail to
// register fall back to javascript and are reported by Degraded.
func NewRegistry(opts Options) (*Registry, error) {
	return newRegistry(defaultLoaders, opts)
}

func newRegistry(loaders map[Tag]loader, opts Options) (*Registry, error) {
	disabled := make(map[Tag]bool, len(opts.Disabled))
	for _, name := range opts.Disabled {
		disabled[Tag(strings.ToLower(name))] = true
	}

	r := &Registry{
		languages: make(map[Tag]*sitter.Language, len(loaders)),
		degraded:  make(map[Tag]error),
	}

	for tag, load := range loaders {
		if disabled[tag] {
			if !optional[tag] {
				return nil, fmt.Errorf("%w: %s cannot be disabled", ErrRequiredGrammar, tag)
			}
			r.degraded[tag] = errors.New("disabled by configuration")
			continue
		}

		lang, err := register(load)
		if err != nil {
			if !optional[tag] {
				return nil, fmt.Errorf("%w: %s: %v", ErrRequiredGrammar, tag, err)
			}
			r.degraded[tag] = err
			continue
		}
		r.languages[tag] = lang
	}

	if _, ok := r.languages[fallbackTag]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrRequiredGrammar, fallbackTag)
	}

	return r, nil
}

// register loads a grammar and checks that the runtime accepts it.
func register(load loader) (*sitter.Language, error) {
	if load == nil {
		return nil, errors.New("no loader")
	}
	ptr := load()
	if ptr == nil {
		return nil, errors.New("grammar not linked")
	}
	lang := sitter.NewLanguage(ptr)

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang); err != nil {
		return nil, err
	}
	return lang, nil
}

// FullFidelity reports whether tag is served by its own grammar rather than
// the javascript fallback.
func (r *Registry) FullFidelity(tag Tag) bool {
	_, ok := r.languages[tag]
	return ok
}

// Degraded returns the optional grammars that are running on the fallback,
// with the reason each failed to register, sorted by tag.
func (r *Registry) Degraded() []DegradedGrammar {
	out := make([]DegradedGrammar, 0, len(r.degraded))
	for tag, err := range r.degraded {
		out = append(out, DegradedGrammar{Tag: tag, Fallback: fallbackTag, Reason: err})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// DegradedGrammar describes an optional grammar served by the fallback.
type DegradedGrammar struct {
	Tag      Tag
	Fallback Tag
	Reason   error
}

// TagForPath selects the grammar for a file by its extension.
func TagForPath(path string) Tag {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		return TagTSX
	case ".ts":
		return TagTypeScript
	case ".py", ".ipynb":
		return TagPython
	default:
		return TagJavaScript
	}
}

// Language returns the tree-sitter language that serves tag, applying the
// fallback for degraded grammars.
func (r *Registry) Language(tag Tag) *sitter.Language {
	if lang, ok := r.languages[tag]; ok {
		return lang
	}
	return r.languages[fallbackTag]
}

// Parse parses content with the grammar selected for path. The caller owns
// the returned tree and must Close it.
func (r *Registry) Parse(ctx context.Context, path string, content []byte) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tag := TagForPath(path)
	lang := r.Language(tag)

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParseFailed, path, err)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s", ErrParseFailed, path)
	}

	return &Tree{
		Path:     path,
		Tag:      tag,
		Source:   content,
		tree:     tree,
		language: lang,
	}, nil
}

package indexer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvp-joe/archaeologist/internal/acquire"
	"github.com/mvp-joe/archaeologist/internal/indexer/discovery"
	"github.com/mvp-joe/archaeologist/internal/indexer/extraction"
	"github.com/mvp-joe/archaeologist/internal/indexer/normalize"
	"github.com/mvp-joe/archaeologist/internal/indexer/parsers"
	"github.com/mvp-joe/archaeologist/internal/indexer/resolver"
	"github.com/mvp-joe/archaeologist/internal/storage"
)

// PreviewLength is the number of characters of normalized content stored on
// each file node.
const PreviewLength = 200

// Parser produces syntax trees. *parsers.Registry is the production
// implementation.
type Parser interface {
	Parse(ctx context.Context, path string, content []byte) (*parsers.Tree, error)
	Degraded() []parsers.DegradedGrammar
}

// Options configures an Ingestor.
type Options struct {
	Discovery   discovery.Options
	RootMarkers []string
	Observer    Observer // nil means NoOpObserver
}

// Result summarizes one committed run.
type Result struct {
	RunID           string
	Source          *acquire.Source
	FilesDiscovered int
	FilesParsed     int
	FilesSkipped    int // parse failures
	DecodeFailures  int // notebooks recovered as empty content
	EdgesMerged     int
	Unresolved      int
	TargetsPruned   int // edge targets removed because they never parsed
	Duration        time.Duration
}

// Ingestor rebuilds the stored graph from a repository. Runs are serialized:
// a second Ingest blocks until the first has committed or rolled back.
type Ingestor struct {
	acquirer  acquire.Acquirer
	store     storage.Store
	parser    Parser
	extractor *extraction.Extractor
	opts      Options
	observer  Observer

	runMu sync.Mutex // held for a whole run

	stateMu sync.RWMutex
	state   State
}

// New creates an Ingestor. The store and parser are owned by the caller.
func New(acq acquire.Acquirer, st storage.Store, p Parser, opts Options) *Ingestor {
	observer := opts.Observer
	if observer == nil {
		observer = NoOpObserver{}
	}
	return &Ingestor{
		acquirer:  acq,
		store:     st,
		parser:    p,
		extractor: extraction.New(),
		opts:      opts,
		observer:  observer,
	}
}

// Close releases compiled queries.
func (ing *Ingestor) Close() error {
	ing.extractor.Close()
	return nil
}

// State returns the state of the current or most recent run.
func (ing *Ingestor) State() State {
	ing.stateMu.RLock()
	defer ing.stateMu.RUnlock()
	return ing.state
}

// run carries the per-run bookkeeping.
type run struct {
	id       string
	observer Observer
	result   *Result

	parsed  map[string]bool
	targets map[string]bool // edge targets merged before or without parsing
}

// Ingest acquires location and replaces the stored graph with its dependency
// graph in a single transaction. Errors before the transaction begins leave
// the store untouched; errors after it wrap ErrTransactionFailed and roll
// back.
func (ing *Ingestor) Ingest(ctx context.Context, location string) (*Result, error) {
	ing.runMu.Lock()
	defer ing.runMu.Unlock()

	start := time.Now()
	r := &run{
		id:       uuid.NewString(),
		observer: ing.observer,
		parsed:   make(map[string]bool),
		targets:  make(map[string]bool),
	}
	r.result = &Result{RunID: r.id}

	ing.setState(r, StateIdle)

	for _, g := range ing.parser.Degraded() {
		r.observer.OnGrammarDegraded(r.id, g)
	}

	if err := ing.ingest(ctx, r, location); err != nil {
		// Failures before the transaction leave the store as it was too.
		if !ing.State().Terminal() {
			ing.setState(r, StateRolledBack)
		}
		r.observer.OnFailed(r.id, err)
		return nil, err
	}

	r.result.Duration = time.Since(start)
	r.observer.OnComplete(r.result)
	return r.result, nil
}

func (ing *Ingestor) ingest(ctx context.Context, r *run, location string) error {
	if strings.TrimSpace(location) == "" {
		return ErrEmptyLocation
	}

	src, err := ing.acquirer.Acquire(ctx, location)
	if err != nil {
		return err
	}
	r.result.Source = src
	ing.setState(r, StateCloned)

	files, err := discovery.Discover(ctx, src.Dir, ing.opts.Discovery)
	if err != nil {
		return err
	}
	r.result.FilesDiscovered = len(files)
	r.observer.OnDiscoveryComplete(r.id, len(files))
	ing.setState(r, StateDiscovered)

	tx, err := ing.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	ing.setState(r, StateProcessing)

	if err := ing.rebuild(ctx, r, tx, files); err != nil {
		// Roll back even when ctx is cancelled.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		ing.setState(r, StateRolledBack)
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	ing.setState(r, StateCommitting)
	if err := tx.Commit(ctx); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		ing.setState(r, StateRolledBack)
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	ing.setState(r, StateCommitted)
	return nil
}

// rebuild clears the graph and writes every file in discovery order.
func (ing *Ingestor) rebuild(ctx context.Context, r *run, tx storage.Tx, files []discovery.File) error {
	if err := tx.Clear(ctx); err != nil {
		return err
	}

	res := resolver.New(discovery.PathSet(files), ing.opts.RootMarkers)

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ing.processFile(ctx, r, tx, res, f); err != nil {
			return err
		}
		r.observer.OnFileProcessed(r.id, f.Path, i+1, len(files))
	}

	// A target merged ahead of its own turn that then failed to parse must
	// not survive: nodes exist only for parsed files.
	var prune []string
	for target := range r.targets {
		if !r.parsed[target] {
			prune = append(prune, target)
		}
	}
	sort.Strings(prune)
	for _, target := range prune {
		if err := tx.DeleteFile(ctx, target); err != nil {
			return err
		}
		r.result.TargetsPruned++
	}

	return nil
}

func (ing *Ingestor) processFile(ctx context.Context, r *run, tx storage.Tx, res *resolver.Resolver, f discovery.File) error {
	content, err := normalize.File(f.AbsPath)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Path, err)
	}
	if content.DecodeErr != nil {
		r.result.DecodeFailures++
		r.observer.OnDecodeFailed(r.id, f.Path, content.DecodeErr)
	}

	tree, err := ing.parser.Parse(ctx, f.Path, []byte(content.Text))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.result.FilesSkipped++
		r.observer.OnParseFailed(r.id, f.Path, err)
		return nil
	}
	extracted := ing.extractor.Extract(tree)
	tree.Close()

	if extracted.CompileErr != nil {
		r.observer.OnQueryCompileFailed(r.id, f.Path, extracted.CompileErr)
	}

	if err := tx.MergeFile(ctx, f.Path, normalize.Preview(content.Text, PreviewLength)); err != nil {
		return err
	}
	r.parsed[f.Path] = true
	r.result.FilesParsed++

	edges, unresolved := res.ResolveAll(f.Path, extracted.Specifiers)
	for _, s := range unresolved {
		r.result.Unresolved++
		r.observer.OnSpecifierUnresolved(r.id, f.Path, s)
	}
	for _, e := range edges {
		if err := tx.MergeDependency(ctx, e.From, e.To); err != nil {
			return err
		}
		r.targets[e.To] = true
		r.result.EdgesMerged++
	}

	return nil
}

func (ing *Ingestor) setState(r *run, to State) {
	ing.stateMu.Lock()
	from := ing.state
	ing.state = to
	ing.stateMu.Unlock()

	r.observer.OnStateChange(r.id, from, to)
}

package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/mvp-joe/archaeologist/internal/acquire"
	"github.com/mvp-joe/archaeologist/internal/config"
	"github.com/mvp-joe/archaeologist/internal/graph"
	"github.com/mvp-joe/archaeologist/internal/indexer"
	"github.com/mvp-joe/archaeologist/internal/indexer/discovery"
	"github.com/mvp-joe/archaeologist/internal/indexer/parsers"
	"github.com/mvp-joe/archaeologist/internal/logging"
	"github.com/mvp-joe/archaeologist/internal/storage"
)

// app holds the resources shared by commands. The store is owned here and
// closed by Close.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	store  storage.Store
}

func openApp(ctx context.Context) (*app, error) {
	cfg := configFromContext(ctx)
	logger := logging.FromContext(ctx)

	st, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}
	logger.Debug("store opened", "backend", cfg.Store.Backend)

	return &app{cfg: cfg, logger: logger, store: st}, nil
}

// Close releases the store.
func (a *app) Close(ctx context.Context) error {
	return a.store.Close(context.WithoutCancel(ctx))
}

// reader returns an uncached snapshot reader.
func (a *app) reader() *graph.StoreReader {
	return graph.NewReader(a.store, a.cfg.Graph.RowLimit)
}

// newIngestor registers the grammars and builds an ingestor that logs every
// event in addition to the given observers.
func (a *app) newIngestor(acq acquire.Acquirer, observers ...indexer.Observer) (*indexer.Ingestor, error) {
	registry, err := parsers.NewRegistry(parsers.Options{Disabled: a.cfg.Parsing.DisabledGrammars})
	if err != nil {
		return nil, fmt.Errorf("failed to register grammars: %w", err)
	}

	observer := indexer.MultiObserver{indexer.NewLogObserver(a.logger)}
	observer = append(observer, observers...)

	return indexer.New(acq, a.store, registry, indexer.Options{
		Discovery: discovery.Options{
			MaxFiles:         a.cfg.Discovery.MaxFiles,
			Ignore:           a.cfg.Discovery.Ignore,
			RespectGitignore: a.cfg.Discovery.RespectGitignore,
		},
		RootMarkers: a.cfg.Resolve.RootMarkers,
		Observer:    observer,
	}), nil
}

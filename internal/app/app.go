package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/docstore"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	docs      docstore.Store
	runner    docstore.Runner
	snapshots snapshotReader
	closer    func() error
}

// snapshotReader is the read side of docstore.SnapshotStore.
type snapshotReader interface {
	Snapshots(ctx context.Context, workflowID string) ([]string, error)
	Snapshot(ctx context.Context, key string) (docstore.Workflow, error)
}

// NewApp builds the store stack described by cfg. Results are written to
// outW and logs to logW.
//
// Store selection: a backend url gives an HTTPStore that is also the runner;
// otherwise a database url gives a PostgresStore; otherwise documents live in
// memory. The chosen store is wrapped with S3 snapshots when configured, and then
// with an expiring LRU cache.
func NewApp(ctx context.Context, outW, logW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	if err := catalog.Validate(ctx); err != nil {
		return nil, fmt.Errorf("catalog is inconsistent: %w", err)
	}

	a := &App{outW: outW, logger: logger, config: cfg, closer: func() error { return nil }}

	var store docstore.Store
	switch {
	case cfg.BackendURL != "":
		hs, err := docstore.NewHTTP(cfg.BackendURL, docstore.WithToken(cfg.BackendToken))
		if err != nil {
			return nil, err
		}
		store, a.runner = hs, hs
		logger.Debug("Using backend document store.", "url", cfg.BackendURL)
	case cfg.DatabaseURL != "":
		ps, err := docstore.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store, a.closer = ps, ps.Close
		logger.Debug("Using postgres document store.")
	default:
		store = docstore.NewMemory(nil)
		logger.Debug("Using in-memory document store.")
	}

	if cfg.Snapshot.Enabled() {
		ss, err := docstore.NewSnapshotStore(store, cfg.Snapshot)
		if err != nil {
			_ = a.closer()
			return nil, err
		}
		store, a.snapshots = ss, ss
		logger.Debug("Workflow snapshots enabled.", "bucket", cfg.Snapshot.Bucket)
	}

	a.docs = docstore.NewCached(store, cfg.CacheSize, cfg.CacheTTL)
	return a, nil
}

// Docs returns the application's document store. This is primarily for testing.
func (a *App) Docs() docstore.Store {
	return a.docs
}

// Close releases the store connections.
func (a *App) Close() error {
	return a.closer()
}

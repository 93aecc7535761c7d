package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobmatch/internal/metrics"
	"github.com/kailas-cloud/jobmatch/internal/usecase/search"
)

// Loader builds the channels of a stored corpus version.
type Loader interface {
	Load(ctx context.Context, version string) (search.Indexes, error)
}

// VersionReader reports the published corpus version ("" when none).
type VersionReader interface {
	CurrentVersion(ctx context.Context) (string, error)
}

// Refresher polls the published version and swaps the holder when it changes.
type Refresher struct {
	holder   *Holder
	versions VersionReader
	loader   Loader
	empty    search.Indexes
	backend  string
	logger   *zap.Logger

	mu sync.Mutex // serializes Refresh
}

// NewRefresher wires a refresher. empty is installed while no version has
// been published; backend labels metrics ("memory" or "redis").
func NewRefresher(
	holder *Holder, versions VersionReader, loader Loader,
	empty search.Indexes, backend string, logger *zap.Logger,
) *Refresher {
	return &Refresher{
		holder:   holder,
		versions: versions,
		loader:   loader,
		empty:    empty,
		backend:  backend,
		logger:   logger,
	}
}

// Refresh loads the published version if it differs from the live one.
// It reports whether a swap happened. On failure the live generation stays.
func (r *Refresher) Refresh(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	version, err := r.versions.CurrentVersion(ctx)
	if err != nil {
		return false, fmt.Errorf("read corpus version: %w", err)
	}

	live := r.holder.Acquire()
	if version == live.Version && live.Lexical != nil {
		return false, nil
	}

	next := r.empty
	if version != "" {
		start := time.Now()
		next, err = r.loader.Load(ctx, version)
		if err != nil {
			metrics.CorpusSwapsTotal.WithLabelValues(r.backend, "error").Inc()
			return false, fmt.Errorf("load corpus %s: %w", version, err)
		}
		r.logger.Info("Corpus loaded",
			zap.String("version", version),
			zap.Int("documents", next.Documents),
			zap.Duration("took", time.Since(start)),
		)
	}

	prev := r.holder.Swap(next)
	metrics.CorpusSwapsTotal.WithLabelValues(r.backend, "ok").Inc()
	metrics.CorpusDocuments.Set(float64(next.Documents))
	r.logger.Info("Corpus swapped",
		zap.String("from", prev.Version),
		zap.String("to", next.Version),
		zap.String("backend", r.backend),
	)
	return true, nil
}

// Run refreshes every interval until ctx ends. Failures are logged and
// retried on the next tick.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Warn("Corpus refresh failed", zap.Error(err))
			}
		}
	}
}

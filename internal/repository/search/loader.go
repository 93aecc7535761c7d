package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/repository/corpus"
	usesearch "github.com/kailas-cloud/jobmatch/internal/usecase/search"
)

type indexStore interface {
	store
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

type metaReader interface {
	LoadMeta(ctx context.Context, version string) (corpus.Meta, error)
}

// Loader binds the redis channels to a published version. Nothing is copied
// into process memory; queries go to the version's RediSearch index.
type Loader struct {
	store indexStore
	meta  metaReader
	keys  corpus.Keys
}

// NewLoader creates a redis-backed index loader.
func NewLoader(s indexStore, meta metaReader, keys corpus.Keys) *Loader {
	return &Loader{store: s, meta: meta, keys: keys}
}

// Load checks that version's index exists and covers every posting of the
// version, then returns channels bound to it.
func (l *Loader) Load(ctx context.Context, version string) (usesearch.Indexes, error) {
	m, err := l.meta.LoadMeta(ctx, version)
	if err != nil {
		return usesearch.Indexes{}, fmt.Errorf("load %s: %w", version, err)
	}

	name := l.keys.Index(version)
	ok, err := l.store.IndexExists(ctx, name)
	if err != nil {
		return usesearch.Indexes{}, fmt.Errorf("%w: check index %s: %w", domain.ErrIndexUnavailable, name, err)
	}
	if !ok {
		return usesearch.Indexes{}, fmt.Errorf("%w: index %s missing", domain.ErrIndexUnavailable, name)
	}

	indexed, err := l.store.SearchCount(ctx, name, "*")
	if err != nil {
		return usesearch.Indexes{}, fmt.Errorf("%w: count %s: %w", domain.ErrIndexUnavailable, name, err)
	}
	if indexed < m.Documents {
		return usesearch.Indexes{}, fmt.Errorf("%w: index %s holds %d of %d postings",
			domain.ErrIndexUnavailable, name, indexed, m.Documents)
	}

	return usesearch.Indexes{
		Version:   version,
		Documents: m.Documents,
		Lexical:   NewLexical(l.store, name),
		Vector:    NewVector(l.store, name, m.Dimensions),
	}, nil
}

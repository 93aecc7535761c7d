package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/jobmatch/internal/db"
	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/repository/corpus"
)

// mockStore implements the consumer interfaces for tests.
type mockStore struct {
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchTextFn  func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	countFn       func(ctx context.Context, index, query string) (int, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return true, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, index, query)
	}
	return 1 << 20, nil
}

type metaFunc func(ctx context.Context, version string) (corpus.Meta, error)

func (f metaFunc) LoadMeta(ctx context.Context, version string) (corpus.Meta, error) {
	return f(ctx, version)
}

func entry(id, l string, score float64) db.SearchEntry {
	return db.SearchEntry{
		Key:   "jm:jobs:v1:" + id,
		Score: score,
		Fields: map[string]string{
			corpus.FieldID:        id,
			corpus.FieldLabel:     l,
			corpus.FieldTitle:     "title " + id,
			corpus.FieldCompanyID: "co-" + id,
		},
	}
}

func staticMeta(t *testing.T, m corpus.Meta) metaFunc {
	t.Helper()
	return func(_ context.Context, version string) (corpus.Meta, error) {
		if version != m.Version {
			return corpus.Meta{}, domain.ErrNotFound
		}
		return m, nil
	}
}

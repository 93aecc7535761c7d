// Package search adapts RediSearch FT.SEARCH to the lexical and vector
// retrieval channels of one corpus version.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/jobmatch/internal/db"
	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/candidate"
	"github.com/kailas-cloud/jobmatch/internal/domain/text"
	"github.com/kailas-cloud/jobmatch/internal/repository/corpus"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

var returnFields = []string{corpus.FieldID, corpus.FieldLabel, corpus.FieldTitle, corpus.FieldCompanyID}

// tieMargin is how many extra entries a search asks the server for, so
// equal scores at the k-th position are cut by job id rather than by
// server order.
const tieMargin = 16

// Lexical is BM25 retrieval over the text field of one version's index.
type Lexical struct {
	store store
	index string
}

// NewLexical binds lexical search to index.
func NewLexical(s store, index string) *Lexical {
	return &Lexical{store: s, index: index}
}

// SearchLexical ORs the query's distinct terms and scores with BM25.
// A query without searchable terms matches nothing.
func (l *Lexical) SearchLexical(ctx context.Context, query string, k int) ([]candidate.Hit, error) {
	terms := text.UniqueTerms(query)
	if len(terms) == 0 || k <= 0 {
		return []candidate.Hit{}, nil
	}

	sr, err := l.store.SearchText(ctx, &db.TextQuery{
		IndexName:    l.index,
		Field:        corpus.FieldText,
		Terms:        terms,
		TopK:         k + tieMargin,
		Scorer:       "BM25",
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, unavailable(ctx, "lexical", err)
	}

	hits, err := toHits(sr, k, func(score float64) float64 { return score })
	if err != nil {
		return nil, fmt.Errorf("%w: lexical: %w", domain.ErrIndexUnavailable, err)
	}
	return hits, nil
}

// Vector is HNSW KNN retrieval over one version's index.
type Vector struct {
	store store
	index string
	dim   int
}

// NewVector binds vector search to index. dim is the corpus dimension.
func NewVector(s store, index string, dim int) *Vector {
	return &Vector{store: s, index: index, dim: dim}
}

// SearchVector returns the k nearest postings with cosine similarity
// (1 - cosine distance, so in [-1, 1]).
func (v *Vector) SearchVector(ctx context.Context, embedding []float32, k int) ([]candidate.Hit, error) {
	if len(embedding) != v.dim {
		return nil, domain.NewDimensionMismatch(v.dim, len(embedding))
	}
	if k <= 0 {
		return []candidate.Hit{}, nil
	}

	sr, err := v.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    v.index,
		Field:        corpus.FieldVector,
		Vector:       embedding,
		K:            k + tieMargin,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, unavailable(ctx, "vector", err)
	}

	hits, err := toHits(sr, k, func(distance float64) float64 { return 1 - distance })
	if err != nil {
		return nil, fmt.Errorf("%w: vector: %w", domain.ErrIndexUnavailable, err)
	}
	return hits, nil
}

// unavailable wraps a store failure. Context errors pass through untouched
// so the engine can tell a deadline from a broken index.
func unavailable(ctx context.Context, channel string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	return fmt.Errorf("%w: %s search: %w", domain.ErrIndexUnavailable, channel, err)
}

// toHits maps entries to hits, re-sorts them by score desc, job id asc,
// since the server does not break ties by id, and keeps the first k.
func toHits(sr *db.SearchResult, k int, score func(float64) float64) ([]candidate.Hit, error) {
	if sr == nil {
		return []candidate.Hit{}, nil
	}
	hits := make([]candidate.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id := e.Fields[corpus.FieldID]
		if id == "" {
			// key suffix after the last ':' is the job id
			id = e.Key[strings.LastIndexByte(e.Key, ':')+1:]
		}
		l, err := label.Parse(e.Fields[corpus.FieldLabel])
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", id, err)
		}
		hits = append(hits, candidate.Hit{
			JobID:     id,
			Score:     score(e.Score),
			Domain:    l,
			Title:     e.Fields[corpus.FieldTitle],
			CompanyID: e.Fields[corpus.FieldCompanyID],
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		return candidate.Less(hits[i].Score, hits[i].JobID, hits[j].Score, hits[j].JobID)
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

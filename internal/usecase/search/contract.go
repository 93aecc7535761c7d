package search

import (
	"context"

	"github.com/kailas-cloud/jobmatch/internal/domain/search/candidate"
)

// LexicalIndex is keyword retrieval over posting text.
type LexicalIndex interface {
	SearchLexical(ctx context.Context, query string, k int) ([]candidate.Hit, error)
}

// VectorIndex is nearest-neighbour retrieval over posting embeddings.
type VectorIndex interface {
	SearchVector(ctx context.Context, embedding []float32, k int) ([]candidate.Hit, error)
}

// Indexes is one immutable corpus generation. Both channels of a request
// read from the same value so a refresh cannot split them across versions.
type Indexes struct {
	Version   string
	Documents int
	Lexical   LexicalIndex
	Vector    VectorIndex
}

// IndexSource hands out the current corpus generation without blocking.
type IndexSource interface {
	Acquire() Indexes
}

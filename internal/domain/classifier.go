package domain

import (
	"context"

	"github.com/kailas-cloud/jobmatch/internal/domain/label"
)

// Classifier predicts the industry domain of resume or posting text.
// Implementations wrap their failures in ErrClassifierUnavailable.
type Classifier interface {
	Classify(ctx context.Context, text string) (label.Distribution, error)
}

type queryEmbeddingKey struct{}

// ContextWithQueryEmbedding stores the already computed embedding of the
// text about to be classified, so an embedding-based classifier can skip
// its own provider call.
func ContextWithQueryEmbedding(ctx context.Context, vec []float32) context.Context {
	return context.WithValue(ctx, queryEmbeddingKey{}, vec)
}

// QueryEmbeddingFromContext returns the embedding stored by
// ContextWithQueryEmbedding.
func QueryEmbeddingFromContext(ctx context.Context) ([]float32, bool) {
	vec, ok := ctx.Value(queryEmbeddingKey{}).([]float32)
	return vec, ok && len(vec) > 0
}

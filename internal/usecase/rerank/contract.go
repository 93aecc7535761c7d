package rerank

import (
	"context"

	"github.com/kailas-cloud/jobmatch/internal/domain/label"
)

// Classifier predicts the resume's domain distribution.
type Classifier interface {
	Classify(ctx context.Context, text string) (label.Distribution, error)
}

package classify

import (
	"context"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
	"github.com/kailas-cloud/jobmatch/internal/usecase/search"
)

// Embedder vectorizes the text being classified.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// CentroidStore reads the per-label centroids stored with a corpus version.
type CentroidStore interface {
	LoadCentroids(ctx context.Context, version string) (map[label.Label][]float32, error)
}

// VersionSource reports the live corpus generation.
type VersionSource interface {
	Acquire() search.Indexes
}

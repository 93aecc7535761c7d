package corpus

import (
	"context"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/job"
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
	"github.com/kailas-cloud/jobmatch/internal/repository/corpus"
)

// Embedder vectorizes posting texts in batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Classifier labels postings whose industry field is missing or unknown.
type Classifier interface {
	Classify(ctx context.Context, text string) (label.Distribution, error)
}

// Store persists corpus generations.
type Store interface {
	SavePostings(ctx context.Context, version string, postings []job.Posting) error
	SaveCentroids(ctx context.Context, version string, centroids map[label.Label][]float32) error
	SaveMeta(ctx context.Context, m corpus.Meta) error
	LoadMeta(ctx context.Context, version string) (corpus.Meta, error)
	CurrentVersion(ctx context.Context) (string, error)
	Publish(ctx context.Context, version string) (string, error)
	DeleteVersion(ctx context.Context, version string) error
	CreateIndex(ctx context.Context, version string, dim int, hnsw corpus.HNSWConfig) error
	PointAlias(ctx context.Context, version string) error
}

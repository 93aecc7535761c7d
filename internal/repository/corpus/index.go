package corpus

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/jobmatch/internal/db"
)

// HNSWConfig tunes the vector field of the corpus index.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// IndexDefinition is the RediSearch schema over one version's postings:
// NOSTEM text for BM25, label as TAG, cosine HNSW over the embedding.
func (k Keys) IndexDefinition(version string, dim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	return db.NewIndex(k.Index(version)).
		Prefix(k.JobPrefix(version)).
		NoStopwords().
		Text(FieldText, true).
		Tag(FieldLabel).
		VectorHNSW(FieldVector, dim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).
		Build()
}

// CreateIndex creates the RediSearch index of version. Call it before
// SavePostings: hashes written after FT.CREATE are indexed synchronously,
// pre-existing ones only by a background scan.
func (r *Repo) CreateIndex(ctx context.Context, version string, dim int, hnsw HNSWConfig) error {
	def, err := r.keys.IndexDefinition(version, dim, hnsw)
	if err != nil {
		return fmt.Errorf("index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// PointAlias moves the stable alias to version's index.
func (r *Repo) PointAlias(ctx context.Context, version string) error {
	if err := r.store.UpdateAlias(ctx, r.keys.Alias(), r.keys.Index(version)); err != nil {
		return fmt.Errorf("alias %s: %w", version, err)
	}
	return nil
}

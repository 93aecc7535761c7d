package memory

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/jobmatch/internal/domain/job"
	"github.com/kailas-cloud/jobmatch/internal/usecase/search"
)

// PostingReader loads the postings of a stored corpus version.
type PostingReader interface {
	LoadPostings(ctx context.Context, version string) ([]job.Posting, error)
}

// Loader builds in-process snapshots from stored postings.
type Loader struct {
	postings PostingReader
}

// NewLoader creates a memory-backed index loader.
func NewLoader(postings PostingReader) *Loader {
	return &Loader{postings: postings}
}

// Load reads every posting of version and indexes it.
func (l *Loader) Load(ctx context.Context, version string) (search.Indexes, error) {
	postings, err := l.postings.LoadPostings(ctx, version)
	if err != nil {
		return search.Indexes{}, fmt.Errorf("load postings: %w", err)
	}
	snap, err := Build(version, postings)
	if err != nil {
		return search.Indexes{}, fmt.Errorf("build snapshot %s: %w", version, err)
	}
	return snap.Indexes(), nil
}

package recommend

import (
	"context"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/candidate"
	"github.com/kailas-cloud/jobmatch/internal/usecase/rerank"
	"github.com/kailas-cloud/jobmatch/internal/usecase/search"
)

// Embedder vectorizes the resume text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher is the hybrid search engine.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (search.Outcome, error)
}

// Reranker is the domain re-ranker.
type Reranker interface {
	Rerank(ctx context.Context, resumeText string, cands []candidate.Candidate) rerank.Outcome
}

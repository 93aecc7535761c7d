package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/candidate"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/request"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/result"
	"github.com/kailas-cloud/jobmatch/internal/logger"
	"github.com/kailas-cloud/jobmatch/internal/metrics"
	"github.com/kailas-cloud/jobmatch/internal/usecase/search"
)

// Service is the recommendation orchestrator: resume -> embedding ->
// hybrid search -> re-rank -> top results.
type Service struct {
	embed          Embedder
	search         Searcher
	rerank         Reranker
	maxResumeBytes int
}

// New creates the orchestrator. maxResumeBytes <= 0 uses the request default.
func New(embed Embedder, searcher Searcher, reranker Reranker, maxResumeBytes int) *Service {
	return &Service{embed: embed, search: searcher, rerank: reranker, maxResumeBytes: maxResumeBytes}
}

// Parse validates raw resume input into a request. Validation failures wrap
// ErrResumeProcessingFailed and ErrInvalidResume, except an unknown domain
// hint which wraps ErrUnknownLabel.
func (s *Service) Parse(resumeText, domainHint string) (request.Recommendation, error) {
	req, err := request.New(resumeText, domainHint, s.maxResumeBytes)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownLabel) {
			return request.Recommendation{}, err
		}
		return request.Recommendation{}, fmt.Errorf("%w: %w: %w",
			domain.ErrResumeProcessingFailed, domain.ErrInvalidResume, err)
	}
	return req, nil
}

// Recommend runs the pipeline. An empty corpus match is a successful
// OutcomeNoResults; a classifier failure yields a degraded but valid result.
func (s *Service) Recommend(ctx context.Context, req request.Recommendation) (result.Recommendation, error) {
	start := time.Now()
	rec, err := s.run(ctx, req)
	rec.Timings.Total = time.Since(start)
	metrics.StageDuration.WithLabelValues("total").Observe(rec.Timings.Total.Seconds())

	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		return result.Recommendation{}, err
	}
	metrics.RecommendationsTotal.WithLabelValues(string(rec.Outcome)).Inc()
	for _, reason := range rec.DegradedReasons {
		metrics.DegradedTotal.WithLabelValues(string(reason)).Inc()
	}

	logger.FromContext(ctx).Info("Recommendation served",
		zap.String("outcome", string(rec.Outcome)),
		zap.Int("results", len(rec.Results)),
		zap.Bool("degraded", rec.Degraded),
		zap.String("corpus_version", rec.CorpusVersion),
		zap.Duration("embedding", rec.Timings.Embedding),
		zap.Duration("retrieval", rec.Timings.Retrieval),
		zap.Duration("rerank", rec.Timings.Rerank),
		zap.Duration("total", rec.Timings.Total),
	)
	return rec, nil
}

func (s *Service) run(ctx context.Context, req request.Recommendation) (result.Recommendation, error) {
	var rec result.Recommendation

	stage := time.Now()
	emb, err := s.embed.Embed(ctx, req.ResumeText())
	rec.Timings.Embedding = observe("embedding", stage)
	if err != nil {
		if ctx.Err() != nil {
			return rec, fmt.Errorf("embed resume: %w", ctx.Err())
		}
		return rec, fmt.Errorf("%w: embed resume: %w", domain.ErrResumeProcessingFailed, err)
	}
	if len(emb.Embedding) == 0 {
		return rec, fmt.Errorf("%w: %w: empty embedding",
			domain.ErrResumeProcessingFailed, domain.ErrEmbeddingProviderError)
	}

	stage = time.Now()
	found, err := s.search.Search(ctx, search.Query{Text: req.ResumeText(), Embedding: emb.Embedding})
	rec.Timings.Retrieval = observe("retrieval", stage)
	if err != nil {
		return rec, fmt.Errorf("hybrid search: %w", err)
	}
	rec.CorpusVersion = found.CorpusVersion
	for _, ch := range found.Dropped {
		switch ch {
		case candidate.Lexical:
			rec.Degrade(result.ReasonLexicalTimeout)
		case candidate.Vector:
			rec.Degrade(result.ReasonVectorTimeout)
		}
	}

	if hint, ok := req.DomainHint(); ok {
		rec.PrimaryDomain = hint
	}
	if len(found.Candidates) == 0 {
		rec.Outcome = result.OutcomeNoResults
		rec.Results = []result.Ranked{}
		return rec, nil
	}

	stage = time.Now()
	rctx := domain.ContextWithQueryEmbedding(ctx, emb.Embedding)
	ranked := s.rerank.Rerank(rctx, req.ResumeText(), found.Candidates)
	rec.Timings.Rerank = observe("rerank", stage)
	if err := ctx.Err(); err != nil {
		return rec, fmt.Errorf("rerank: %w", err)
	}

	rec.Outcome = result.OutcomeOK
	rec.Results = ranked.Results
	if ranked.Degraded {
		rec.Degrade(result.ReasonClassifierUnavailable)
	} else {
		rec.PrimaryDomain = ranked.PrimaryDomain
		rec.PrimaryConfidence = ranked.PrimaryConfidence
		if !ranked.Distribution.IsZero() {
			rec.TopDomains = ranked.Distribution.Top(result.TopDomainsK, result.TopDomainsMinProb)
		}
	}
	return rec, nil
}

func observe(stage string, start time.Time) time.Duration {
	d := time.Since(start)
	metrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	return d
}

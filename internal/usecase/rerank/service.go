package rerank

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobmatch/internal/domain/label"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/candidate"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/result"
	"github.com/kailas-cloud/jobmatch/internal/logger"
)

// BonusMode selects which candidates receive the domain bonus.
type BonusMode string

// Bonus modes.
const (
	// BonusPrimary boosts only candidates in the resume's primary domain,
	// by the probability of that domain.
	BonusPrimary BonusMode = "primary"
	// BonusDistribution boosts every candidate by the resume's probability
	// mass on the candidate's domain.
	BonusDistribution BonusMode = "distribution"
)

// Params tunes re-ranking.
type Params struct {
	Beta           float64
	MaxPerDomain   int
	Results        int
	MinDomainScore float64
	BonusMode      BonusMode
}

// DefaultParams returns beta = 0.2 and at most 4 of 10 results per domain.
func DefaultParams() Params {
	return Params{
		Beta:         0.2,
		MaxPerDomain: 4,
		Results:      result.MaxResults,
		BonusMode:    BonusPrimary,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.Beta < 0:
		return fmt.Errorf("beta must be non-negative, got %v", p.Beta)
	case p.MaxPerDomain < 1:
		return fmt.Errorf("max_per_domain must be positive, got %d", p.MaxPerDomain)
	case p.Results < 1 || p.Results > result.MaxResults:
		return fmt.Errorf("results must be in [1,%d], got %d", result.MaxResults, p.Results)
	case p.MinDomainScore < 0 || p.MinDomainScore > 1:
		return fmt.Errorf("min_domain_score must be in [0,1], got %v", p.MinDomainScore)
	case p.BonusMode != BonusPrimary && p.BonusMode != BonusDistribution:
		return fmt.Errorf("unknown bonus mode %q", p.BonusMode)
	}
	return nil
}

// Outcome is the re-ranked list plus what the classifier said about the resume.
type Outcome struct {
	Results           []result.Ranked
	Degraded          bool
	Distribution      label.Distribution
	PrimaryDomain     label.Label
	PrimaryConfidence float64
}

// Service is the domain-aware re-ranker.
type Service struct {
	classifier Classifier
	params     Params
}

// New creates a re-ranker. A nil classifier ranks every request degraded.
func New(classifier Classifier, params Params) *Service {
	return &Service{classifier: classifier, params: params}
}

type scored struct {
	candidate.Candidate
	bonus    float64
	adjusted float64
	prob     float64
}

// Rerank orders candidates for the resume. It never fails: when the
// classifier is unavailable it returns fused-score order without the
// diversity cap and marks the outcome degraded.
func (s *Service) Rerank(ctx context.Context, resumeText string, cands []candidate.Candidate) Outcome {
	if len(cands) == 0 {
		return Outcome{}
	}

	if s.classifier == nil {
		return Outcome{Results: fusedOnly(cands, s.params.Results), Degraded: true}
	}
	dist, err := s.classifier.Classify(ctx, resumeText)
	if err != nil {
		logger.FromContext(ctx).Warn("Domain classifier unavailable, ranking by fused score",
			zap.Int("candidates", len(cands)),
			zap.Error(err),
		)
		return Outcome{Results: fusedOnly(cands, s.params.Results), Degraded: true}
	}

	primary, confidence := dist.Primary()
	items := make([]scored, len(cands))
	for i, c := range cands {
		it := scored{Candidate: c, prob: dist.Prob(c.Domain)}
		switch s.params.BonusMode {
		case BonusDistribution:
			it.bonus = it.prob
		default:
			if c.Domain == primary {
				it.bonus = confidence
			}
		}
		it.adjusted = c.FusedScore + s.params.Beta*it.bonus
		items[i] = it
	}
	sort.Slice(items, func(i, j int) bool {
		return candidate.Less(items[i].adjusted, items[i].JobID, items[j].adjusted, items[j].JobID)
	})

	minScore := s.params.MinDomainScore
	picked := diversify(items, s.params.Results, s.params.MaxPerDomain,
		func(it scored) label.Label { return it.Domain },
		func(it scored) bool { return minScore > 0 && it.prob < minScore },
	)

	out := make([]result.Ranked, len(picked))
	for i, it := range picked {
		out[i] = result.Ranked{
			JobID:             it.JobID,
			Title:             it.Title,
			CompanyID:         it.CompanyID,
			Rank:              i + 1,
			Score:             it.adjusted,
			FusedScore:        it.FusedScore,
			LexicalScore:      it.LexicalScore,
			VectorScore:       it.VectorScore,
			DomainBonus:       it.bonus,
			DomainProbability: it.prob,
			Domain:            it.Domain,
			Confidence:        result.ConfidenceFor(it.prob),
		}
	}

	logger.FromContext(ctx).Debug("Re-ranked candidates",
		zap.Stringer("primary_domain", primary),
		zap.Float64("primary_confidence", confidence),
		zap.Any("distribution", dist.Map()),
		zap.Int("candidates", len(cands)),
		zap.Int("results", len(out)),
	)

	return Outcome{
		Results:           out,
		Distribution:      dist,
		PrimaryDomain:     primary,
		PrimaryConfidence: confidence,
	}
}

// fusedOnly is the degraded ordering: fused score descending, no cap.
func fusedOnly(cands []candidate.Candidate, limit int) []result.Ranked {
	sorted := make([]candidate.Candidate, len(cands))
	copy(sorted, cands)
	sort.Slice(sorted, func(i, j int) bool {
		return candidate.Less(sorted[i].FusedScore, sorted[i].JobID, sorted[j].FusedScore, sorted[j].JobID)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]result.Ranked, len(sorted))
	for i, c := range sorted {
		out[i] = result.Ranked{
			JobID:        c.JobID,
			Title:        c.Title,
			CompanyID:    c.CompanyID,
			Rank:         i + 1,
			Score:        c.FusedScore,
			FusedScore:   c.FusedScore,
			LexicalScore: c.LexicalScore,
			VectorScore:  c.VectorScore,
			Domain:       c.Domain,
			Confidence:   result.ConfidenceUnknown,
		}
	}
	return out
}

// Package result holds the ranked output of a recommendation request.
package result

import (
	"time"

	"github.com/kailas-cloud/jobmatch/internal/domain/label"
)

// MaxResults is the size of a recommendation list.
const MaxResults = 10

// Ranked domain prediction limits: at most TopDomainsK labels, each with
// probability of at least TopDomainsMinProb.
const (
	TopDomainsK       = 5
	TopDomainsMinProb = 0.05
)

// Confidence buckets the resume's probability mass on a result's domain.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

// Confidence thresholds.
const (
	HighConfidenceMin   = 0.7
	MediumConfidenceMin = 0.3
)

// ConfidenceFor maps a probability to its bucket.
func ConfidenceFor(p float64) Confidence {
	switch {
	case p >= HighConfidenceMin:
		return ConfidenceHigh
	case p >= MediumConfidenceMin:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Ranked is one entry of the final list. Score is the adjusted score in
// normal mode and the fused score in degraded mode. DomainProbability is
// the resume's probability mass on Domain, 0 when degraded.
type Ranked struct {
	JobID             string
	Title             string
	CompanyID         string
	Rank              int
	Score             float64
	FusedScore        float64
	LexicalScore      float64
	VectorScore       float64
	DomainBonus       float64
	DomainProbability float64
	Domain            label.Label
	Confidence        Confidence
}

// Outcome distinguishes an empty corpus match from a populated list.
type Outcome string

// Outcomes.
const (
	OutcomeOK        Outcome = "ok"
	OutcomeNoResults Outcome = "no_results"
)

// DegradedReason names a dependency that was skipped while ranking.
type DegradedReason string

// Degraded reasons.
const (
	ReasonClassifierUnavailable DegradedReason = "classifier_unavailable"
	ReasonLexicalTimeout        DegradedReason = "lexical_timeout"
	ReasonVectorTimeout         DegradedReason = "vector_timeout"
)

// Timings is the per-stage latency breakdown of one request.
type Timings struct {
	Embedding time.Duration
	Retrieval time.Duration
	Rerank    time.Duration
	Total     time.Duration
}

// Recommendation is the response of one request. A degraded recommendation
// is valid output with lower confidence, not a failure.
type Recommendation struct {
	Results           []Ranked
	Outcome           Outcome
	Degraded          bool
	DegradedReasons   []DegradedReason
	PrimaryDomain     label.Label
	PrimaryConfidence float64
	TopDomains        []label.Scored
	CorpusVersion     string
	Timings           Timings
}

// Degrade marks the recommendation degraded for reason. Repeated reasons are kept once.
func (r *Recommendation) Degrade(reason DegradedReason) {
	r.Degraded = true
	for _, have := range r.DegradedReasons {
		if have == reason {
			return
		}
	}
	r.DegradedReasons = append(r.DegradedReasons, reason)
}

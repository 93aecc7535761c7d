package chi

import (
	"time"

	"github.com/kailas-cloud/jobmatch/internal/domain/label"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/result"
)

// RecommendationRequest is the body of POST /v1/recommendations.
type RecommendationRequest struct {
	ResumeText string `json:"resume_text"`
	DomainHint string `json:"domain_hint,omitempty"`
}

// RankedJob is one entry of a recommendation list.
type RankedJob struct {
	JobID             string  `json:"job_id"`
	Title             string  `json:"title"`
	CompanyID         string  `json:"company_id"`
	FinalRank         int     `json:"final_rank"`
	FinalScore        float64 `json:"final_score"`
	FusedScore        float64 `json:"fused_score"`
	LexicalScore      float64 `json:"lexical_score"`
	VectorScore       float64 `json:"vector_score"`
	DomainBonus       float64 `json:"domain_bonus"`
	DomainProbability float64 `json:"domain_probability"`
	DomainLabel       string  `json:"domain_label"`
	Confidence        string  `json:"confidence"`
}

// DomainScore is one entry of the ranked domain prediction for the resume.
type DomainScore struct {
	Domain      string  `json:"domain"`
	Probability float64 `json:"probability"`
}

// Timings reports stage latencies in milliseconds.
type Timings struct {
	EmbeddingMs float64 `json:"embedding_ms"`
	RetrievalMs float64 `json:"retrieval_ms"`
	RerankMs    float64 `json:"rerank_ms"`
	TotalMs     float64 `json:"total_ms"`
}

// RecommendationResponse is the body of a successful recommendation.
type RecommendationResponse struct {
	Results           []RankedJob   `json:"results"`
	Outcome           string        `json:"outcome"`
	Degraded          bool          `json:"degraded"`
	DegradedReasons   []string      `json:"degraded_reasons"`
	PrimaryDomain     string        `json:"primary_domain,omitempty"`
	PrimaryConfidence float64       `json:"primary_confidence"`
	TopDomains        []DomainScore `json:"top_domains"`
	CorpusVersion     string        `json:"corpus_version"`
	Timings           Timings       `json:"timings"`
}

// DomainsResponse lists the closed label set.
type DomainsResponse struct {
	Domains []string `json:"domains"`
}

// CorpusResponse describes the live corpus generation.
type CorpusResponse struct {
	Version    string     `json:"version"`
	Documents  int        `json:"documents"`
	Backend    string     `json:"backend"`
	Dimensions int        `json:"dimensions,omitempty"`
	Model      string     `json:"model,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// RefreshResponse is the body of POST /v1/corpus/refresh.
type RefreshResponse struct {
	Swapped bool   `json:"swapped"`
	Version string `json:"version"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	CorpusVersion string            `json:"corpus_version"`
	Documents     int               `json:"documents"`
}

func recommendationToDTO(rec *result.Recommendation) RecommendationResponse {
	resp := RecommendationResponse{
		Results:           make([]RankedJob, len(rec.Results)),
		Outcome:           string(rec.Outcome),
		Degraded:          rec.Degraded,
		DegradedReasons:   make([]string, len(rec.DegradedReasons)),
		PrimaryConfidence: rec.PrimaryConfidence,
		TopDomains:        make([]DomainScore, len(rec.TopDomains)),
		CorpusVersion:     rec.CorpusVersion,
		Timings: Timings{
			EmbeddingMs: ms(rec.Timings.Embedding),
			RetrievalMs: ms(rec.Timings.Retrieval),
			RerankMs:    ms(rec.Timings.Rerank),
			TotalMs:     ms(rec.Timings.Total),
		},
	}
	if rec.PrimaryDomain.IsValid() {
		resp.PrimaryDomain = rec.PrimaryDomain.String()
	}
	for i, r := range rec.Results {
		resp.Results[i] = RankedJob{
			JobID:             r.JobID,
			Title:             r.Title,
			CompanyID:         r.CompanyID,
			FinalRank:         r.Rank,
			FinalScore:        r.Score,
			FusedScore:        r.FusedScore,
			LexicalScore:      r.LexicalScore,
			VectorScore:       r.VectorScore,
			DomainBonus:       r.DomainBonus,
			DomainProbability: r.DomainProbability,
			DomainLabel:       r.Domain.String(),
			Confidence:        string(r.Confidence),
		}
	}
	for i, d := range rec.TopDomains {
		resp.TopDomains[i] = DomainScore{Domain: d.Label.String(), Probability: d.Prob}
	}
	for i, reason := range rec.DegradedReasons {
		resp.DegradedReasons[i] = string(reason)
	}
	return resp
}

func domainsToDTO() DomainsResponse {
	all := label.All()
	out := DomainsResponse{Domains: make([]string, len(all))}
	for i, l := range all {
		out.Domains[i] = l.String()
	}
	return out
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// Package candidate models per-request retrieval hits and fused candidates.
package candidate

import (
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
)

// Channel identifies a retrieval signal.
type Channel string

// Retrieval channels.
const (
	Lexical Channel = "lexical"
	Vector  Channel = "vector"
)

// Hit is one raw result from a single index. Score is the index's native
// relevance: BM25 for lexical, cosine similarity for vector. Title and
// CompanyID are carried for display only.
type Hit struct {
	JobID     string
	Score     float64
	Domain    label.Label
	Title     string
	CompanyID string
}

// Candidate is a fused hit. LexicalScore and VectorScore are min-max
// normalized to [0,1]; a channel that did not return the job contributes 0.
type Candidate struct {
	JobID        string
	Title        string
	CompanyID    string
	LexicalScore float64
	VectorScore  float64
	FusedScore   float64
	Domain       label.Label
	FoundBy      []Channel
}

// Has reports whether ch returned this job.
func (c *Candidate) Has(ch Channel) bool {
	for _, f := range c.FoundBy {
		if f == ch {
			return true
		}
	}
	return false
}

// Less orders by score descending, then job id ascending. Every ranking
// stage uses it so equal scores break ties the same way.
func Less(scoreA float64, idA string, scoreB float64, idB string) bool {
	if scoreA != scoreB {
		return scoreA > scoreB
	}
	return idA < idB
}

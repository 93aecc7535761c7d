package search

import (
	"sort"

	"github.com/kailas-cloud/jobmatch/internal/domain/search/candidate"
)

// normalize min-max scales scores into [0,1]. A single hit or a list with
// no spread maps to 1.0.
func normalize(hits []candidate.Hit) map[string]float64 {
	out := make(map[string]float64, len(hits))
	if len(hits) == 0 {
		return out
	}
	lo, hi := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		lo = min(lo, h.Score)
		hi = max(hi, h.Score)
	}
	spread := hi - lo
	for _, h := range hits {
		if spread == 0 {
			out[h.JobID] = 1
			continue
		}
		out[h.JobID] = (h.Score - lo) / spread
	}
	return out
}

// fuse merges the two channels into candidates scored
// alpha*vector + (1-alpha)*lexical and returns the top n.
// A nil channel slice means the channel was dropped; the surviving one
// then carries full weight. An empty but non-nil slice still counts.
func fuse(lexical, vector []candidate.Hit, alpha float64, n int) []candidate.Candidate {
	wVec, wLex := alpha, 1-alpha
	switch {
	case lexical == nil && vector != nil:
		wVec, wLex = 1, 0
	case vector == nil && lexical != nil:
		wVec, wLex = 0, 1
	}

	lexNorm := normalize(lexical)
	vecNorm := normalize(vector)

	byID := make(map[string]*candidate.Candidate, len(lexical)+len(vector))
	order := make([]string, 0, len(lexical)+len(vector))
	get := func(h candidate.Hit) *candidate.Candidate {
		c, ok := byID[h.JobID]
		if !ok {
			c = &candidate.Candidate{JobID: h.JobID, Domain: h.Domain}
			byID[h.JobID] = c
			order = append(order, h.JobID)
		}
		if c.Title == "" {
			c.Title = h.Title
		}
		if c.CompanyID == "" {
			c.CompanyID = h.CompanyID
		}
		return c
	}
	for _, h := range lexical {
		c := get(h)
		if c.Has(candidate.Lexical) {
			continue
		}
		c.LexicalScore = lexNorm[h.JobID]
		c.FoundBy = append(c.FoundBy, candidate.Lexical)
	}
	for _, h := range vector {
		c := get(h)
		if c.Has(candidate.Vector) {
			continue
		}
		c.VectorScore = vecNorm[h.JobID]
		c.FoundBy = append(c.FoundBy, candidate.Vector)
	}

	out := make([]candidate.Candidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		c.FusedScore = wVec*c.VectorScore + wLex*c.LexicalScore
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return candidate.Less(out[i].FusedScore, out[i].JobID, out[j].FusedScore, out[j].JobID)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Package memory is the in-process corpus index: an Okapi BM25 inverted
// index and an exact cosine vector scan over one immutable corpus generation.
package memory

import (
	"context"
	"fmt"
	"math"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/job"
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/candidate"
	"github.com/kailas-cloud/jobmatch/internal/domain/text"
	"github.com/kailas-cloud/jobmatch/internal/usecase/search"
)

// BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// ctxCheckEvery is how many documents a scan processes between ctx checks.
const ctxCheckEvery = 1024

type termFreq struct {
	doc int
	tf  int
}

// Snapshot is one corpus generation. It is never modified after Build, so
// any number of requests may read it concurrently.
type Snapshot struct {
	version   string
	ids       []string
	domains   []label.Label
	titles    []string
	companies []string

	postings map[string][]termFreq
	docLen   []int
	avgLen   float64

	dim     int
	vectors [][]float32 // unit length, or all zero
}

// Empty returns a snapshot with no documents. Searches on it return no hits.
func Empty() *Snapshot {
	return &Snapshot{postings: map[string][]termFreq{}}
}

// Build indexes postings. All embeddings must share one dimension and ids
// must be unique.
func Build(version string, postings []job.Posting) (*Snapshot, error) {
	s := &Snapshot{
		version:   version,
		ids:       make([]string, 0, len(postings)),
		domains:   make([]label.Label, 0, len(postings)),
		titles:    make([]string, 0, len(postings)),
		companies: make([]string, 0, len(postings)),
		postings:  make(map[string][]termFreq),
		docLen:    make([]int, 0, len(postings)),
		vectors:   make([][]float32, 0, len(postings)),
	}
	seen := make(map[string]struct{}, len(postings))
	var totalLen int

	for i := range postings {
		p := &postings[i]
		if _, dup := seen[p.ID()]; dup {
			return nil, fmt.Errorf("build snapshot: duplicate job id %q", p.ID())
		}
		seen[p.ID()] = struct{}{}
		if s.dim == 0 {
			s.dim = p.Dimensions()
		} else if p.Dimensions() != s.dim {
			return nil, fmt.Errorf("build snapshot: job %s: %w", p.ID(), domain.NewDimensionMismatch(s.dim, p.Dimensions()))
		}

		doc := len(s.ids)
		s.ids = append(s.ids, p.ID())
		s.domains = append(s.domains, p.Domain())
		s.titles = append(s.titles, p.Title())
		s.companies = append(s.companies, p.CompanyID())
		s.vectors = append(s.vectors, unit(p.Embedding()))

		terms := text.Tokenize(p.Text())
		s.docLen = append(s.docLen, len(terms))
		totalLen += len(terms)
		counts := make(map[string]int, len(terms))
		for _, t := range terms {
			counts[t]++
		}
		for t, tf := range counts {
			s.postings[t] = append(s.postings[t], termFreq{doc: doc, tf: tf})
		}
	}
	if len(s.ids) > 0 {
		s.avgLen = float64(totalLen) / float64(len(s.ids))
	}
	return s, nil
}

// Version returns the corpus generation id.
func (s *Snapshot) Version() string { return s.version }

// Len returns the number of documents.
func (s *Snapshot) Len() int { return len(s.ids) }

// Dimensions returns the embedding dimension, 0 for an empty snapshot.
func (s *Snapshot) Dimensions() int { return s.dim }

// Indexes exposes the snapshot as both retrieval channels.
func (s *Snapshot) Indexes() search.Indexes {
	return search.Indexes{Version: s.version, Documents: s.Len(), Lexical: s, Vector: s}
}

// SearchLexical scores documents with Okapi BM25 over the distinct query terms.
func (s *Snapshot) SearchLexical(ctx context.Context, query string, k int) ([]candidate.Hit, error) {
	if len(s.ids) == 0 || k <= 0 {
		return []candidate.Hit{}, nil
	}
	n := float64(len(s.ids))
	scores := make(map[int]float64)
	for _, term := range text.UniqueTerms(query) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("bm25 search: %w", err)
		}
		plist := s.postings[term]
		if len(plist) == 0 {
			continue
		}
		df := float64(len(plist))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for _, p := range plist {
			tf := float64(p.tf)
			norm := bm25K1 * (1 - bm25B + bm25B*float64(s.docLen[p.doc])/s.avgLen)
			scores[p.doc] += idf * tf * (bm25K1 + 1) / (tf + norm)
		}
	}

	top := newTopK(k)
	for doc, score := range scores {
		top.offer(docScore{doc: doc, id: s.ids[doc], score: score})
	}
	return s.hits(top.sorted()), nil
}

// SearchVector scans all documents by cosine similarity.
func (s *Snapshot) SearchVector(ctx context.Context, embedding []float32, k int) ([]candidate.Hit, error) {
	if len(s.ids) == 0 || k <= 0 {
		return []candidate.Hit{}, nil
	}
	if len(embedding) != s.dim {
		return nil, domain.NewDimensionMismatch(s.dim, len(embedding))
	}
	q := unit(embedding)
	top := newTopK(k)
	for doc, v := range s.vectors {
		if doc%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("vector search: %w", err)
			}
		}
		top.offer(docScore{doc: doc, id: s.ids[doc], score: dot(q, v)})
	}
	return s.hits(top.sorted()), nil
}

func (s *Snapshot) hits(scored []docScore) []candidate.Hit {
	out := make([]candidate.Hit, len(scored))
	for i, d := range scored {
		out[i] = candidate.Hit{
			JobID:     d.id,
			Score:     d.score,
			Domain:    s.domains[d.doc],
			Title:     s.titles[d.doc],
			CompanyID: s.companies[d.doc],
		}
	}
	return out
}

func unit(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Package evaluation scores ranked job lists against graded relevance judgments.
package evaluation

import (
	"math"
	"sort"
)

// Judgments maps job id to graded relevance. Missing ids have gain 0.
type Judgments map[string]float64

// Scores are the metrics of one ranked list at cutoff K.
type Scores struct {
	K         int     `json:"k"`
	DCG       float64 `json:"dcg"`
	IDCG      float64 `json:"idcg"`
	NDCG      float64 `json:"ndcg"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// DCG is the discounted cumulative gain of the first k ranked ids:
// sum of gain(i) / log2(i+1) over 1-based positions.
func DCG(ranked []string, rel Judgments, k int) float64 {
	var dcg float64
	for i, id := range cut(ranked, k) {
		dcg += rel[id] / math.Log2(float64(i+2))
	}
	return dcg
}

// IDCG is the DCG of the best possible ordering of the judged ids.
func IDCG(rel Judgments, k int) float64 {
	gains := make([]float64, 0, len(rel))
	for _, g := range rel {
		if g > 0 {
			gains = append(gains, g)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(gains)))
	if k > 0 && len(gains) > k {
		gains = gains[:k]
	}
	var idcg float64
	for i, g := range gains {
		idcg += g / math.Log2(float64(i+2))
	}
	return idcg
}

// Evaluate computes all metrics at cutoff k. k <= 0 uses the full list.
func Evaluate(ranked []string, rel Judgments, k int) Scores {
	if k <= 0 {
		k = len(ranked)
	}
	s := Scores{K: k, DCG: DCG(ranked, rel, k), IDCG: IDCG(rel, k)}
	if s.IDCG > 0 {
		s.NDCG = s.DCG / s.IDCG
	}

	var hits, relevant int
	for _, id := range cut(ranked, k) {
		if rel[id] > 0 {
			hits++
		}
	}
	for _, g := range rel {
		if g > 0 {
			relevant++
		}
	}
	if k > 0 {
		s.Precision = float64(hits) / float64(k)
	}
	if relevant > 0 {
		s.Recall = float64(hits) / float64(relevant)
	}
	return s
}

// Mean averages per-query scores. An empty input yields zero scores.
func Mean(all []Scores) Scores {
	if len(all) == 0 {
		return Scores{}
	}
	var m Scores
	for _, s := range all {
		m.DCG += s.DCG
		m.IDCG += s.IDCG
		m.NDCG += s.NDCG
		m.Precision += s.Precision
		m.Recall += s.Recall
	}
	n := float64(len(all))
	m.K = all[0].K
	m.DCG /= n
	m.IDCG /= n
	m.NDCG /= n
	m.Precision /= n
	m.Recall /= n
	return m
}

func cut(ranked []string, k int) []string {
	if k > 0 && len(ranked) > k {
		return ranked[:k]
	}
	return ranked
}

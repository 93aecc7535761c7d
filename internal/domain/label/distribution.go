package label

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// SumTolerance is how far a distribution's mass may drift from 1.0.
const SumTolerance = 1e-3

// ErrInvalidDistribution signals negative mass or a sum away from 1.0.
var ErrInvalidDistribution = errors.New("invalid label distribution")

// Distribution is a probability mass over the closed label set.
// The zero value is empty and has no primary label.
type Distribution struct {
	probs [Count + 1]float64
	set   bool
}

// NewDistribution validates probabilities keyed by label. Labels missing
// from the map get zero mass.
func NewDistribution(probs map[Label]float64) (Distribution, error) {
	var d Distribution
	var sum float64
	for l, p := range probs {
		if !l.IsValid() {
			return Distribution{}, fmt.Errorf("%w: %d", ErrUnknown, uint8(l))
		}
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return Distribution{}, fmt.Errorf("%w: %s has probability %v", ErrInvalidDistribution, l, p)
		}
		d.probs[l] = p
		sum += p
	}
	if math.Abs(sum-1) > SumTolerance {
		return Distribution{}, fmt.Errorf("%w: probabilities sum to %.4f", ErrInvalidDistribution, sum)
	}
	d.set = true
	return d, nil
}

// ParseDistribution builds a distribution from label names, as returned by
// remote classifiers.
func ParseDistribution(probs map[string]float64) (Distribution, error) {
	typed := make(map[Label]float64, len(probs))
	for name, p := range probs {
		l, err := Parse(name)
		if err != nil {
			return Distribution{}, err
		}
		typed[l] += p
	}
	return NewDistribution(typed)
}

// IsZero reports whether d was never populated.
func (d Distribution) IsZero() bool { return !d.set }

// Prob returns the mass on l; zero for invalid labels.
func (d Distribution) Prob(l Label) float64 {
	if !l.IsValid() {
		return 0
	}
	return d.probs[l]
}

// Primary returns the argmax label and its probability. Ties go to the
// label declared first. An empty distribution returns (0, 0).
func (d Distribution) Primary() (Label, float64) {
	if !d.set {
		return 0, 0
	}
	best := Technology
	for l := Technology + 1; l <= Government; l++ {
		if d.probs[l] > d.probs[best] {
			best = l
		}
	}
	return best, d.probs[best]
}

// Scored pairs a label with its probability.
type Scored struct {
	Label Label   `json:"label"`
	Prob  float64 `json:"probability"`
}

// Top returns up to k labels with the highest mass, dropping those below
// minProb. Ordering is probability descending, then enum order.
func (d Distribution) Top(k int, minProb float64) []Scored {
	out := make([]Scored, 0, Count)
	for l := Technology; l <= Government; l++ {
		if d.probs[l] > 0 && d.probs[l] >= minProb {
			out = append(out, Scored{Label: l, Prob: d.probs[l]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Prob > out[j].Prob })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// Map returns the non-zero mass keyed by label name.
func (d Distribution) Map() map[string]float64 {
	out := make(map[string]float64)
	for l := Technology; l <= Government; l++ {
		if d.probs[l] > 0 {
			out[l.String()] = d.probs[l]
		}
	}
	return out
}

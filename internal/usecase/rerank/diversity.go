package rerank

import (
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
)

// budget counts how many results each domain already holds in the output.
type budget struct {
	perDomain [label.Count + 1]int
	max       int
}

func newBudget(maxPerDomain int) *budget {
	return &budget{max: maxPerDomain}
}

func (b *budget) allows(l label.Label) bool {
	return b.perDomain[l] < b.max
}

func (b *budget) take(l label.Label) {
	b.perDomain[l]++
}

// diversify selects up to limit items from items, which must already be in
// adjusted-score order. The first pass admits items under the domain cap
// that are not held back and defers the rest. Remaining slots are then
// backfilled from the deferred items in their original order: first those
// still under the cap, then, only if slots are still empty, any of them.
func diversify[T any](
	items []T, limit, maxPerDomain int,
	domainOf func(T) label.Label, heldBack func(T) bool,
) []T {
	out := make([]T, 0, min(limit, len(items)))
	var deferred []T
	b := newBudget(maxPerDomain)

	for _, it := range items {
		if len(out) == limit {
			return out
		}
		d := domainOf(it)
		if heldBack(it) || !b.allows(d) {
			deferred = append(deferred, it)
			continue
		}
		b.take(d)
		out = append(out, it)
	}

	overflow := deferred[:0:0]
	for _, it := range deferred {
		if len(out) == limit {
			return out
		}
		d := domainOf(it)
		if !b.allows(d) {
			overflow = append(overflow, it)
			continue
		}
		b.take(d)
		out = append(out, it)
	}
	for _, it := range overflow {
		if len(out) == limit {
			break
		}
		out = append(out, it)
	}
	return out
}

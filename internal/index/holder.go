// Package index owns the live corpus generation: an atomically swapped
// search.Indexes value and the refresher that replaces it when a new
// corpus version is published.
package index

import (
	"sync/atomic"

	"github.com/kailas-cloud/jobmatch/internal/usecase/search"
)

// Holder hands out the current corpus generation. Acquire never blocks and
// never observes a half-built generation.
type Holder struct {
	current atomic.Pointer[search.Indexes]
}

// NewHolder starts with initial, which may be the zero Indexes
// (no corpus loaded yet).
func NewHolder(initial search.Indexes) *Holder {
	h := &Holder{}
	h.current.Store(&initial)
	return h
}

// Acquire returns the current generation.
func (h *Holder) Acquire() search.Indexes {
	return *h.current.Load()
}

// Swap installs next and returns the generation it replaced.
func (h *Holder) Swap(next search.Indexes) search.Indexes {
	return *h.current.Swap(&next)
}

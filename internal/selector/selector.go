// Package selector picks the spot for each round without replacement.
package selector

import (
	"math/rand/v2"
	"slices"
)

// Rand is the random source used for sampling. *rand.Rand satisfies it, so a
// seeded rand.New(rand.NewPCG(a, b)) gives reproducible sequences.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Selector samples catalog indices for one session.
type Selector struct {
	size int
	rnd  Rand
	used []int
	seen map[int]struct{}
}

// New returns a selector over a catalog of size entries. A nil rnd uses the
// package-level source.
func New(size int, rnd Rand) *Selector {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Selector{
		size: size,
		rnd:  rnd,
		seen: make(map[int]struct{}),
	}
}

// Next samples uniformly among the indices not yet used. Once every index
// has been used (only possible when the catalog holds fewer spots than the
// session has rounds) it samples from the full catalog and repeats are
// allowed. The returned index is always recorded. Next returns -1 for an
// empty catalog.
func (s *Selector) Next() int {
	if s.size <= 0 {
		return -1
	}

	var idx int
	if s.Exhausted() {
		idx = s.rnd.IntN(s.size)
	} else {
		available := make([]int, 0, s.size-len(s.seen))
		for i := range s.size {
			if _, ok := s.seen[i]; !ok {
				available = append(available, i)
			}
		}
		idx = available[s.rnd.IntN(len(available))]
	}

	s.used = append(s.used, idx)
	s.seen[idx] = struct{}{}
	return idx
}

// Exhausted reports whether every index has been used at least once.
func (s *Selector) Exhausted() bool {
	return len(s.seen) >= s.size
}

// Used returns the selected indices in selection order.
func (s *Selector) Used() []int {
	return slices.Clone(s.used)
}

package catalog

import (
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/TimurManjosov/pawswipe/internal/deck"
)

// rank returns a deterministic position key for a candidate under seed.
// The same seed and id always produce the same key.
func rank(seed, id string) uint64 {
	return xxhash.Sum64String(seed + ":" + id)
}

// Shuffle returns a copy of cands in a stable pseudo-random order derived from
// seed. An empty seed keeps the source order.
func Shuffle(cands []deck.Candidate, seed string) []deck.Candidate {
	out := slices.Clone(cands)
	if seed == "" {
		return out
	}
	slices.SortStableFunc(out, func(a, b deck.Candidate) int {
		ra, rb := rank(seed, a.ID), rank(seed, b.ID)
		switch {
		case ra < rb:
			return -1
		case ra > rb:
			return 1
		default:
			return 0
		}
	})
	return out
}

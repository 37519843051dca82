// Package deck holds the ordered, cyclically indexed set of adoption candidates
// a browsing session swipes through.
package deck

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Candidate is an adoptable pet as supplied by the catalog. The swipe engine
// treats it as opaque and never mutates it.
type Candidate struct {
	ID         string            `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	Images     []string          `json:"images,omitempty" yaml:"images,omitempty"`
	Tags       []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Deck is an immutable sequence of candidates. The zero value is the empty deck.
type Deck struct {
	items       []Candidate
	fingerprint string
}

// New copies candidates into a fresh Deck.
func New(candidates []Candidate) Deck {
	items := make([]Candidate, len(candidates))
	copy(items, candidates)
	return Deck{items: items, fingerprint: fingerprint(items)}
}

// Size returns the number of candidates.
func (d Deck) Size() int { return len(d.items) }

// Empty reports whether the deck has no candidates.
func (d Deck) Empty() bool { return len(d.items) == 0 }

// At returns the candidate at cyclic index i. Negative indices wrap as well.
// The boolean is false only for the empty deck.
func (d Deck) At(i int) (Candidate, bool) {
	n := len(d.items)
	if n == 0 {
		return Candidate{}, false
	}
	return d.items[Wrap(i, n)], true
}

// Candidates returns a copy of the underlying sequence.
func (d Deck) Candidates() []Candidate {
	out := make([]Candidate, len(d.items))
	copy(out, d.items)
	return out
}

// Fingerprint identifies the deck content and order. Two decks built from the
// same ids in the same order share a fingerprint.
func (d Deck) Fingerprint() string { return d.fingerprint }

// Wrap maps i into [0, n). It returns 0 when n <= 0 so callers can use it for
// slot bindings of an empty deck.
func Wrap(i, n int) int {
	if n <= 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func fingerprint(items []Candidate) string {
	if len(items) == 0 {
		return ""
	}
	ids := make([]string, len(items))
	for i, c := range items {
		ids[i] = c.ID
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(ids, "\x00")))
}

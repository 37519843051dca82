package swipe

import "github.com/TimurManjosov/pawswipe/internal/deck"

// SlotBinding describes one render slot.
type SlotBinding struct {
	Slot        Slot   `json:"slot"`
	BoundIndex  int    `json:"boundIndex"`
	CandidateID string `json:"candidateId,omitempty"`
	Active      bool   `json:"active"`
}

// State is the discrete engine state as last published by the logic loop.
type State struct {
	ActiveSlot    Slot           `json:"activeSlot"`
	Cursor        int            `json:"cursor"`
	Transitioning bool           `json:"transitioning"`
	Generation    uint64         `json:"generation"`
	DeckSize      int            `json:"deckSize"`
	Fingerprint   string         `json:"fingerprint,omitempty"`
	Decisions     uint64         `json:"decisions"`
	Slots         [2]SlotBinding `json:"slots"`
}

// Empty reports the no-candidates state in which all input is disabled.
func (s State) Empty() bool { return s.DeckSize == 0 }

// Binding returns the binding of slot.
func (s State) Binding(slot Slot) SlotBinding { return s.Slots[slot] }

// controller owns the deck, cursor and slot bindings and performs the buffer
// swap. It is confined to the logic loop; the transitioning flag and the
// generation counter live on the Engine because the animation loop reads them.
type controller struct {
	deck   deck.Deck
	buf    Buffer
	cursor int
	rec    *recorder
}

func newController(rec *recorder) *controller {
	c := &controller{rec: rec}
	c.load(deck.Deck{})
	return c
}

// load replaces the deck wholesale and rebinds both slots from scratch.
func (c *controller) load(d deck.Deck) {
	c.deck = d
	c.cursor = 0
	c.buf.Reset(d.Size())
}

// swap records the decision for the active candidate, promotes the staged
// slot and advances the cursor, in that order. An empty deck swaps nothing.
func (c *controller) swap(o Outcome) (Decision, bool) {
	n := c.deck.Size()
	if n == 0 {
		return Decision{}, false
	}
	current, _ := c.deck.At(c.cursor)
	d := c.rec.record(current.ID, o, c.cursor)
	c.cursor = c.buf.Swap(c.cursor, n)
	return d, true
}

// active returns the interactive candidate.
func (c *controller) active() (deck.Candidate, bool) { return c.deck.At(c.cursor) }

func (c *controller) snapshot() State {
	st := State{
		ActiveSlot:  c.buf.Active(),
		Cursor:      c.cursor,
		DeckSize:    c.deck.Size(),
		Fingerprint: c.deck.Fingerprint(),
		Decisions:   c.rec.count,
	}
	for _, s := range []Slot{SlotA, SlotB} {
		b := SlotBinding{Slot: s, BoundIndex: c.buf.Bound(s), Active: s == c.buf.Active()}
		if cand, ok := c.deck.At(b.BoundIndex); ok {
			b.CandidateID = cand.ID
		}
		st.Slots[s] = b
	}
	return st
}

package swipe

import (
	"fmt"

	"github.com/TimurManjosov/pawswipe/internal/deck"
)

// Slot names one of the two render buffers.
type Slot int

const (
	SlotA Slot = iota
	SlotB
)

func (s Slot) String() string {
	if s == SlotB {
		return "B"
	}
	return "A"
}

// MarshalText renders the slot as "A" or "B".
func (s Slot) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Slot) UnmarshalText(b []byte) error {
	switch string(b) {
	case "A":
		*s = SlotA
	case "B":
		*s = SlotB
	default:
		return fmt.Errorf("unknown slot %q", b)
	}
	return nil
}

// other returns the opposite slot.
func (s Slot) other() Slot { return 1 - s }

// Buffer is the dual surface buffer: two slots, each bound to a deck index,
// exactly one of them active. Only the logic loop touches it.
type Buffer struct {
	bound  [2]int
	active Slot
}

// Reset binds A to 0 and B to 1 mod max(n, 1) with A active.
func (b *Buffer) Reset(n int) {
	b.active = SlotA
	b.bound[SlotA] = 0
	b.bound[SlotB] = deck.Wrap(1, n)
}

// Active is the interactive, visible slot.
func (b *Buffer) Active() Slot { return b.active }

// Staged is the hidden slot holding the next candidate.
func (b *Buffer) Staged() Slot { return b.active.other() }

// Bound returns the deck index slot s displays.
func (b *Buffer) Bound(s Slot) int { return b.bound[s] }

// Swap promotes the staged slot without touching its binding, then re-points
// the slot that just went hidden two ahead of cursor. It returns the new
// cursor. cursor is the index the active slot showed before the swap.
func (b *Buffer) Swap(cursor, n int) int {
	hidden := b.active
	b.active = b.active.other()
	b.bound[hidden] = deck.Wrap(cursor+2, n)
	return deck.Wrap(cursor+1, n)
}

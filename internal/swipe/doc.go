// Package swipe implements the card presentation engine behind the discovery
// screen: a cyclic deck shown through two alternating render slots, a gesture
// state machine fed by a raw pointer stream, and an animation coordinator that
// drives the active card's pose.
//
// An Engine runs two goroutines. The animation loop owns the pose and the
// gesture phase and reacts to pointer events and frame ticks; it never waits on
// the logic loop. The logic loop owns the deck, the cursor and the slot
// bindings and is the only place decisions are emitted. The animation loop
// reaches the logic loop only by posting one-shot messages into its mailbox.
//
// The transitioning flag is the single piece of state both loops read. It is
// raised when a commit starts and cleared by the logic loop after the buffer
// swap has settled; pointer-down and programmatic commits arriving while it is
// raised are dropped. Every commit carries a transition generation, and any
// completion whose generation is no longer current is ignored.
package swipe

package swipe

import (
	"errors"
	"fmt"
	"strings"
)

// Outcome is the result of a committed swipe.
type Outcome string

const (
	Accept Outcome = "accept"
	Reject Outcome = "reject"
)

// ErrUnknownOutcome is returned by ParseOutcome for anything but accept/reject.
var ErrUnknownOutcome = errors.New("unknown outcome")

// ParseOutcome accepts "accept"/"like"/"right" and "reject"/"pass"/"left".
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept", "like", "right":
		return Accept, nil
	case "reject", "pass", "left":
		return Reject, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
	}
}

// Valid reports whether o is Accept or Reject.
func (o Outcome) Valid() bool { return o == Accept || o == Reject }

// direction is the sign of the off-screen target for o.
func (o Outcome) direction() float64 {
	if o == Reject {
		return -1
	}
	return 1
}

// Phase is the gesture state of the active slot.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseCommittingAccept
	PhaseCommittingReject
	PhaseResetting
)

var phaseNames = [...]string{
	PhaseIdle:             "idle",
	PhaseDragging:         "dragging",
	PhaseCommittingAccept: "committing_accept",
	PhaseCommittingReject: "committing_reject",
	PhaseResetting:        "resetting",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText renders the phase name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a phase name, so clients can decode frames.
func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Committing reports whether p is one of the commit phases.
func (p Phase) Committing() bool {
	return p == PhaseCommittingAccept || p == PhaseCommittingReject
}

func committingPhase(o Outcome) Phase {
	if o == Reject {
		return PhaseCommittingReject
	}
	return PhaseCommittingAccept
}

// Resolve decides what a released drag does. Only horizontal displacement
// counts and the threshold is exclusive: with width 300 and ratio 0.25 a
// release at dx=-76 rejects while dx=-75 springs back.
func Resolve(dx, width, thresholdRatio float64) (Outcome, bool) {
	threshold := thresholdRatio * width
	switch {
	case dx < -threshold:
		return Reject, true
	case dx > threshold:
		return Accept, true
	default:
		return "", false
	}
}

// gesture tracks a single drag on the active slot. It is owned by the
// animation loop.
type gesture struct {
	phase    Phase
	originDX float64
	originDY float64
	startX   float64
	startY   float64
}

// begin records the drag origin. A drag that interrupts a spring-back starts
// from the pose the spring had reached.
func (g *gesture) begin(x, y float64, from Pose) {
	g.phase = PhaseDragging
	g.originDX, g.originDY = from.DX, from.DY
	g.startX, g.startY = x, y
}

// displacement is origin plus pointer delta.
func (g *gesture) displacement(x, y float64) (dx, dy float64) {
	return g.originDX + (x - g.startX), g.originDY + (y - g.startY)
}

package swipe

import (
	"math"
	"time"

	"github.com/charmbracelet/harmonica"
)

// springRestEpsilon is how close to center (in px and px/frame) the spring
// must be before it snaps to identity and reports completion.
const springRestEpsilon = 0.5

type driveMode int

const (
	modeRest driveMode = iota
	modeDirect
	modeTimed
)

type animKind int

const (
	animCommit animKind = iota
	animSpring
)

// finished is reported by step exactly once per timed animation that ran to
// completion. Superseded animations never report.
type finished struct {
	kind       animKind
	token      uint64
	generation uint64
	outcome    Outcome
}

// timedAnim is an in-flight timed drive.
type timedAnim struct {
	kind       animKind
	token      uint64
	generation uint64
	outcome    Outcome

	fromDX   float64
	toDX     float64
	dy       float64
	start    time.Time
	elapsed  time.Duration
	duration time.Duration

	velX, velY float64
}

// animator owns the active slot's pose. It is not safe for concurrent use; the
// animation loop is its only caller.
type animator struct {
	width    float64
	duration time.Duration
	frame    time.Duration
	now      func() time.Time
	spring   harmonica.Spring

	pose  Pose
	mode  driveMode
	timed *timedAnim
	token uint64
}

func newAnimator(opts Options) *animator {
	freq, ratio := opts.springParams()
	return &animator{
		width:    opts.CardWidth,
		duration: opts.CommitDuration,
		frame:    opts.frameInterval(),
		now:      opts.Clock.Now,
		spring:   harmonica.NewSpring(harmonica.FPS(opts.FPS), freq, ratio),
		pose:     IdentityPose(),
	}
}

// track is direct mode: the pose follows the pointer with no smoothing.
// Any timed animation is superseded.
func (a *animator) track(dx, dy float64) {
	a.supersede()
	a.mode = modeDirect
	a.pose = PoseAt(dx, dy, a.width)
}

// commit starts the timed drive to dx = ±W and returns its token.
func (a *animator) commit(o Outcome, generation uint64) uint64 {
	a.supersede()
	a.mode = modeTimed
	a.timed = &timedAnim{
		kind:       animCommit,
		token:      a.token,
		generation: generation,
		outcome:    o,
		fromDX:     a.pose.DX,
		toDX:       o.direction() * a.width,
		dy:         a.pose.DY,
		start:      a.now(),
		duration:   a.duration,
	}
	return a.token
}

// springBack starts the decelerating return to identity.
func (a *animator) springBack() uint64 {
	a.supersede()
	a.mode = modeTimed
	a.timed = &timedAnim{kind: animSpring, token: a.token}
	return a.token
}

// reset snaps to identity and cancels whatever was running.
func (a *animator) reset() {
	a.supersede()
	a.mode = modeRest
	a.pose = IdentityPose()
}

// running reports whether a timed animation needs frame ticks.
func (a *animator) running() bool { return a.mode == modeTimed && a.timed != nil }

// supersede invalidates the current timed animation so it can never report.
func (a *animator) supersede() {
	a.token++
	a.timed = nil
}

// step advances the timed animation by one frame.
func (a *animator) step() (finished, bool) {
	t := a.timed
	if !a.running() || t.token != a.token {
		return finished{}, false
	}

	switch t.kind {
	case animCommit:
		// At least one frame per tick, and never behind the clock when ticks
		// were dropped.
		t.elapsed = max(t.elapsed+a.frame, a.now().Sub(t.start))
		progress := 1.0
		if t.duration > 0 && t.elapsed < t.duration {
			progress = float64(t.elapsed) / float64(t.duration)
		}
		dx := t.fromDX + (t.toDX-t.fromDX)*easeOutQuad(progress)
		a.pose = PoseAt(dx, t.dy, a.width)
		if progress < 1 {
			return finished{}, false
		}
	case animSpring:
		dx, vx := a.spring.Update(a.pose.DX, t.velX, 0)
		dy, vy := a.spring.Update(a.pose.DY, t.velY, 0)
		t.velX, t.velY = vx, vy
		if atRest(dx, vx) && atRest(dy, vy) {
			a.pose = IdentityPose()
			break
		}
		a.pose = PoseAt(dx, dy, a.width)
		return finished{}, false
	}

	done := finished{kind: t.kind, token: t.token, generation: t.generation, outcome: t.outcome}
	a.timed = nil
	a.mode = modeRest
	return done, true
}

func atRest(pos, vel float64) bool {
	return math.Abs(pos) < springRestEpsilon && math.Abs(vel) < springRestEpsilon
}

func easeOutQuad(t float64) float64 { return 1 - (1-t)*(1-t) }

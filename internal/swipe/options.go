package swipe

import (
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Defaults for Options fields left at their zero value.
const (
	DefaultCardWidth       = 300.0
	DefaultCommitThreshold = 0.25
	DefaultCommitDuration  = 150 * time.Millisecond
	DefaultSettleDelay     = 50 * time.Millisecond
	DefaultSpringStiffness = 200.0
	DefaultSpringDamping   = 20.0
	DefaultFPS             = 60
)

// Options tunes an Engine. Zero fields fall back to the defaults above, except
// SettleDelay and CommitDuration which honor an explicit zero when
// ZeroDelays is set.
type Options struct {
	CardWidth       float64
	CommitThreshold float64
	CommitDuration  time.Duration
	SettleDelay     time.Duration
	SpringStiffness float64
	SpringDamping   float64
	FPS             int

	// ZeroDelays keeps zero CommitDuration and SettleDelay as-is instead of
	// applying defaults. Tests use it to run transitions on the next frame.
	ZeroDelays bool

	Clock  Clock
	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.CardWidth <= 0 {
		o.CardWidth = DefaultCardWidth
	}
	if o.CommitThreshold <= 0 {
		o.CommitThreshold = DefaultCommitThreshold
	}
	if !o.ZeroDelays {
		if o.CommitDuration <= 0 {
			o.CommitDuration = DefaultCommitDuration
		}
		if o.SettleDelay <= 0 {
			o.SettleDelay = DefaultSettleDelay
		}
	}
	if o.SpringStiffness <= 0 {
		o.SpringStiffness = DefaultSpringStiffness
	}
	if o.SpringDamping <= 0 {
		o.SpringDamping = DefaultSpringDamping
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	return o
}

// frameInterval is the fixed step between animation ticks.
func (o Options) frameInterval() time.Duration {
	return time.Second / time.Duration(o.FPS)
}

// springParams converts stiffness and damping of a unit-mass spring into the
// angular frequency and damping ratio harmonica expects. The ratio never drops
// below 1: a spring-back may be overdamped but must not overshoot center, so
// the default stiffness 200 and damping 20 (ratio ~0.71) run critically damped.
func (o Options) springParams() (angularFrequency, dampingRatio float64) {
	angularFrequency = math.Sqrt(o.SpringStiffness)
	dampingRatio = max(o.SpringDamping/(2*angularFrequency), 1)
	return angularFrequency, dampingRatio
}

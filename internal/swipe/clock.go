package swipe

import "time"

// Clock abstracts time for the engine so tests can drive frames and the
// settle delay deterministically.
type Clock interface {
	Now() time.Time
	// NewTicker returns a channel of frame ticks and a stop function.
	NewTicker(d time.Duration) (<-chan time.Time, func())
	// AfterFunc runs f once after d and returns a cancel function.
	AfterFunc(d time.Duration, f func()) func() bool
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func (SystemClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

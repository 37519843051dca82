package swipe

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/pawswipe/internal/deck"
)

// Drop kinds reported through Hooks.OnDrop.
const (
	DropGesture = "gesture"
	DropCommit  = "commit"
)

// Hooks are the engine's outbound calls. All of them run on the logic loop,
// one at a time; a hook must not call back into the Engine synchronously.
type Hooks struct {
	// OnDecision fires exactly once per committed swipe, before the slots are
	// rebound.
	OnDecision func(Decision)
	// OnActivate fires whenever a candidate becomes the interactive one.
	OnActivate func(deck.Candidate)
	// OnDrop fires when input is discarded by the re-entrancy guard or because
	// the deck is empty.
	OnDrop func(kind string)
	// OnReset fires when a released drag has sprung back to center.
	OnReset func()
}

// Frame is what renderers consume: discrete state plus the active pose.
type Frame struct {
	Seq   uint64 `json:"seq"`
	State State  `json:"state"`
	Phase Phase  `json:"phase"`
	Pose  Pose   `json:"pose"`
}

// PoseOf returns the pose slot s should be drawn with. The staged slot is
// always the invisible identity pose.
func (f Frame) PoseOf(s Slot) Pose {
	if s == f.State.ActiveSlot {
		return f.Pose
	}
	return StagedPose()
}

type logicKind int

const (
	logicLoadDeck logicKind = iota
	logicCommit
	logicCommitDone
	logicSettled
	logicResetDone
	logicDropped
)

type logicMsg struct {
	kind       logicKind
	deck       deck.Deck
	outcome    Outcome
	generation uint64
	dropKind   string
	// drag marks a commit requested by a released drag; generation is the
	// one the drag began under.
	drag  bool
	reply chan bool
}

type animOp int

const (
	opPointerDown animOp = iota
	opPointerMove
	opPointerUp
	opStartCommit
	opResetPose
	opSpringBack
)

type animMsg struct {
	kind       animOp
	x, y       float64
	outcome    Outcome
	generation uint64
}

type poseView struct {
	phase Phase
	pose  Pose
}

// Engine is the swipe-card presentation engine for one mounted screen.
type Engine struct {
	opts  Options
	hooks Hooks
	log   zerolog.Logger

	logic *mailbox[logicMsg]
	anim  *mailbox[animMsg]

	// transitioning and generation are written only by the logic loop; the
	// animation loop reads them.
	transitioning atomic.Bool
	generation    atomic.Uint64

	state  atomic.Pointer[State]
	pose   atomic.Pointer[poseView]
	frames *broadcaster

	// poseMu orders pose writes between the loops. resetGen is the newest
	// generation whose identity pose the logic loop has already shown; the
	// animation loop stays silent until it has applied that reset itself.
	poseMu   sync.Mutex
	resetGen uint64

	// logic loop only
	ctrl         *controller
	cancelSettle func() bool

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New builds an engine with an empty deck. Call Start before feeding input.
func New(opts Options, hooks Hooks) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		opts:   opts,
		hooks:  hooks,
		log:    opts.Logger.With().Str("component", "swipe").Logger(),
		logic:  newMailbox[logicMsg](),
		anim:   newMailbox[animMsg](),
		frames: newBroadcaster(),
		done:   make(chan struct{}),
	}
	e.ctrl = newController(&recorder{now: opts.Clock.Now, emit: hooks.OnDecision})
	st := e.ctrl.snapshot()
	e.state.Store(&st)
	e.pose.Store(&poseView{phase: PhaseIdle, pose: IdentityPose()})
	return e
}

// Options returns the effective options after defaults.
func (e *Engine) Options() Options { return e.opts }

// Start launches the logic and animation loops. It is safe to call more than
// once.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.wg.Add(2)
		go e.runLogic()
		go e.runAnimation()
	})
}

// Close stops both loops, cancels a pending settle and closes every
// subscriber channel. It is safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		e.wg.Wait()
		e.logic.close()
		e.anim.close()
		if e.cancelSettle != nil {
			e.cancelSettle()
		}
		e.frames.close()
	})
	return nil
}

// LoadDeck replaces the deck and resets cursor, slots, pose and the
// transitioning flag. It returns once the logic loop has applied the reset,
// or false if the engine is closed.
func (e *Engine) LoadDeck(d deck.Deck) bool {
	return e.request(logicMsg{kind: logicLoadDeck, deck: d})
}

// Commit is a programmatic swipe, equivalent to releasing a drag past the
// threshold. It returns false when the swipe was dropped.
func (e *Engine) Commit(o Outcome) bool {
	if !o.Valid() {
		return false
	}
	return e.request(logicMsg{kind: logicCommit, outcome: o})
}

// PointerDown starts a drag on the active slot.
func (e *Engine) PointerDown(x, y float64) { e.anim.post(animMsg{kind: opPointerDown, x: x, y: y}) }

// PointerMove feeds the live drag.
func (e *Engine) PointerMove(x, y float64) { e.anim.post(animMsg{kind: opPointerMove, x: x, y: y}) }

// PointerUp releases the drag; the gesture commits or springs back.
func (e *Engine) PointerUp(x, y float64) { e.anim.post(animMsg{kind: opPointerUp, x: x, y: y}) }

// Subscribe returns a channel of frames. Slow readers lose old frames rather
// than stall the engine.
func (e *Engine) Subscribe() (<-chan Frame, func()) { return e.frames.subscribe() }

// Frame assembles the current frame without publishing it.
func (e *Engine) Frame() Frame { return e.buildFrame() }

// Transitioning reports whether input is currently being dropped.
func (e *Engine) Transitioning() bool { return e.transitioning.Load() }

func (e *Engine) request(m logicMsg) bool {
	m.reply = make(chan bool, 1)
	if !e.logic.post(m) {
		return false
	}
	select {
	case ok := <-m.reply:
		return ok
	case <-e.done:
		return false
	}
}

func (e *Engine) buildFrame() Frame {
	st := *e.state.Load()
	st.Transitioning = e.transitioning.Load()
	st.Generation = e.generation.Load()
	pv := e.pose.Load()
	return Frame{State: st, Phase: pv.phase, Pose: pv.pose}
}

func (e *Engine) publish() { e.frames.publish(e.buildFrame) }

// ---- logic loop ----

func (e *Engine) runLogic() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case <-e.logic.ready():
			for _, m := range e.logic.drain() {
				e.handleLogic(m)
			}
		}
	}
}

func (e *Engine) handleLogic(m logicMsg) {
	switch m.kind {
	case logicLoadDeck:
		e.loadDeck(m.deck)
		m.reply <- true
	case logicCommit:
		ok := e.beginCommit(m)
		if m.reply != nil {
			m.reply <- ok
		}
	case logicCommitDone:
		e.completeCommit(m.generation, m.outcome)
	case logicSettled:
		e.settle(m.generation)
	case logicResetDone:
		if e.hooks.OnReset != nil {
			e.hooks.OnReset()
		}
	case logicDropped:
		e.drop(m.dropKind)
	}
}

func (e *Engine) loadDeck(d deck.Deck) {
	if e.cancelSettle != nil {
		e.cancelSettle()
		e.cancelSettle = nil
	}
	e.ctrl.load(d)
	gen := e.generation.Add(1)
	e.transitioning.Store(false)
	e.anim.post(animMsg{kind: opResetPose, generation: gen})
	e.commitStateReset(gen)

	e.log.Info().Int("size", d.Size()).Str("fingerprint", d.Fingerprint()).Msg("deck loaded")
	e.activate()
}

// beginCommit is the only place a transition starts, whether it came from
// Commit or from a released drag.
func (e *Engine) beginCommit(m logicMsg) bool {
	if m.drag && m.generation != e.generation.Load() {
		// A reload or another commit already told the animation loop what to do.
		e.log.Debug().Uint64("generation", m.generation).Uint64("current", e.generation.Load()).
			Msg("stale drag commit dropped")
		e.drop(DropCommit)
		return false
	}
	if e.ctrl.deck.Empty() || !e.transitioning.CompareAndSwap(false, true) {
		e.drop(DropCommit)
		if m.drag {
			e.anim.post(animMsg{kind: opSpringBack})
		}
		return false
	}
	gen := e.generation.Add(1)
	e.anim.post(animMsg{kind: opStartCommit, outcome: m.outcome, generation: gen})
	e.publish()
	return true
}

// completeCommit is the buffer swap controller: it runs when the off-screen
// animation for generation gen has finished.
func (e *Engine) completeCommit(gen uint64, o Outcome) {
	if gen != e.generation.Load() {
		e.log.Debug().Uint64("generation", gen).Uint64("current", e.generation.Load()).
			Msg("stale commit completion ignored")
		return
	}

	e.transitioning.Store(true)
	if d, ok := e.ctrl.swap(o); ok {
		e.log.Debug().Str("candidate", d.CandidateID).Str("outcome", string(d.Outcome)).
			Int("cursor", e.ctrl.cursor).Msg("swipe committed")
	}
	e.anim.post(animMsg{kind: opResetPose, generation: gen})
	e.commitStateReset(gen)
	e.activate()
	e.scheduleSettle(gen)
}

func (e *Engine) scheduleSettle(gen uint64) {
	if e.opts.SettleDelay <= 0 {
		e.settle(gen)
		return
	}
	e.cancelSettle = e.opts.Clock.AfterFunc(e.opts.SettleDelay, func() {
		e.logic.post(logicMsg{kind: logicSettled, generation: gen})
	})
}

func (e *Engine) settle(gen uint64) {
	if gen != e.generation.Load() {
		return
	}
	e.cancelSettle = nil
	e.transitioning.Store(false)
	e.publish()
}

func (e *Engine) drop(kind string) {
	e.log.Debug().Str("kind", kind).Msg("input dropped")
	if e.hooks.OnDrop != nil {
		e.hooks.OnDrop(kind)
	}
}

func (e *Engine) activate() {
	if e.hooks.OnActivate == nil {
		return
	}
	if c, ok := e.ctrl.active(); ok {
		e.hooks.OnActivate(c)
	}
}

// commitStateReset publishes the rebound slots together with the identity
// pose, so no frame pairs the new active slot with the outgoing card's pose.
func (e *Engine) commitStateReset(gen uint64) {
	st := e.ctrl.snapshot()
	e.poseMu.Lock()
	e.resetGen = gen
	e.pose.Store(&poseView{phase: PhaseIdle, pose: IdentityPose()})
	e.state.Store(&st)
	e.poseMu.Unlock()
	e.publish()
}

// ---- animation loop ----

// animLoop is the state confined to the animation goroutine.
type animLoop struct {
	e       *Engine
	a       *animator
	g       gesture
	lastGen uint64
	// ackGen is the newest reset applied here.
	ackGen uint64
	// dragGen is the generation the current drag began under; pending is set
	// while a released drag waits for the logic loop to accept its commit.
	dragGen uint64
	pending bool
}

func (e *Engine) runAnimation() {
	defer e.wg.Done()

	l := &animLoop{e: e, a: newAnimator(e.opts)}
	var (
		tick     <-chan time.Time
		stopTick func()
	)
	defer func() {
		if stopTick != nil {
			stopTick()
		}
	}()

	for {
		switch {
		case l.a.running() && tick == nil:
			tick, stopTick = e.opts.Clock.NewTicker(e.opts.frameInterval())
		case !l.a.running() && tick != nil:
			stopTick()
			tick, stopTick = nil, nil
		}

		select {
		case <-e.done:
			return
		case <-e.anim.ready():
			for _, m := range e.anim.drain() {
				l.handle(m)
			}
		case <-tick:
			l.frame()
		}
	}
}

func (l *animLoop) handle(m animMsg) {
	e := l.e
	switch m.kind {
	case opPointerDown:
		if l.g.phase == PhaseDragging {
			return
		}
		// generation is read before transitioning so a commit that starts in
		// between leaves this drag with a stale generation.
		gen := e.generation.Load()
		if l.g.phase.Committing() || e.state.Load().Empty() || e.transitioning.Load() {
			e.logic.post(logicMsg{kind: logicDropped, dropKind: DropGesture})
			return
		}
		l.dragGen = gen
		l.g.begin(m.x, m.y, l.a.pose)
		l.a.track(l.a.pose.DX, l.a.pose.DY)

	case opPointerMove:
		if l.g.phase != PhaseDragging {
			return
		}
		l.a.track(l.g.displacement(m.x, m.y))

	case opPointerUp:
		if l.g.phase != PhaseDragging {
			return
		}
		dx, dy := l.g.displacement(m.x, m.y)
		l.a.track(dx, dy)
		l.release(dx)

	case opStartCommit:
		l.startCommit(m.outcome, m.generation)

	case opResetPose:
		l.ackGen = max(l.ackGen, m.generation)
		if m.generation < l.lastGen {
			return
		}
		l.pending = false
		l.a.reset()
		l.g = gesture{}

	case opSpringBack:
		if !l.pending {
			return
		}
		l.pending = false
		l.springBack()
	}
	l.publish()
}

// release resolves a finished drag. A commit is only requested here; the pose
// holds where the pointer let go until the logic loop answers with
// opStartCommit or opSpringBack.
func (l *animLoop) release(dx float64) {
	e := l.e
	o, commit := Resolve(dx, e.opts.CardWidth, e.opts.CommitThreshold)
	if !commit {
		l.springBack()
		return
	}
	l.pending = true
	l.g.phase = committingPhase(o)
	e.logic.post(logicMsg{kind: logicCommit, outcome: o, generation: l.dragGen, drag: true})
}

func (l *animLoop) springBack() {
	l.g.phase = PhaseResetting
	l.a.springBack()
}

func (l *animLoop) startCommit(o Outcome, gen uint64) {
	l.lastGen = gen
	l.pending = false
	l.g.phase = committingPhase(o)
	l.a.commit(o, gen)
}

func (l *animLoop) frame() {
	done, ok := l.a.step()
	if ok && done.kind == animSpring {
		l.g.phase = PhaseIdle
	}
	l.publish()
	if !ok {
		return
	}

	switch done.kind {
	case animCommit:
		l.e.logic.post(logicMsg{kind: logicCommitDone, generation: done.generation, outcome: done.outcome})
	case animSpring:
		l.e.logic.post(logicMsg{kind: logicResetDone})
	}
}

func (l *animLoop) publish() {
	e := l.e
	e.poseMu.Lock()
	if l.ackGen < e.resetGen {
		e.poseMu.Unlock()
		return
	}
	e.pose.Store(&poseView{phase: l.g.phase, pose: l.a.pose})
	e.poseMu.Unlock()
	e.publish()
}

package swipe

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/TimurManjosov/pawswipe/internal/deck"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// hookLog collects hook calls made from the logic loop.
type hookLog struct {
	mu        sync.Mutex
	decisions []Decision
	activated []string
	drops     []string
	resets    int
}

func (h *hookLog) hooks() Hooks {
	return Hooks{
		OnDecision: func(d Decision) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.decisions = append(h.decisions, d)
		},
		OnActivate: func(c deck.Candidate) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.activated = append(h.activated, c.ID)
		},
		OnDrop: func(kind string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.drops = append(h.drops, kind)
		},
		OnReset: func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.resets++
		},
	}
}

func (h *hookLog) decisionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.decisions)
}

func (h *hookLog) snapshot() hookLog {
	h.mu.Lock()
	defer h.mu.Unlock()
	return hookLog{
		decisions: append([]Decision(nil), h.decisions...),
		activated: append([]string(nil), h.activated...),
		drops:     append([]string(nil), h.drops...),
		resets:    h.resets,
	}
}

func startEngine(t *testing.T, opts Options, n int) (*Engine, *hookLog) {
	t.Helper()
	h := &hookLog{}
	e := New(opts, h.hooks())
	e.Start()
	t.Cleanup(func() { _ = e.Close() })
	require.True(t, e.LoadDeck(deck.New(candidates(n))))
	return e, h
}

// fastOptions finish a commit on the next frame and settle immediately.
func fastOptions() Options {
	return Options{FPS: 1000, ZeroDelays: true}
}

// springOptions use a stiff, critically damped spring so spring-backs finish
// within a few hundred frames.
func springOptions() Options {
	return Options{FPS: 1000, ZeroDelays: true, SpringStiffness: 4000, SpringDamping: 126}
}

// waitIdle blocks until the engine has re-armed after want decisions.
func waitIdle(t *testing.T, e *Engine, h *hookLog, want int) Frame {
	t.Helper()
	require.Eventually(t, func() bool {
		f := e.Frame()
		return h.decisionCount() == want && !f.State.Transitioning && f.Phase == PhaseIdle
	}, 2*time.Second, time.Millisecond)
	return e.Frame()
}

func TestEngine_CommitSequenceWrapsDeck(t *testing.T) {
	e, h := startEngine(t, fastOptions(), 4)

	outcomes := []Outcome{Accept, Reject, Accept, Accept}
	for i, o := range outcomes {
		require.True(t, e.Commit(o), "commit %d", i)
		f := waitIdle(t, e, h, i+1)
		requireInvariants(t, f.State)
		assert.Equal(t, (i+1)%4, f.State.Cursor)
		assert.True(t, f.Pose.IsIdentity(), "pose reset after commit %d", i)
	}

	got := h.snapshot()
	ids := make([]string, len(got.decisions))
	for i, d := range got.decisions {
		ids[i] = d.CandidateID
		assert.Equal(t, outcomes[i], d.Outcome)
	}
	assert.Equal(t, []string{"P0", "P1", "P2", "P3"}, ids)
	assert.Equal(t, []string{"P0", "P1", "P2", "P3", "P0"}, got.activated)
	assert.Equal(t, SlotA, e.Frame().State.ActiveSlot)
}

func TestEngine_ReentrantCommitIsDropped(t *testing.T) {
	e, h := startEngine(t, Options{
		FPS:            1000,
		CommitDuration: 100 * time.Millisecond,
		SettleDelay:    20 * time.Millisecond,
	}, 4)

	require.True(t, e.Commit(Accept))
	assert.False(t, e.Commit(Accept), "second commit inside the transition window")

	f := waitIdle(t, e, h, 1)
	assert.Equal(t, 1, f.State.Cursor)

	got := h.snapshot()
	require.Len(t, got.decisions, 1)
	assert.Equal(t, []string{DropCommit}, got.drops)
}

func TestEngine_DragPastThresholdRejects(t *testing.T) {
	e, h := startEngine(t, fastOptions(), 4)

	e.PointerDown(200, 100)
	e.PointerMove(160, 110)
	e.PointerUp(124, 120)

	f := waitIdle(t, e, h, 1)
	got := h.snapshot()
	assert.Equal(t, "P0", got.decisions[0].CandidateID)
	assert.Equal(t, Reject, got.decisions[0].Outcome)
	assert.Equal(t, 1, f.State.Cursor)
	assert.Equal(t, SlotB, f.State.ActiveSlot)
}

func TestEngine_DragInsideThresholdSpringsBack(t *testing.T) {
	e, h := startEngine(t, springOptions(), 4)

	e.PointerDown(200, 100)
	e.PointerMove(150, 100)
	e.PointerUp(126, 100)

	require.Eventually(t, func() bool {
		return h.snapshot().resets == 1
	}, 5*time.Second, time.Millisecond)

	f := e.Frame()
	assert.Equal(t, PhaseIdle, f.Phase)
	assert.True(t, f.Pose.IsIdentity())
	assert.Equal(t, 0, f.State.Cursor)
	assert.Zero(t, h.decisionCount())
}

func TestEngine_ZeroDragSpringsBack(t *testing.T) {
	e, h := startEngine(t, springOptions(), 2)

	e.PointerDown(10, 10)
	e.PointerUp(10, 10)

	require.Eventually(t, func() bool {
		return h.snapshot().resets == 1
	}, 5*time.Second, time.Millisecond)
	assert.Zero(t, h.decisionCount())
}

func TestEngine_EmptyDeckDisablesInput(t *testing.T) {
	e, h := startEngine(t, fastOptions(), 0)

	assert.False(t, e.Commit(Accept))
	e.PointerDown(0, 0)
	e.PointerUp(-200, 0)

	require.Eventually(t, func() bool {
		return len(h.snapshot().drops) == 2
	}, 2*time.Second, time.Millisecond)

	got := h.snapshot()
	assert.Equal(t, []string{DropCommit, DropGesture}, got.drops)
	assert.Empty(t, got.decisions)
	assert.Empty(t, got.activated)
	assert.True(t, e.Frame().State.Empty())
}

func TestEngine_SingleCandidateRepeats(t *testing.T) {
	e, h := startEngine(t, fastOptions(), 1)

	for i := range 3 {
		require.True(t, e.Commit(Reject))
		f := waitIdle(t, e, h, i+1)
		assert.Equal(t, 0, f.State.Cursor)
	}
	for _, d := range h.snapshot().decisions {
		assert.Equal(t, "P0", d.CandidateID)
	}
}

func TestEngine_LoadDeckCancelsTransition(t *testing.T) {
	e, h := startEngine(t, Options{
		FPS:            200,
		CommitDuration: time.Second,
		SettleDelay:    time.Second,
	}, 4)

	require.True(t, e.Commit(Accept))
	require.True(t, e.Transitioning())

	require.True(t, e.LoadDeck(deck.New(candidates(3))))
	f := e.Frame()
	assert.False(t, f.State.Transitioning)
	assert.Equal(t, 3, f.State.DeckSize)
	assert.Equal(t, 0, f.State.Cursor)

	require.Eventually(t, func() bool {
		return e.Frame().Phase == PhaseIdle
	}, 2*time.Second, time.Millisecond)
	assert.True(t, e.Frame().Pose.IsIdentity())

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, h.decisionCount(), "cancelled commit must not emit a decision")
}

func TestEngine_StaleCompletionIgnored(t *testing.T) {
	e, h := startEngine(t, fastOptions(), 4)

	stale := e.generation.Load() - 1
	e.logic.post(logicMsg{kind: logicCommitDone, generation: stale, outcome: Accept})

	require.True(t, e.Commit(Reject))
	waitIdle(t, e, h, 1)

	got := h.snapshot()
	require.Len(t, got.decisions, 1)
	assert.Equal(t, Reject, got.decisions[0].Outcome)
	assert.Equal(t, 1, e.Frame().State.Cursor)
}

func TestEngine_SubscribersSeeStagedSlotHidden(t *testing.T) {
	e, h := startEngine(t, fastOptions(), 3)
	frames, unsub := e.Subscribe()
	defer unsub()

	require.True(t, e.Commit(Accept))
	waitIdle(t, e, h, 1)

	var last Frame
	timeout := time.After(2 * time.Second)
	for last.State.Decisions < 1 || last.Phase != PhaseIdle {
		select {
		case f := <-frames:
			require.Greater(t, f.Seq, last.Seq, "frames arrive in sequence order")
			staged := f.State.ActiveSlot.other()
			assert.Equal(t, StagedPose(), f.PoseOf(staged))
			last = f
		case <-timeout:
			t.Fatalf("no settled frame received, last=%+v", last)
		}
	}
	assert.Equal(t, SlotB, last.State.ActiveSlot)
}

func TestEngine_CloseIsIdempotent(t *testing.T) {
	e := New(fastOptions(), Hooks{})
	e.Start()
	frames, _ := e.Subscribe()

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, open := <-frames
	assert.False(t, open)
	assert.False(t, e.Commit(Accept))
	assert.False(t, e.LoadDeck(deck.New(candidates(2))))
}

// collectFrames records every published frame until the returned func is
// called, which unsubscribes and hands back what was seen.
func collectFrames(e *Engine) func() []Frame {
	frames, unsub := e.Subscribe()
	out := make(chan []Frame, 1)
	go func() {
		var got []Frame
		for f := range frames {
			got = append(got, f)
		}
		out <- got
	}()
	return func() []Frame {
		unsub()
		return <-out
	}
}

func TestEngine_SwapNeverShowsOutgoingPose(t *testing.T) {
	e, h := startEngine(t, fastOptions(), 4)
	stop := collectFrames(e)

	require.True(t, e.Commit(Accept))
	waitIdle(t, e, h, 1)
	e.PointerDown(100, 0)
	e.PointerMove(200, 0)
	e.PointerUp(250, 0)
	waitIdle(t, e, h, 2)
	require.True(t, e.Commit(Reject))
	waitIdle(t, e, h, 3)

	frames := stop()
	require.NotEmpty(t, frames)

	active, flips := SlotA, 0
	for _, f := range frames {
		if f.State.ActiveSlot == active {
			continue
		}
		flips++
		active = f.State.ActiveSlot
		assert.True(t, f.Pose.IsIdentity(), "frame %d made slot %v active with pose %+v", f.Seq, f.State.ActiveSlot, f.Pose)
		assert.Equal(t, PhaseIdle, f.Phase, "frame %d", f.Seq)
	}
	assert.Equal(t, 3, flips)
}

func TestEngine_DragDuringTransitionIsDropped(t *testing.T) {
	e, h := startEngine(t, Options{
		FPS:            1000,
		CommitDuration: 30 * time.Millisecond,
		SettleDelay:    time.Hour,
	}, 4)
	stop := collectFrames(e)

	drag := func() {
		e.PointerDown(200, 100)
		e.PointerMove(40, 100)
		e.PointerUp(20, 100)
	}

	require.True(t, e.Commit(Accept))
	drag() // card still flying off

	require.Eventually(t, func() bool {
		return h.decisionCount() == 1 && e.Frame().Phase == PhaseIdle
	}, 2*time.Second, time.Millisecond)
	require.True(t, e.Transitioning())
	drag() // settle delay still holding the guard

	require.Eventually(t, func() bool {
		return len(h.snapshot().drops) == 2
	}, 2*time.Second, time.Millisecond)

	for _, f := range stop() {
		assert.NotEqual(t, PhaseDragging, f.Phase, "frame %d", f.Seq)
		assert.GreaterOrEqual(t, f.Pose.DX, 0.0, "frame %d followed the pointer", f.Seq)
	}

	got := h.snapshot()
	assert.Equal(t, []string{DropGesture, DropGesture}, got.drops)
	assert.Len(t, got.decisions, 1)
	f := e.Frame()
	assert.True(t, f.Pose.IsIdentity())
	assert.Equal(t, 1, f.State.Cursor)
}

func TestEngine_DragCommitDecidedByLogicLoop(t *testing.T) {
	h := &hookLog{}
	e := New(fastOptions(), h.hooks())
	t.Cleanup(func() { _ = e.Close() })

	e.loadDeck(deck.New(candidates(3)))
	loaded := e.generation.Load()
	e.anim.drain()

	// Released after the reload, but begun before it.
	assert.False(t, e.beginCommit(logicMsg{kind: logicCommit, outcome: Accept, drag: true, generation: loaded - 1}))
	assert.False(t, e.transitioning.Load())
	assert.Empty(t, e.anim.drain())

	require.True(t, e.beginCommit(logicMsg{kind: logicCommit, outcome: Reject, drag: true, generation: loaded}))
	assert.True(t, e.transitioning.Load())
	msgs := e.anim.drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, opStartCommit, msgs[0].kind)
	assert.Equal(t, Reject, msgs[0].outcome)
	assert.Equal(t, loaded+1, msgs[0].generation)

	// A second release while that commit runs is refused and springs back.
	assert.False(t, e.beginCommit(logicMsg{kind: logicCommit, outcome: Accept, drag: true, generation: loaded + 1}))
	msgs = e.anim.drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, opSpringBack, msgs[0].kind)
	assert.Equal(t, loaded+1, e.generation.Load())

	assert.Equal(t, []string{DropCommit, DropCommit}, h.snapshot().drops)
}

func TestEngine_ReloadMidDragNeverCommits(t *testing.T) {
	e, h := startEngine(t, springOptions(), 4)

	e.PointerDown(200, 100)
	e.PointerMove(20, 100)
	require.True(t, e.LoadDeck(deck.New(candidates(2))))
	e.PointerUp(0, 100)

	require.Eventually(t, func() bool {
		f := e.Frame()
		return f.State.DeckSize == 2 && f.Phase == PhaseIdle && f.Pose.IsIdentity()
	}, 2*time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, h.decisionCount())
	f := e.Frame()
	assert.False(t, f.State.Transitioning)
	assert.Equal(t, 0, f.State.Cursor)
}

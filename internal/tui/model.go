package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/TimurManjosov/pawswipe/internal/client"
	"github.com/TimurManjosov/pawswipe/internal/deck"
	"github.com/TimurManjosov/pawswipe/internal/session"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
)

// dragStep is how far one nudge key moves a keyboard drag, in engine pixels.
const dragStep = 40.0

type keyMap struct {
	Reject     key.Binding
	Accept     key.Binding
	NudgeLeft  key.Binding
	NudgeRight key.Binding
	Release    key.Binding
	Cancel     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reject, k.Accept, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Reject, k.Accept},
		{k.NudgeLeft, k.NudgeRight, k.Release, k.Cancel},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Reject:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pass")),
	Accept:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "like")),
	NudgeLeft:  key.NewBinding(key.WithKeys(","), key.WithHelp(",", "drag left")),
	NudgeRight: key.NewBinding(key.WithKeys("."), key.WithHelp(".", "drag right")),
	Release:    key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "release drag")),
	Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel drag")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// updateMsg carries one backend update into the program.
type updateMsg struct{ Update }

// closedMsg reports that the backend stopped sending updates.
type closedMsg struct{}

// Model is the bubbletea model for one swipe session.
type Model struct {
	backend Backend
	title   string

	frame  swipe.Frame
	cards  map[string]deck.Candidate
	last   string
	err    error
	closed bool

	dragging bool
	dragX    float64

	width    int
	help     help.Model
	progress progress.Model
}

// New builds a model over b. title is shown above the card.
func New(b Backend, title string) Model {
	return Model{
		backend:  b,
		title:    title,
		cards:    make(map[string]deck.Candidate),
		width:    80,
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(cardWidth), progress.WithoutPercentage()),
	}
}

// Run starts a full-screen program over b and blocks until the user quits.
func Run(b Backend, title string) error {
	defer b.Close()
	_, err := tea.NewProgram(New(b, title), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd { return waitForUpdate(m.backend.Updates()) }

func waitForUpdate(ch <-chan Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return updateMsg{u}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case closedMsg:
		m.closed = true
		return m, nil

	case updateMsg:
		m.apply(msg.Update)
		return m, waitForUpdate(m.backend.Updates())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) apply(u Update) {
	switch {
	case u.Info != nil:
		m.frame = u.Info.Frame
		if u.Info.LastViewed != nil {
			m.remember(*u.Info.LastViewed)
		}
	case u.Frame != nil:
		if u.Frame.Seq >= m.frame.Seq {
			m.frame = *u.Frame
		}
	case u.Notice != nil:
		m.applyNotice(*u.Notice)
	case u.Dropped:
		m.err = client.ErrDropped
	case u.Err != nil:
		m.err = u.Err
	}
}

func (m *Model) applyNotice(n session.Notice) {
	if n.Candidate != nil {
		m.remember(*n.Candidate)
	}
	if n.Kind != session.NoticeDecision || n.Decision == nil {
		return
	}
	name := n.Decision.CandidateID
	if c, ok := m.cards[name]; ok {
		name = c.Name
	}
	verb := "Passed on"
	if n.Decision.Outcome == swipe.Accept {
		verb = "Liked"
	}
	m.last = fmt.Sprintf("%s %s", verb, name)
	m.err = nil
}

func (m *Model) remember(c deck.Candidate) { m.cards[c.ID] = c }

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, keys.Reject):
		m.commit(swipe.Reject)
	case key.Matches(msg, keys.Accept):
		m.commit(swipe.Accept)
	case key.Matches(msg, keys.NudgeLeft):
		m.nudge(-dragStep)
	case key.Matches(msg, keys.NudgeRight):
		m.nudge(dragStep)
	case key.Matches(msg, keys.Release):
		m.release(m.dragX)
	case key.Matches(msg, keys.Cancel):
		m.release(0)
	}
	return m, nil
}

func (m *Model) commit(o swipe.Outcome) {
	if m.dragging {
		m.release(0)
	}
	m.err = m.backend.Commit(o)
}

// nudge starts or extends a keyboard drag.
func (m *Model) nudge(dx float64) {
	if !m.dragging {
		if m.err = m.backend.Pointer(session.PointerDown, 0, 0); m.err != nil {
			return
		}
		m.dragging, m.dragX = true, 0
	}
	m.dragX += dx
	m.err = m.backend.Pointer(session.PointerMove, m.dragX, 0)
}

func (m *Model) release(x float64) {
	if !m.dragging {
		return
	}
	m.dragging = false
	m.err = m.backend.Pointer(session.PointerUp, x, 0)
	m.dragX = 0
}

// dropped reports whether the last error was a refused swipe.
func (m Model) dropped() bool { return errors.Is(m.err, client.ErrDropped) }

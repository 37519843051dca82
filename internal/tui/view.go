package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/TimurManjosov/pawswipe/internal/deck"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
)

const (
	cardWidth = 36
	// pixelsPerColumn maps engine displacement to terminal columns.
	pixelsPerColumn = 10.0
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2).
			Width(cardWidth)
	nameStyle   = lipgloss.NewStyle().Bold(true)
	tagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	likeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	nopeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	st := m.frame.State
	switch {
	case m.closed:
		b.WriteString("Session closed.\n")
	case st.Empty():
		b.WriteString("No pets match this filter.\n")
	default:
		b.WriteString(m.renderCard())
		b.WriteString("\n")
		b.WriteString(m.progress.ViewAs(float64(st.Cursor) / float64(st.DeckSize)))
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(fmt.Sprintf("card %d of %d · %d decisions · %s",
			st.Cursor+1, st.DeckSize, st.Decisions, m.frame.Phase)))
		b.WriteString("\n")
	}

	if m.last != "" {
		b.WriteString(m.last)
		b.WriteString("\n")
	}
	switch {
	case m.dropped():
		b.WriteString(statusStyle.Render("Swipe ignored: the card is still moving."))
		b.WriteString("\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

// renderCard draws the active candidate shifted by the pose's horizontal
// displacement, with a stamp once the drag passes the commit threshold.
func (m Model) renderCard() string {
	pose := m.frame.Pose
	st := m.frame.State
	id := st.Binding(st.ActiveSlot).CandidateID

	var body strings.Builder
	if c, ok := m.cards[id]; ok {
		body.WriteString(describe(c))
	} else {
		body.WriteString(nameStyle.Render(id))
	}

	threshold := swipe.DefaultCardWidth * swipe.DefaultCommitThreshold
	style := cardStyle
	switch {
	case pose.DX >= threshold:
		body.WriteString("\n\n" + likeStyle.Render("LIKE"))
		style = style.BorderForeground(likeStyle.GetForeground())
	case pose.DX <= -threshold:
		body.WriteString("\n\n" + nopeStyle.Render("NOPE"))
		style = style.BorderForeground(nopeStyle.GetForeground())
	}

	card := style.Faint(pose.Opacity > 0 && pose.Opacity < 0.5).Render(body.String())

	left := (m.width-lipgloss.Width(card))/2 + int(math.Round(pose.DX/pixelsPerColumn))
	left = max(0, min(left, m.width-lipgloss.Width(card)))
	return lipgloss.NewStyle().MarginLeft(left).Render(card)
}

func describe(c deck.Candidate) string {
	var b strings.Builder
	b.WriteString(nameStyle.Render(c.Name))

	names := make([]string, 0, len(c.Attributes))
	for k := range c.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(&b, "\n%s: %s", k, c.Attributes[k])
	}
	if len(c.Tags) > 0 {
		b.WriteString("\n\n" + tagStyle.Render("#"+strings.Join(c.Tags, " #")))
	}
	return b.String()
}

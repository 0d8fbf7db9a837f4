// Package tui renders the interactive board, team dashboard, and
// workday timer.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/kanbanize/internal/application"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/card"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/events"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/team"
)

// Styles
var laneStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240")).
	Padding(0, 1).
	Width(24)

var laneTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	Padding(0, 1)

var selectedCardStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("229")).
	Bold(true)

var toastInfo = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
var toastSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
var toastError = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

var helpFooter = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// cardsMsg carries a fresh task list into the model.
type cardsMsg []card.Card

// toastMsg carries one notification into the model.
type toastMsg events.Notification

// BoardModel is the five-lane board.
type BoardModel struct {
	store   *application.TaskStore
	members []team.Member
	toasts  <-chan events.Notification
	updates <-chan []card.Card

	cards []card.Card
	lane  int
	row   int
	toast *events.Notification
}

// NewBoardModel builds the board over the shared store. The member list
// drives the assign key.
func NewBoardModel(store *application.TaskStore, bus *events.Bus, members []team.Member) BoardModel {
	updates := make(chan []card.Card, 8)
	store.Subscribe(func(cards []card.Card) {
		select {
		case updates <- cards:
		default:
		}
	})

	return BoardModel{
		store:   store,
		members: members,
		toasts:  bus.Channel(16),
		updates: updates,
		cards:   store.Cards(),
	}
}

func waitForCards(ch <-chan []card.Card) tea.Cmd {
	return func() tea.Msg {
		return cardsMsg(<-ch)
	}
}

func waitForToast(ch <-chan events.Notification) tea.Cmd {
	return func() tea.Msg {
		return toastMsg(<-ch)
	}
}

func (m BoardModel) Init() tea.Cmd {
	return tea.Batch(waitForCards(m.updates), waitForToast(m.toasts))
}

func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case cardsMsg:
		m.cards = msg
		m.clampCursor()
		return m, waitForCards(m.updates)

	case toastMsg:
		n := events.Notification(msg)
		m.toast = &n
		return m, waitForToast(m.toasts)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m BoardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	columns := card.AllColumns()
	ctx := context.Background()

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "left", "h":
		if m.lane > 0 {
			m.lane--
			m.clampCursor()
		}
	case "right", "l":
		if m.lane < len(columns)-1 {
			m.lane++
			m.clampCursor()
		}
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		if m.row < len(m.laneCards(columns[m.lane]))-1 {
			m.row++
		}

	case "H":
		if c, ok := m.selected(columns); ok && m.lane > 0 {
			_ = m.store.MoveCard(ctx, c.ID, columns[m.lane-1])
		}
	case "L":
		if c, ok := m.selected(columns); ok && m.lane < len(columns)-1 {
			_ = m.store.MoveCard(ctx, c.ID, columns[m.lane+1])
		}

	case "d":
		if c, ok := m.selected(columns); ok {
			_ = m.store.DeleteCard(ctx, c.ID)
		}

	case "a":
		if c, ok := m.selected(columns); ok && len(m.members) > 0 {
			_ = m.store.AssignCard(ctx, c.ID, m.nextAssignee(c))
		}

	case "+", "=":
		if c, ok := m.selected(columns); ok {
			_ = m.store.SetProgress(ctx, c.ID, c.Progress+10)
		}
	case "-":
		if c, ok := m.selected(columns); ok {
			_ = m.store.SetProgress(ctx, c.ID, c.Progress-10)
		}

	case "c":
		if c, ok := m.selected(columns); ok {
			_ = m.store.ToggleComplete(ctx, c.ID)
		}

	case "r":
		_ = m.store.Refresh(ctx)
	}
	return m, nil
}

// nextAssignee cycles through the roster starting after the card's
// current assignee.
func (m BoardModel) nextAssignee(c card.Card) team.Member {
	if c.AssignedTo == nil {
		return m.members[0]
	}
	for i := range m.members {
		if m.members[i].ID == *c.AssignedTo {
			return m.members[(i+1)%len(m.members)]
		}
	}
	return m.members[0]
}

func (m BoardModel) laneCards(col card.Column) []card.Card {
	var out []card.Card
	for _, c := range m.cards {
		if c.Column == col {
			out = append(out, c)
		}
	}
	return out
}

func (m BoardModel) selected(columns []card.Column) (card.Card, bool) {
	lane := m.laneCards(columns[m.lane])
	if m.row >= len(lane) {
		return card.Card{}, false
	}
	return lane[m.row], true
}

func (m *BoardModel) clampCursor() {
	lane := m.laneCards(card.AllColumns()[m.lane])
	if m.row >= len(lane) {
		m.row = len(lane) - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

func (m BoardModel) View() string {
	columns := card.AllColumns()
	lanes := make([]string, 0, len(columns))

	for i, col := range columns {
		var b strings.Builder
		b.WriteString(laneTitleStyle.Render(col.DisplayName()))
		b.WriteString("\n")
		for j, c := range m.laneCards(col) {
			line := fmt.Sprintf("%s %d%%", c.DisplayTitle(), c.Progress)
			if i == m.lane && j == m.row {
				line = selectedCardStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		lanes = append(lanes, laneStyle.Render(b.String()))
	}

	view := lipgloss.JoinHorizontal(lipgloss.Top, lanes...)

	if m.toast != nil {
		view += "\n" + renderToast(*m.toast)
	}
	view += "\n" + helpFooter.Render("[H/L] Move  [d] Delete  [a] Assign  [+/-] Progress  [c] Complete  [r] Refresh  [q] Quit")
	return view
}

func renderToast(n events.Notification) string {
	switch n.Level {
	case events.LevelSuccess:
		return toastSuccess.Render(n.Text)
	case events.LevelError:
		return toastError.Render(n.Text)
	default:
		return toastInfo.Render(n.Text)
	}
}

package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/kanbanize/internal/application"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/events"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/team"
)

var tableBaseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

// dashboard prompt modes
const (
	promptNone = iota
	promptJoin
	promptCreate
)

// teamsMsg carries a fresh team list into the model.
type teamsMsg struct {
	teams    []team.Team
	selected int
}

// DashboardModel lists the user's teams and handles join and create.
type DashboardModel struct {
	service *application.TeamService
	toasts  <-chan events.Notification
	updates <-chan teamsMsg

	table  table.Model
	input  textinput.Model
	prompt int
	teams  []team.Team
	toast  *events.Notification
}

// NewDashboardModel builds the team dashboard over the shared service.
func NewDashboardModel(service *application.TeamService, bus *events.Bus) DashboardModel {
	updates := make(chan teamsMsg, 8)
	service.Subscribe(func(teams []team.Team, selected int) {
		select {
		case updates <- teamsMsg{teams: teams, selected: selected}:
		default:
		}
	})

	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Name", Width: 24},
		{Title: "Code", Width: 8},
		{Title: "Members", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229"))
	t.SetStyles(s)

	input := textinput.New()
	input.CharLimit = 50
	input.Width = 30

	m := DashboardModel{
		service: service,
		toasts:  bus.Channel(16),
		updates: updates,
		table:   t,
		input:   input,
	}
	m.setTeams(service.Teams())
	return m
}

func waitForTeams(ch <-chan teamsMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(waitForTeams(m.updates), waitForToast(m.toasts))
}

func (m *DashboardModel) setTeams(teams []team.Team) {
	m.teams = teams
	rows := make([]table.Row, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, table.Row{
			strconv.Itoa(t.ID), t.Name, t.Code, strconv.Itoa(len(t.Members)),
		})
	}
	m.table.SetRows(rows)
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case teamsMsg:
		m.setTeams(msg.teams)
		return m, waitForTeams(m.updates)

	case toastMsg:
		n := events.Notification(msg)
		m.toast = &n
		return m, waitForToast(m.toasts)

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.handlePromptKey(msg)
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "enter":
		if i := m.table.Cursor(); i >= 0 && i < len(m.teams) {
			m.service.Select(m.teams[i].ID)
		}

	case "j":
		m.prompt = promptJoin
		m.input.Placeholder = "team code"
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case "n":
		m.prompt = promptCreate
		m.input.Placeholder = "team name"
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case "x":
		if i := m.table.Cursor(); i >= 0 && i < len(m.teams) {
			_ = m.service.Delete(ctx, m.teams[i].ID)
		}

	case "r":
		_ = m.service.Refresh(ctx)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m DashboardModel) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()

	switch msg.String() {
	case "esc":
		m.prompt = promptNone
		m.input.Blur()
		return m, nil

	case "enter":
		value := m.input.Value()
		switch m.prompt {
		case promptJoin:
			_, _ = m.service.Join(ctx, value)
		case promptCreate:
			_, _ = m.service.Create(ctx, value)
		}
		m.prompt = promptNone
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m DashboardModel) View() string {
	view := tableBaseStyle.Render(m.table.View())

	if selected := m.service.Selected(); selected != nil {
		view += "\n" + fmt.Sprintf("Selected: %s", selected.Name)
	}
	if m.prompt != promptNone {
		label := "Join code"
		if m.prompt == promptCreate {
			label = "Team name"
		}
		view += "\n" + fmt.Sprintf("%s: %s", label, m.input.View())
	}
	if m.toast != nil {
		view += "\n" + renderToast(*m.toast)
	}
	view += "\n" + helpFooter.Render("[enter] Select  [n] New  [j] Join  [x] Delete  [r] Refresh  [q] Quit")
	return view
}

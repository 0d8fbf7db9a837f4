package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/kanbanize/internal/application"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/events"
)

var timerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	Padding(0, 2)

var idleStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")).
	Padding(0, 2)

// tickMsg advances the timer display once a second.
type tickMsg time.Time

// WorkdayModel is the timer panel.
type WorkdayModel struct {
	service *application.WorkdayService
	toasts  <-chan events.Notification
	toast   *events.Notification
}

// NewWorkdayModel builds the timer over the shared service.
func NewWorkdayModel(service *application.WorkdayService, bus *events.Bus) WorkdayModel {
	return WorkdayModel{
		service: service,
		toasts:  bus.Channel(16),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m WorkdayModel) Init() tea.Cmd {
	return tea.Batch(tick(), waitForToast(m.toasts))
}

func (m WorkdayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tick()

	case toastMsg:
		n := events.Notification(msg)
		m.toast = &n
		return m, waitForToast(m.toasts)

	case tea.KeyMsg:
		ctx := context.Background()
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			_ = m.service.Start(ctx)
		case "e":
			_ = m.service.End(ctx)
		}
	}
	return m, nil
}

func (m WorkdayModel) View() string {
	var view string
	if m.service.Started() {
		view = timerStyle.Render("WorkDay " + m.service.ElapsedDisplay())
	} else {
		view = idleStyle.Render("WorkDay not started")
	}

	if m.toast != nil {
		view += "\n" + renderToast(*m.toast)
	}
	view += "\n" + helpFooter.Render("[s] Start  [e] End  [q] Quit")
	return view
}

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/printmon/internal/locator"
)

type tickMsg time.Time

type updateMsg Update

// model is the root bubbletea model for the watch view.
type model struct {
	fetch    FetchFunc
	interval time.Duration

	last     Update
	received bool
	fetching bool
	updated  time.Time

	bar progress.Model

	width  int
	height int
}

func newModel(fetch FetchFunc, interval time.Duration) model {
	if interval <= 0 {
		interval = time.Second
	}
	return model{
		fetch:    fetch,
		interval: interval,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (m model) fetchCmd() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		return updateMsg(fetch())
	}
}

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return m.fetchCmd()
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "r":
			if !m.fetching {
				m.fetching = true
				return m, m.fetchCmd()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 4
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		return m, nil

	case updateMsg:
		m.last = Update(msg)
		m.received = true
		m.fetching = false
		m.updated = time.Now()
		return m, m.tickCmd()

	case tickMsg:
		if m.fetching {
			return m, nil
		}
		m.fetching = true
		return m, m.fetchCmd()
	}
	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	bodyStyle  = lipgloss.NewStyle().Padding(1, 2)
)

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var body string
	switch {
	case !m.received:
		body = dimStyle.Render("Looking for Bambu Studio...")
	case m.last.Err != nil || m.last.Snapshot == nil:
		body = m.viewUnavailable()
	default:
		body = m.viewSnapshot()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		renderStatusBar(m.last.Source, m.updated, m.width),
		bodyStyle.Render(body),
		renderHelpBar(m.width),
	)
}

func (m model) viewUnavailable() string {
	lines := []string{warnStyle.Render("Bambu Studio not found")}
	if m.last.Err != nil {
		if stage := locator.StageOf(m.last.Err); stage != "" {
			lines = append(lines, dimStyle.Render("failed at: "+string(stage)))
		}
		lines = append(lines, dimStyle.Render(m.last.Err.Error()))
	}
	lines = append(lines, "", dimStyle.Render("Open the device page in Bambu Studio to see print status."))
	return strings.Join(lines, "\n")
}

func (m model) viewSnapshot() string {
	s := m.last.Snapshot

	task := s.Task
	if task == "" {
		task = "(untitled)"
	}
	rows := []string{
		titleStyle.Render(task),
		"",
		m.bar.ViewAs(float64(s.Percent) / 100),
		fmt.Sprintf("%d%%  layer %s", s.Percent, s.Layer),
		"",
	}

	field := func(label, value string) {
		if value == "" {
			return
		}
		rows = append(rows, labelStyle.Render(label)+valueStyle.Render(value))
	}
	remaining := s.RemainingTime
	if s.ETA != "" {
		remaining += "  (done " + s.ETA + ")"
	}
	field("remaining", remaining)
	field("total", s.TotalTime)
	field("filament", s.Mass)
	field("nozzle", s.Hotend)
	field("bed", s.Hotbed)
	if s.Box != nil {
		field("chamber", *s.Box)
	}
	return strings.Join(rows, "\n")
}

// renderStatusBar renders the top bar with the data source.
func renderStatusBar(source string, updated time.Time, width int) string {
	var status string
	switch source {
	case "daemon":
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		status = dot + " daemon"
	case "direct":
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("●")
		status = dot + " direct (daemon not running)"
	default:
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		status = dot + " connecting"
	}
	if !updated.IsZero() {
		status += "  updated " + updated.Format("15:04:05")
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(status)
}

// renderHelpBar renders the bottom help/keybinding bar.
func renderHelpBar(width int) string {
	help := "r: refresh  q/esc/ctrl-c: quit"
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}

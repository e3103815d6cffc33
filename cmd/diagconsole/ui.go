package main

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tileworld/internal/game"
)

// jsonReader is the part of a websocket connection the console reads from.
type jsonReader interface {
	ReadJSON(v any) error
}

type diagMsg game.Diagnostics

type disconnectedMsg struct{ err error }

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Bold(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// Console is the BubbleTea model listing the latest diagnostics of every
// live session.
type Console struct {
	endpoint string
	conn     jsonReader
	sessions map[string]game.Diagnostics
	width    int
	err      error
}

// NewConsole returns a console reading diagnostics from conn.
func NewConsole(endpoint string, conn jsonReader) Console {
	return Console{
		endpoint: endpoint,
		conn:     conn,
		sessions: make(map[string]game.Diagnostics),
	}
}

func (m Console) Init() tea.Cmd {
	return m.next()
}

func (m Console) next() tea.Cmd {
	conn := m.conn
	return func() tea.Msg {
		var d game.Diagnostics
		if err := conn.ReadJSON(&d); err != nil {
			return disconnectedMsg{err: err}
		}
		return diagMsg(d)
	}
}

func (m Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "c":
			m.sessions = make(map[string]game.Diagnostics)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case diagMsg:
		d := game.Diagnostics(msg)
		if d.State == game.StateStopped.String() {
			delete(m.sessions, d.Session)
		} else {
			m.sessions[d.Session] = d
		}
		return m, m.next()
	case disconnectedMsg:
		m.err = msg.err
	}
	return m, nil
}

func (m Console) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("tileworld diagnostics"))
	sb.WriteString(" ")
	sb.WriteString(promptStyle.Render(m.endpoint))
	sb.WriteString("\n\n")

	if len(m.sessions) == 0 {
		sb.WriteString(promptStyle.Render("  no live sessions"))
		sb.WriteString("\n")
	} else {
		sb.WriteString(panelStyle.Render(m.table()))
		sb.WriteString("\n")
	}

	if m.err != nil {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("disconnected: %v", m.err)))
		sb.WriteString("\n")
	}
	sb.WriteString(promptStyle.Render("q quit · c clear"))
	return sb.String()
}

func (m Console) table() string {
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := []string{headerStyle.Render(fmt.Sprintf("%-8s %-12s %-8s %6s %5s %6s %6s %7s %4s",
		"SESSION", "SCENE", "STATE", "FPS", "CLOCK", "ITEMS", "CELLS", "BLOCKED", "SEL"))}
	for _, id := range ids {
		d := m.sessions[id]
		state := runningStyle
		if d.State != game.StateRunning.String() {
			state = pausedStyle
		}
		clock := d.Clock
		if d.Night {
			clock += "*"
		}
		rows = append(rows, fmt.Sprintf("%-8s %-12s %s %6.1f %5s %6d %6d %7d %4d",
			short(id), short12(d.Scene), state.Render(fmt.Sprintf("%-8s", d.State)),
			d.FPS, clock, d.Items, d.Counts.ItemCells, d.Blocked, d.Selected))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func short12(s string) string {
	if len(s) > 12 {
		return s[:11] + "…"
	}
	return s
}

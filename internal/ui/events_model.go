package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/trace"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const defaultMaxRecords = 5000

// RecordMsg carries one event into the events view.
type RecordMsg struct {
	Record trace.Record
}

// SourceClosedMsg reports that the live record source has ended.
type SourceClosedMsg struct{}

// EventsModel is a full-screen, scrollable view of wire events. It shows a
// fixed list of records, or follows a live source when one is given.
type EventsModel struct {
	title  string
	source <-chan trace.Record
	closed bool

	viewport viewport.Model
	spinner  spinner.Model
	ready    bool

	windowWidth  int
	windowHeight int

	records    []trace.Record
	maxRecords int

	// clients in the order they first appeared; filter indexes into it,
	// -1 shows every client.
	clients []resource.ClientID
	filter  int

	statusStyle lipgloss.Style
	headerStyle lipgloss.Style
}

// NewEventsModel creates the view. source may be nil for a static list.
func NewEventsModel(title string, records []trace.Record, source <-chan trace.Record) *EventsModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := &EventsModel{
		title:      title,
		source:     source,
		closed:     source == nil,
		spinner:    s,
		maxRecords: defaultMaxRecords,
		filter:     -1,

		statusStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1),
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1),
	}
	for _, rec := range records {
		m.addRecord(rec)
	}
	return m
}

// Init starts the spinner and the live source.
func (m *EventsModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tea.EnterAltScreen,
		m.waitForRecord(),
	)
}

func (m *EventsModel) waitForRecord() tea.Cmd {
	if m.source == nil || m.closed {
		return nil
	}
	source := m.source
	return func() tea.Msg {
		rec, ok := <-source
		if !ok {
			return SourceClosedMsg{}
		}
		return RecordMsg{Record: rec}
	}
}

// Update handles messages
func (m *EventsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height

		// Header is two lines, status bar one
		height := max(msg.Height-3, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.YPosition = 2
			m.ready = true
			m.refresh()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.viewport.GotoTop()
		case "G":
			m.viewport.GotoBottom()
		case "tab":
			m.cycleFilter()
			m.refresh()
		}

	case spinner.TickMsg:
		if m.closed {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case RecordMsg:
		m.addRecord(msg.Record)
		m.refresh()
		cmds = append(cmds, m.waitForRecord())

	case SourceClosedMsg:
		m.closed = true
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the UI
func (m *EventsModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// Filter describes the clients currently shown.
func (m *EventsModel) Filter() string {
	if m.filter < 0 {
		return "all clients"
	}
	return fmt.Sprintf("client %d", m.clients[m.filter])
}

// Visible returns the records passing the current filter.
func (m *EventsModel) Visible() []trace.Record {
	if m.filter < 0 {
		return m.records
	}
	client := m.clients[m.filter]
	var out []trace.Record
	for _, rec := range m.records {
		if rec.Object.Client == client {
			out = append(out, rec)
		}
	}
	return out
}

func (m *EventsModel) addRecord(rec trace.Record) {
	m.records = append(m.records, rec)
	if len(m.records) > m.maxRecords {
		m.records = m.records[len(m.records)-m.maxRecords:]
	}
	if !slices.Contains(m.clients, rec.Object.Client) {
		m.clients = append(m.clients, rec.Object.Client)
	}
}

func (m *EventsModel) cycleFilter() {
	m.filter++
	if m.filter >= len(m.clients) {
		m.filter = -1
	}
}

func (m *EventsModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderRecords())
	m.viewport.GotoBottom()
}

func (m *EventsModel) renderHeader() string {
	title := m.headerStyle.Width(m.windowWidth).Render(IconEvent + " " + m.title)

	state := SubtleStyle.Render(IconSuccess + " complete")
	if !m.closed {
		state = m.spinner.View() + " live"
	}
	clients := fmt.Sprintf("%d client%s", len(m.clients), pluralize(len(m.clients)))
	status := strings.Join([]string{state, clients, "showing " + m.Filter()}, " │ ")

	return title + "\n" + m.statusStyle.Width(m.windowWidth).Render(status)
}

func (m *EventsModel) renderStatusBar() string {
	visible := len(m.Visible())
	scroll := fmt.Sprintf("%d/%d", min(m.viewport.YOffset+m.viewport.Height, visible), visible)
	controls := "[q] quit │ [g/G] top/bottom │ [tab] client │ [↑/↓] scroll"

	return lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("240")).
		Width(m.windowWidth).
		Padding(0, 1).
		Render(scroll + " │ " + controls)
}

func (m *EventsModel) renderRecords() string {
	visible := m.Visible()
	if len(visible) == 0 {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Render("  Waiting for events...")
	}
	return FormatRecords(visible)
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

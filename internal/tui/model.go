// Package tui is a reference terminal-UI collaborator for the service
// actor, built on the same Bubble Tea / Bubbles / Lipgloss stack the
// teacher uses for its own interactive shell. It is not required reading
// for the command/event contract the service defines; it is one possible
// shell that honors it.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dezap/internal/config"
	"dezap/internal/service"
	"dezap/internal/uicontract"
)

// Model is a Bubble Tea model driving a single Service over its
// command/event channels. It owns no service state directly: every fact
// it renders arrived as a ServiceEvent.
type Model struct {
	svc *service.Service
	cfg config.UIConfig

	viewport  viewport.Model
	input     textinput.Model
	lines     []string
	connected bool
	peer      string
	status    string
	ready     bool

	styles styles
}

type styles struct {
	header   lipgloss.Style
	status   lipgloss.Style
	own      lipgloss.Style
	peer     lipgloss.Style
	errStyle lipgloss.Style
}

func newStyles(accent string) styles {
	c := lipgloss.Color(accent)
	return styles{
		header:   lipgloss.NewStyle().Bold(true).Foreground(c),
		status:   lipgloss.NewStyle().Faint(true),
		own:      lipgloss.NewStyle().Foreground(c),
		peer:     lipgloss.NewStyle().Bold(true),
		errStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// New builds a Model around svc. svc.Run must already be scheduled
// elsewhere; the model only ever reads svc.Events() and writes
// svc.Commands().
func New(svc *service.Service, cfg config.UIConfig) Model {
	ti := textinput.New()
	ti.Placeholder = "message, or /connect <addr>, /listen, /quit"
	ti.Focus()
	ti.CharLimit = 4096

	accent := cfg.Accent
	if accent == "" {
		accent = "63"
	}

	return Model{
		svc:    svc,
		cfg:    cfg,
		input:  ti,
		status: "disconnected",
		styles: newStyles(accent),
	}
}

// eventMsg wraps one ServiceEvent so it can flow through tea.Msg.
type eventMsg uicontract.ServiceEvent

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.svc)
}

// waitForEvent blocks on the service's event channel and resurfaces the
// next event as a tea.Cmd result, the standard Bubble Tea pattern for
// bridging an external channel into the Update loop.
func waitForEvent(svc *service.Service) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-svc.Events())
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 2
		footerHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.input.Width = msg.Width - 2
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		}

	case eventMsg:
		m.applyEvent(uicontract.ServiceEvent(msg))
		return m, waitForEvent(m.svc)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if text == "" {
		return m, nil
	}

	switch {
	case strings.HasPrefix(text, "/connect "):
		addr := strings.TrimSpace(strings.TrimPrefix(text, "/connect "))
		m.svc.Commands() <- uicontract.ConnectCommand{Addr: addr}
	case text == "/listen":
		m.svc.Commands() <- uicontract.ListenCommand{Addr: "0.0.0.0:0"}
	case text == "/disconnect":
		m.svc.Commands() <- uicontract.DisconnectCommand{}
	case text == "/discover":
		m.svc.Commands() <- uicontract.DiscoverCommand{}
	case text == "/quit":
		return m, tea.Quit
	default:
		m.svc.Commands() <- uicontract.SendTextCommand{Text: text}
	}
	return m, nil
}

func (m *Model) applyEvent(ev uicontract.ServiceEvent) {
	switch e := ev.(type) {
	case uicontract.ListeningEvent:
		m.status = fmt.Sprintf("listening on %s", e.Addr)
	case uicontract.ListenerStoppedEvent:
		m.status = "listener stopped"
	case uicontract.ConnectingEvent:
		m.status = fmt.Sprintf("connecting to %s", e.Peer)
	case uicontract.ConnectedEvent:
		m.connected = true
		m.peer = e.Peer
		m.status = fmt.Sprintf("connected to %s", e.Peer)
	case uicontract.DisconnectedEvent:
		m.connected = false
		m.status = "disconnected"
	case uicontract.MessageSentEvent:
		m.appendLine(m.styles.own.Render(fmt.Sprintf("you -> %s: %s", m.peer, e.Text)), e.Timestamp)
	case uicontract.MessageReceivedEvent:
		m.appendLine(m.styles.peer.Render(fmt.Sprintf("%s -> you: %s", e.Author, e.Text)), e.Timestamp)
	case uicontract.PeerProfileEvent:
		m.status = fmt.Sprintf("peer %s is now known as %s", e.Addr, e.Name)
	case uicontract.PeerFoundEvent:
		m.appendLine(m.styles.status.Render(fmt.Sprintf("found peer at %s", e.Addr)), time.Time{})
	case uicontract.CompletedEvent:
		m.status = "discovery complete"
	case uicontract.FileOfferEvent:
		m.appendLine(m.styles.status.Render(fmt.Sprintf("file offer from %s: %s (%d bytes)", e.Peer, e.Name, e.OriginalSize)), time.Time{})
	case uicontract.FileTransferEvent:
		m.appendLine(m.styles.status.Render(fmt.Sprintf("file %s: %d/%d bytes (completed=%v)", e.Name, e.Transferred, e.Total, e.Completed)), time.Time{})
	case uicontract.ErrorEvent:
		m.appendLine(m.styles.errStyle.Render("error: "+e.Message), time.Time{})
	}

	if m.ready {
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
	}
}

func (m *Model) appendLine(rendered string, ts time.Time) {
	if m.cfg.ShowTimestamps && !ts.IsZero() {
		rendered = ts.Format("15:04:05") + " " + rendered
	}
	m.lines = append(m.lines, rendered)
}

func (m Model) View() string {
	if !m.ready {
		return "initializing…"
	}
	header := m.styles.header.Render("dezap") + "  " + m.styles.status.Render(m.status)
	return fmt.Sprintf("%s\n%s\n%s", header, m.viewport.View(), m.input.View())
}

package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"dezap/internal/config"
	"dezap/internal/service"
	"dezap/internal/uicontract"
)

func testModel(t *testing.T) Model {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Identity.Username = "alice"
	cfg.Paths.DownloadDir = dir + "/downloads"
	cfg.Paths.HistoryDir = dir + "/history"
	cfg.Paths.PeersFile = dir + "/peers.json"
	cfg.Discovery.Enabled = false

	svc, err := service.New(cfg, stubLogger{})
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}
	m := New(svc, cfg.UI)
	m.ready = true
	return m
}

type stubLogger struct{}

func (stubLogger) Printf(string, ...any) {}

func TestModel_SubmitSendsTextCommand(t *testing.T) {
	m := testModel(t)
	m.connected = true
	m.peer = "bob"
	m.input.SetValue("hello there")

	updated, _ := m.submit()
	mm := updated.(Model)
	if mm.input.Value() != "" {
		t.Fatalf("expected input cleared, got %q", mm.input.Value())
	}

	select {
	case cmd := <-mm.svc.Commands():
		sendText, ok := cmd.(uicontract.SendTextCommand)
		if !ok {
			t.Fatalf("expected SendTextCommand, got %#v", cmd)
		}
		if sendText.Text != "hello there" {
			t.Fatalf("expected text %q, got %q", "hello there", sendText.Text)
		}
	default:
		t.Fatal("expected a command to be queued")
	}
}

func TestModel_SubmitSlashConnect(t *testing.T) {
	m := testModel(t)
	m.input.SetValue("/connect 127.0.0.1:5000")

	updated, _ := m.submit()
	mm := updated.(Model)

	cmd := <-mm.svc.Commands()
	connect, ok := cmd.(uicontract.ConnectCommand)
	if !ok {
		t.Fatalf("expected ConnectCommand, got %#v", cmd)
	}
	if connect.Addr != "127.0.0.1:5000" {
		t.Fatalf("expected addr 127.0.0.1:5000, got %q", connect.Addr)
	}
}

func TestModel_ApplyEventRendersMessage(t *testing.T) {
	m := testModel(t)
	m.applyEvent(uicontract.MessageReceivedEvent{Author: "bob", Text: "hi"})

	if len(m.lines) != 1 {
		t.Fatalf("expected one rendered line, got %d", len(m.lines))
	}
	if !strings.Contains(m.lines[0], "bob -> you: hi") {
		t.Fatalf("expected line to mention the message, got %q", m.lines[0])
	}
}

func TestModel_KeyMsgQuitsOnCtrlC(t *testing.T) {
	m := testModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
}

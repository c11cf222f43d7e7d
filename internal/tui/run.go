package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"dezap/internal/config"
	"dezap/internal/service"
)

// Run drives svc through a full-screen Bubble Tea program until the user
// quits. svc.Run must already be scheduled on its own goroutine.
func Run(svc *service.Service, cfg config.UIConfig) error {
	program := tea.NewProgram(New(svc, cfg), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

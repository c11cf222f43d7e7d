package service

import (
	"context"
	"fmt"

	"github.com/quic-go/quic-go"

	"dezap/internal/config"
	"dezap/internal/history"
	"dezap/internal/logging"
	"dezap/internal/peers"
	"dezap/internal/uicontract"
)

const (
	commandQueueCap = 64
	signalQueueCap  = 32
	eventQueueCap   = 256
)

// internalSignal is the closed set of network-originated notifications
// that must serialize against commands inside the actor's single loop.
type internalSignal interface{ isInternalSignal() }

type inboundSignal struct {
	conn *quic.Conn
	peer string
}

type connectionClosedSignal struct {
	peer string
}

func (inboundSignal) isInternalSignal()         {}
func (connectionClosedSignal) isInternalSignal() {}

// Service is the single-writer actor: one goroutine running Run owns all
// of State except the three transfer maps, which stream handlers touch
// directly under their own guards.
type Service struct {
	state *State

	commands chan uicontract.ServiceCommand
	signals  chan internalSignal
	events   chan uicontract.ServiceEvent
}

// New builds a service actor over cfg. It opens (or creates) the history
// and saved-peers stores rooted at cfg.Paths before returning.
func New(cfg config.Config, log logging.Logger) (*Service, error) {
	historyStore, err := history.NewStore(cfg.Paths.HistoryDir)
	if err != nil {
		return nil, err
	}
	peersStore, err := peers.NewStore(cfg.Paths.PeersFile)
	if err != nil {
		return nil, err
	}

	return &Service{
		state:    newState(cfg, log, historyStore, peersStore),
		commands: make(chan uicontract.ServiceCommand, commandQueueCap),
		signals:  make(chan internalSignal, signalQueueCap),
		events:   make(chan uicontract.ServiceEvent, eventQueueCap),
	}, nil
}

// Commands returns the channel collaborators send ServiceCommands on.
func (s *Service) Commands() chan<- uicontract.ServiceCommand { return s.commands }

// Events returns the channel collaborators drain ServiceEvents from.
func (s *Service) Events() <-chan uicontract.ServiceEvent { return s.events }

// Run is the actor's single loop: it picks whichever of a command or an
// internal signal is ready first, with no priority between the two, until
// ctx is canceled.
func (s *Service) Run(ctx context.Context) {
	defer s.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.commands:
			s.dispatchCommand(ctx, cmd)
		case sig := <-s.signals:
			s.dispatchSignal(ctx, sig)
		}
	}
}

func (s *Service) shutdown() {
	if s.state.listener != nil {
		s.state.listener.cancel()
		s.state.listener.endpoint.Close()
		s.state.listener.responder.Close()
	}
	if s.state.conn != nil {
		s.state.conn.cancel()
		s.state.conn.handle.Conn.CloseWithError(0, "service stopped")
	}
	if s.state.client != nil {
		s.state.client.Close()
	}
}

func (s *Service) emit(ev uicontract.ServiceEvent) {
	s.events <- ev
}

func (s *Service) emitError(format string, args ...any) {
	s.emit(uicontract.ErrorEvent{Message: fmt.Sprintf(format, args...)})
}

func (s *Service) dispatchCommand(ctx context.Context, cmd uicontract.ServiceCommand) {
	var err error
	switch c := cmd.(type) {
	case uicontract.ListenCommand:
		err = s.handleListen(ctx, c)
	case uicontract.StopListeningCommand:
		err = s.handleStopListening()
	case uicontract.ConnectCommand:
		err = s.handleConnect(ctx, c)
	case uicontract.DisconnectCommand:
		err = s.handleDisconnect()
	case uicontract.SendTextCommand:
		err = s.handleSendText(c)
	case uicontract.SendFileCommand:
		err = s.handleSendFile(c)
	case uicontract.DiscoverCommand:
		err = s.handleDiscover(ctx)
	case uicontract.SetUsernameCommand:
		s.state.username = c.Username
	case uicontract.SetDiscoveryTargetCommand:
		s.state.discoveryOverride = c.Target
	case uicontract.AcceptFileCommand:
		err = s.handleAcceptFile(c)
	case uicontract.DeclineFileCommand:
		err = s.handleDeclineFile(c)
	}
	if err != nil {
		s.emitError("%s", err.Error())
	}
}

func (s *Service) dispatchSignal(ctx context.Context, sig internalSignal) {
	switch sg := sig.(type) {
	case inboundSignal:
		pw := s.listenerPassword()
		if err := s.attachConnection(ctx, sg.conn, sg.peer, nil, pw); err != nil {
			s.emitError("%s", err.Error())
		}
	case connectionClosedSignal:
		if s.state.conn != nil && s.state.conn.handle.Addr == sg.peer {
			s.state.conn = nil
			s.emit(uicontract.DisconnectedEvent{})
		}
	}
}

// ListenAddr returns the actual bound address of the active listener, or
// ok=false if the service is not currently listening. Useful when Listen
// was called with an ephemeral port.
func (s *Service) ListenAddr() (addr string, ok bool) {
	if s.state.listener == nil {
		return "", false
	}
	return s.state.listener.endpoint.Addr().String(), true
}

func (s *Service) listenerPassword() *string {
	if s.state.listener == nil {
		return nil
	}
	return s.state.listener.password
}

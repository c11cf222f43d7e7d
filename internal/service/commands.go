package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"dezap/internal/connio"
	"dezap/internal/cryptoctx"
	"dezap/internal/discovery"
	"dezap/internal/history"
	"dezap/internal/transfer"
	"dezap/internal/transport"
	"dezap/internal/uicontract"
	"dezap/internal/wire"
)

func (s *Service) handleListen(ctx context.Context, cmd uicontract.ListenCommand) error {
	if s.state.listener != nil {
		return fmt.Errorf("already listening on %s", s.state.listener.endpoint.Addr())
	}

	endpoint, err := transport.BindServer(cmd.Addr, s.state.cfg.TLS)
	if err != nil {
		return fmt.Errorf("bind listener: %w", err)
	}

	password := cmd.Password
	if password == nil {
		password = s.state.cfg.Listen.Password
	}

	var listenPort uint16
	if udpAddr, ok := endpoint.Addr().(*net.UDPAddr); ok {
		listenPort = uint16(udpAddr.Port)
	}

	responder, err := discovery.SpawnResponder(listenPort, s.state.cfg.Discovery, s.state.log)
	if err != nil {
		endpoint.Close()
		return fmt.Errorf("spawn discovery responder: %w", err)
	}

	acceptCtx, cancel := context.WithCancel(ctx)
	s.state.listener = &listenerState{endpoint: endpoint, responder: responder, cancel: cancel, password: password}
	go s.acceptLoop(acceptCtx, endpoint)

	s.emit(uicontract.ListeningEvent{Addr: cmd.Addr, PasswordProtected: password != nil})
	return nil
}

func (s *Service) acceptLoop(ctx context.Context, endpoint *transport.ServerEndpoint) {
	for {
		conn, err := endpoint.Accept(ctx)
		if err != nil {
			return
		}
		select {
		case s.signals <- inboundSignal{conn: conn, peer: conn.RemoteAddr().String()}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) handleStopListening() error {
	if s.state.listener == nil {
		return fmt.Errorf("not listening")
	}

	s.state.listener.cancel()
	s.state.listener.endpoint.Close()
	s.state.listener.responder.Close()
	s.state.listener = nil

	s.emit(uicontract.ListenerStoppedEvent{})
	return nil
}

func (s *Service) handleConnect(ctx context.Context, cmd uicontract.ConnectCommand) error {
	s.emit(uicontract.ConnectingEvent{Peer: cmd.Addr})
	s.disconnectCurrent()

	serverName := s.state.cfg.TLS.ServerName

	var (
		conn *quic.Conn
		err  error
	)
	if s.state.listener != nil {
		conn, err = s.state.listener.endpoint.Dial(ctx, cmd.Addr, serverName)
	} else {
		if s.state.client == nil {
			s.state.client, err = transport.BuildClientEndpoint("", s.state.cfg.TLS)
			if err != nil {
				return fmt.Errorf("build client endpoint: %w", err)
			}
		}
		conn, err = s.state.client.Connect(ctx, cmd.Addr, serverName)
	}
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cmd.Addr, err)
	}

	return s.attachConnection(ctx, conn, cmd.Addr, cmd.Password, nil)
}

func (s *Service) handleDisconnect() error {
	if s.state.conn == nil {
		return fmt.Errorf("not connected")
	}

	s.state.conn.handle.Conn.CloseWithError(0, "manual disconnect")
	s.state.conn.cancel()
	s.state.conn = nil

	s.emit(uicontract.DisconnectedEvent{})
	return nil
}

// disconnectCurrent tears down the active connection, if any, without
// emitting a Disconnected event: callers that are about to attach a
// replacement connection emit their own Connected/Connecting events
// instead.
func (s *Service) disconnectCurrent() {
	if s.state.conn == nil {
		return
	}
	s.state.conn.handle.Conn.CloseWithError(0, "replaced")
	s.state.conn.cancel()
	s.state.conn = nil
}

func (s *Service) handleSendText(cmd uicontract.SendTextCommand) error {
	conn := s.state.conn
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	if conn.handle.Crypto.SharedKey() == nil {
		return fmt.Errorf("no shared key established yet")
	}

	id, err := randomMessageID()
	if err != nil {
		return err
	}
	now := time.Now()
	text := wire.Text{ID: id, Author: s.state.username, Body: cmd.Text, Timestamp: now.UnixMilli()}

	plaintext, err := wire.Encode(wire.NewText(text))
	if err != nil {
		return fmt.Errorf("encode text: %w", err)
	}
	nonce, ciphertext, err := conn.handle.Crypto.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt text: %w", err)
	}

	stream, err := conn.handle.Conn.OpenUniStreamSync(context.Background())
	if err != nil {
		return fmt.Errorf("open stream to %s: %w", conn.handle.Addr, err)
	}
	defer stream.Close()
	if err := wire.WriteFrame(stream, wire.NewCiphertext(wire.Ciphertext{Nonce: nonce, Body: ciphertext})); err != nil {
		return fmt.Errorf("write ciphertext frame: %w", err)
	}

	s.emit(uicontract.MessageSentEvent{Text: cmd.Text, Timestamp: now})
	s.appendChatLog(fmt.Sprintf("%s (you): %s\n", s.state.username, cmd.Text))
	if err := s.state.history.Record(conn.handle.Addr, history.Entry{
		Timestamp: now, Outgoing: true, Author: s.state.username, Text: cmd.Text,
	}); err != nil {
		s.state.log.Printf("service: failed to record history: %v", err)
	}
	return nil
}

func (s *Service) handleSendFile(cmd uicontract.SendFileCommand) error {
	conn := s.state.conn
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	prepared, err := transfer.Prepare(cmd.Path, s.state.cfg.Limits.MaxFileBytes)
	if err != nil {
		return err
	}

	s.state.outgoingMu.Lock()
	s.state.outgoing[prepared.Offer.ID] = prepared
	s.state.outgoingMu.Unlock()

	stream, err := conn.handle.Conn.OpenUniStreamSync(context.Background())
	if err != nil {
		return fmt.Errorf("open file offer stream: %w", err)
	}
	defer stream.Close()

	offer := prepared.Offer
	if err := wire.WriteFrame(stream, wire.NewControl(wire.Control{Kind: wire.ControlFileOffer, FileOffer: &offer})); err != nil {
		return fmt.Errorf("write file offer: %w", err)
	}

	s.emit(uicontract.FileTransferEvent{
		ID: offer.ID, Name: offer.Name, Transferred: 0, Total: offer.CompressedSize,
		Completed: false, Direction: uicontract.DirectionOutgoing,
	})
	return nil
}

func (s *Service) handleDiscover(ctx context.Context) error {
	cfg := s.state.cfg.Discovery
	if s.state.discoveryOverride != nil {
		cfg.Broadcast = s.state.discoveryOverride
	}

	addrs, err := discovery.DiscoverPeers(ctx, cfg)
	if err != nil {
		s.emitError("discover peers: %s", err.Error())
	}
	for _, addr := range addrs {
		s.emit(uicontract.PeerFoundEvent{Addr: addr})
	}
	s.emit(uicontract.CompletedEvent{})
	return nil
}

func (s *Service) handleAcceptFile(cmd uicontract.AcceptFileCommand) error {
	conn := s.state.conn
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	s.state.offersMu.Lock()
	offer, ok := s.state.offers[cmd.ID]
	if ok {
		delete(s.state.offers, cmd.ID)
	}
	s.state.offersMu.Unlock()
	if !ok {
		return fmt.Errorf("unknown file offer %d", cmd.ID)
	}

	incoming, err := transfer.PrepareAccept(offer, cmd.Path)
	if err != nil {
		return fmt.Errorf("prepare file destination: %w", err)
	}

	s.state.incomingMu.Lock()
	s.state.incoming[cmd.ID] = incoming
	s.state.incomingMu.Unlock()

	stream, err := conn.handle.Conn.OpenUniStreamSync(context.Background())
	if err != nil {
		return fmt.Errorf("open file accept stream: %w", err)
	}
	defer stream.Close()
	if err := wire.WriteFrame(stream, wire.NewControl(wire.Control{
		Kind: wire.ControlFileAccept, FileAccept: &wire.FileAccept{ID: cmd.ID},
	})); err != nil {
		return fmt.Errorf("write file accept: %w", err)
	}

	s.emit(uicontract.FileTransferEvent{
		ID: cmd.ID, Name: offer.Name, Transferred: 0, Total: offer.CompressedSize,
		Completed: false, Direction: uicontract.DirectionIncoming,
	})
	return nil
}

func (s *Service) handleDeclineFile(cmd uicontract.DeclineFileCommand) error {
	conn := s.state.conn
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	s.state.offersMu.Lock()
	_, ok := s.state.offers[cmd.ID]
	delete(s.state.offers, cmd.ID)
	s.state.offersMu.Unlock()
	if !ok {
		return fmt.Errorf("unknown file offer %d", cmd.ID)
	}

	stream, err := conn.handle.Conn.OpenUniStreamSync(context.Background())
	if err != nil {
		return fmt.Errorf("open file reject stream: %w", err)
	}
	defer stream.Close()

	reason := "Recipient declined"
	return wire.WriteFrame(stream, wire.NewControl(wire.Control{
		Kind: wire.ControlFileReject, FileReject: &wire.FileReject{ID: cmd.ID, Reason: &reason},
	}))
}

// attachConnection replaces the active connection, records the fresh
// handle, spawns its reader, emits Connected, and only then sends this
// side's Hello — the reader must already be listening, or a fast peer's
// reply Hello could be missed.
func (s *Service) attachConnection(ctx context.Context, conn *quic.Conn, peer string, outgoingPassword, requiredPassword *string) error {
	s.disconnectCurrent()

	crypto, err := cryptoctx.New()
	if err != nil {
		return fmt.Errorf("init crypto context: %w", err)
	}

	handle := connio.NewHandle(peer, conn, crypto)
	handle.OutgoingPassword = outgoingPassword
	handle.RequiredPassword = requiredPassword

	readerCtx, cancel := context.WithCancel(ctx)
	go connio.Run(readerCtx, handle, s, s.state.log)

	s.state.conn = &activeConnection{handle: handle, cancel: cancel}
	s.emit(uicontract.ConnectedEvent{Peer: peer, Name: "???"})

	return s.sendHello(handle, outgoingPassword)
}

func (s *Service) sendHello(handle *connio.Handle, password *string) error {
	stream, err := handle.Conn.OpenUniStreamSync(context.Background())
	if err != nil {
		return fmt.Errorf("open hello stream: %w", err)
	}
	defer stream.Close()

	pub := handle.Crypto.PublicKey()
	hello := wire.Control{Kind: wire.ControlHello, Hello: &wire.Hello{
		Username:  s.state.username,
		Password:  password,
		PublicKey: pub,
	}}
	return wire.WriteFrame(stream, wire.NewControl(hello))
}

func randomMessageID() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("generate message id: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/quic-go/quic-go"

	"dezap/internal/connio"
	"dezap/internal/history"
	"dezap/internal/transfer"
	"dezap/internal/uicontract"
	"dezap/internal/wire"
)

var _ connio.Handler = (*Service)(nil)

// HandleText delivers a plaintext Text frame. In practice every peer wraps
// text in Ciphertext, but the reader dispatches a bare Text the same way.
func (s *Service) HandleText(h *connio.Handle, text wire.Text) {
	s.deliverText(h, text)
}

// HandleCiphertext decrypts ct under h's crypto context and delivers the
// Text message it wraps. A decrypt or decode failure is surfaced as an
// Error event without tearing down the connection.
func (s *Service) HandleCiphertext(h *connio.Handle, ct wire.Ciphertext) {
	plaintext, err := h.Crypto.Decrypt(ct.Nonce, ct.Body)
	if err != nil {
		s.emitError("decrypt message from %s: %s", h.Addr, err.Error())
		return
	}

	msg, err := wire.Decode(plaintext)
	if err != nil {
		s.emitError("decode message from %s: %s", h.Addr, err.Error())
		return
	}
	if msg.Tag != wire.TagText || msg.Text == nil {
		s.emitError("unexpected ciphertext payload from %s", h.Addr)
		return
	}
	s.deliverText(h, *msg.Text)
}

func (s *Service) deliverText(h *connio.Handle, text wire.Text) {
	now := time.Now()
	s.emit(uicontract.MessageReceivedEvent{Author: text.Author, Text: text.Body, Timestamp: now})
	s.appendChatLog(fmt.Sprintf("%s -> you: %s\n", text.Author, text.Body))

	if err := s.state.history.Record(h.Addr, history.Entry{
		Timestamp: now, Outgoing: false, Author: text.Author, Text: text.Body,
	}); err != nil {
		s.state.log.Printf("service: failed to record history from %s: %v", h.Addr, err)
	}
}

// HandleFileMeta runs the receive side of the transfer pipeline for an
// already-accepted offer, emitting progress events as chunks arrive.
func (s *Service) HandleFileMeta(h *connio.Handle, stream quic.ReceiveStream, meta wire.FileMeta) {
	s.state.incomingMu.Lock()
	incoming, ok := s.state.incoming[meta.ID]
	s.state.incomingMu.Unlock()
	if !ok {
		s.emitError("received file data for unknown transfer %d from %s", meta.ID, h.Addr)
		return
	}

	err := transfer.Receive(stream, meta, incoming, s.state.cfg.Limits.MaxFileBytes, func(transferred uint64) {
		s.emit(uicontract.FileTransferEvent{
			ID: meta.ID, Name: incoming.OriginalName, Transferred: transferred,
			Total: meta.CompressedSize, Completed: false, Direction: uicontract.DirectionIncoming,
		})
	})

	s.state.incomingMu.Lock()
	delete(s.state.incoming, meta.ID)
	s.state.incomingMu.Unlock()

	if err != nil {
		s.emitError("receive file %s from %s: %s", incoming.OriginalName, h.Addr, err.Error())
		return
	}

	s.emit(uicontract.FileTransferEvent{
		ID: meta.ID, Name: incoming.OriginalName, Transferred: meta.CompressedSize,
		Total: meta.CompressedSize, Completed: true, Direction: uicontract.DirectionIncoming,
	})
}

// HandleControl dispatches one control frame by kind.
func (s *Service) HandleControl(h *connio.Handle, ctrl wire.Control) {
	switch ctrl.Kind {
	case wire.ControlHello:
		s.handleHello(h, ctrl.Hello)
	case wire.ControlFileOffer:
		s.handleFileOffer(h, ctrl.FileOffer)
	case wire.ControlFileAccept:
		s.handleFileAccept(h, ctrl.FileAccept)
	case wire.ControlFileReject:
		s.handleFileReject(ctrl.FileReject)
	case wire.ControlDenied:
		if ctrl.Denied != nil {
			s.emitError("%s: %s", h.Addr, ctrl.Denied.Reason)
		}
		h.Conn.CloseWithError(0, "denied")
	case wire.ControlInfo:
		if ctrl.Info != nil {
			s.emitError("%s", ctrl.Info.Text)
		}
	}
}

func (s *Service) handleHello(h *connio.Handle, hello *wire.Hello) {
	if hello == nil {
		return
	}

	if h.RequiredPassword != nil {
		if hello.Password == nil || *hello.Password != *h.RequiredPassword {
			s.denyAndClose(h, "invalid password")
			return
		}
	}

	h.SetName(hello.Username)
	h.Crypto.AcceptRemote(hello.PublicKey)

	if err := s.state.peers.Record(h.Addr, hello.Username); err != nil {
		s.state.log.Printf("service: failed to record saved peer %s: %v", h.Addr, err)
	}
	s.emit(uicontract.PeerProfileEvent{Addr: h.Addr, Name: hello.Username})
}

func (s *Service) denyAndClose(h *connio.Handle, reason string) {
	stream, err := h.Conn.OpenUniStreamSync(context.Background())
	if err == nil {
		wire.WriteFrame(stream, wire.NewControl(wire.Control{Kind: wire.ControlDenied, Denied: &wire.Denied{Reason: reason}}))
		stream.Close()
	}
	h.Conn.CloseWithError(0, reason)
}

func (s *Service) handleFileOffer(h *connio.Handle, offer *wire.FileOffer) {
	if offer == nil {
		return
	}

	incoming := transfer.IncomingOffer{
		ID: offer.ID, Name: offer.Name, OriginalSize: offer.OriginalSize,
		CompressedSize: offer.CompressedSize, Peer: h.Addr,
	}
	s.state.offersMu.Lock()
	s.state.offers[offer.ID] = incoming
	s.state.offersMu.Unlock()

	s.emit(uicontract.FileOfferEvent{
		ID: offer.ID, Name: offer.Name, OriginalSize: offer.OriginalSize,
		CompressedSize: offer.CompressedSize, Peer: h.Addr,
	})
}

func (s *Service) handleFileAccept(h *connio.Handle, accept *wire.FileAccept) {
	if accept == nil {
		return
	}

	s.state.outgoingMu.Lock()
	prepared, ok := s.state.outgoing[accept.ID]
	if ok {
		delete(s.state.outgoing, accept.ID)
	}
	s.state.outgoingMu.Unlock()
	if !ok {
		return
	}

	go s.transmitFile(h, prepared)
}

func (s *Service) transmitFile(h *connio.Handle, prepared *transfer.Prepared) {
	stream, err := h.Conn.OpenUniStreamSync(context.Background())
	if err != nil {
		s.emitError("open file stream to %s: %s", h.Addr, err.Error())
		return
	}
	defer stream.Close()

	err = transfer.Transmit(stream, prepared, s.state.cfg.Limits.ChunkSizeBytes, func(transferred, total uint64) {
		s.emit(uicontract.FileTransferEvent{
			ID: prepared.Offer.ID, Name: prepared.Offer.Name, Transferred: transferred,
			Total: total, Completed: false, Direction: uicontract.DirectionOutgoing,
		})
	})
	if err != nil {
		s.emitError("send file %s to %s: %s", prepared.Offer.Name, h.Addr, err.Error())
		return
	}

	s.emit(uicontract.FileTransferEvent{
		ID: prepared.Offer.ID, Name: prepared.Offer.Name, Transferred: prepared.Offer.CompressedSize,
		Total: prepared.Offer.CompressedSize, Completed: true, Direction: uicontract.DirectionOutgoing,
	})
}

func (s *Service) handleFileReject(reject *wire.FileReject) {
	if reject == nil {
		return
	}

	s.state.outgoingMu.Lock()
	prepared, ok := s.state.outgoing[reject.ID]
	if ok {
		delete(s.state.outgoing, reject.ID)
	}
	s.state.outgoingMu.Unlock()
	if !ok {
		return
	}

	reason := "rejected"
	if reject.Reason != nil {
		reason = *reject.Reason
	}
	s.emitError("File '%s' was rejected: %s", prepared.Offer.Name, reason)
	os.Remove(prepared.CompressedPath)
}

// ConnectionClosed forwards the closure to the actor so only it mutates
// the active-connection pointer.
func (s *Service) ConnectionClosed(h *connio.Handle) {
	s.signals <- connectionClosedSignal{peer: h.Addr}
}

// Package cliapp implements the three headless command-line orchestrations
// around a service actor: a listener that runs until interrupted, and
// one-shot send-text / send-file runners that connect, act, and disconnect.
package cliapp

import (
	"dezap/internal/logging"
	"dezap/internal/uicontract"
)

func logEvent(log logging.Logger, ev uicontract.ServiceEvent) {
	switch e := ev.(type) {
	case uicontract.ListeningEvent:
		log.Printf("listening on %s (password protected: %v)", e.Addr, e.PasswordProtected)
	case uicontract.ListenerStoppedEvent:
		log.Printf("listener stopped")
	case uicontract.ConnectingEvent:
		log.Printf("connecting to %s", e.Peer)
	case uicontract.ConnectedEvent:
		log.Printf("connected to %s", e.Peer)
	case uicontract.DisconnectedEvent:
		log.Printf("disconnected")
	case uicontract.MessageSentEvent:
		log.Printf("sent: %s", e.Text)
	case uicontract.MessageReceivedEvent:
		log.Printf("%s: %s", e.Author, e.Text)
	case uicontract.PeerProfileEvent:
		log.Printf("peer %s is now known as %s", e.Addr, e.Name)
	case uicontract.PeerFoundEvent:
		log.Printf("found peer at %s", e.Addr)
	case uicontract.CompletedEvent:
		log.Printf("discovery complete")
	case uicontract.FileTransferEvent:
		log.Printf("file %s: %d/%d bytes transferred (completed=%v)", e.Name, e.Transferred, e.Total, e.Completed)
	case uicontract.FileOfferEvent:
		log.Printf("file offer from %s: %s (%d bytes)", e.Peer, e.Name, e.OriginalSize)
	case uicontract.ErrorEvent:
		log.Printf("error: %s", e.Message)
	}
}

package uicontract

import "time"

// ServiceEvent is the closed set of notifications the service actor emits
// toward its collaborator over the event channel.
type ServiceEvent interface {
	isServiceEvent()
}

type ListeningEvent struct {
	Addr              string
	PasswordProtected bool
}

type ListenerStoppedEvent struct{}

type ConnectingEvent struct {
	Peer string
}

type ConnectedEvent struct {
	Peer string
	Name string
}

type DisconnectedEvent struct{}

type MessageSentEvent struct {
	Text      string
	Timestamp time.Time
}

type MessageReceivedEvent struct {
	Author    string
	Text      string
	Timestamp time.Time
}

type PeerProfileEvent struct {
	Addr string
	Name string
}

type PeerFoundEvent struct {
	Addr string
}

type CompletedEvent struct{}

// TransferDirection distinguishes an outbound send from an inbound receive
// in FileTransferEvent.
type TransferDirection int

const (
	DirectionOutgoing TransferDirection = iota
	DirectionIncoming
)

type FileTransferEvent struct {
	ID          uint64
	Name        string
	Transferred uint64
	Total       uint64
	Completed   bool
	Direction   TransferDirection
}

type FileOfferEvent struct {
	ID              uint64
	Name            string
	OriginalSize    uint64
	CompressedSize  uint64
	Peer            string
}

type ErrorEvent struct {
	Message string
}

func (ListeningEvent) isServiceEvent()        {}
func (ListenerStoppedEvent) isServiceEvent()  {}
func (ConnectingEvent) isServiceEvent()       {}
func (ConnectedEvent) isServiceEvent()        {}
func (DisconnectedEvent) isServiceEvent()     {}
func (MessageSentEvent) isServiceEvent()      {}
func (MessageReceivedEvent) isServiceEvent()  {}
func (PeerProfileEvent) isServiceEvent()      {}
func (PeerFoundEvent) isServiceEvent()        {}
func (CompletedEvent) isServiceEvent()        {}
func (FileTransferEvent) isServiceEvent()     {}
func (FileOfferEvent) isServiceEvent()        {}
func (ErrorEvent) isServiceEvent()            {}

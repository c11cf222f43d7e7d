// Package service implements the single-writer service actor: the state
// machine that owns the active listener and connection, and multiplexes
// commands from a UI/CLI collaborator against asynchronous network events.
package service

import (
	"context"
	"sync"

	"dezap/internal/config"
	"dezap/internal/connio"
	"dezap/internal/discovery"
	"dezap/internal/history"
	"dezap/internal/logging"
	"dezap/internal/peers"
	"dezap/internal/transfer"
	"dezap/internal/transport"
)

// listenerState bundles everything actor-owned about an active listener.
type listenerState struct {
	endpoint  *transport.ServerEndpoint
	responder *discovery.Responder
	cancel    context.CancelFunc
	password  *string
}

// activeConnection bundles everything actor-owned about the current
// connection: the shared handle and the cancel func stopping its reader.
type activeConnection struct {
	handle *connio.Handle
	cancel context.CancelFunc
}

// State is the actor's private data. Every field is mutated only from the
// actor's Run loop, except the three transfer maps, which are guarded and
// also touched directly by stream-handler goroutines.
type State struct {
	cfg config.Config
	log logging.Logger

	username          string
	discoveryOverride *string

	listener *listenerState
	client   *transport.ClientEndpoint
	conn     *activeConnection

	history *history.Store
	peers   *peers.Store

	outgoingMu sync.Mutex
	outgoing   map[uint64]*transfer.Prepared

	offersMu sync.Mutex
	offers   map[uint64]transfer.IncomingOffer

	incomingMu sync.Mutex
	incoming   map[uint64]*transfer.IncomingTransfer
}

func newState(cfg config.Config, log logging.Logger, historyStore *history.Store, peersStore *peers.Store) *State {
	return &State{
		cfg:      cfg,
		log:      log,
		username: cfg.Identity.Username,
		history:  historyStore,
		peers:    peersStore,
		outgoing: make(map[uint64]*transfer.Prepared),
		offers:   make(map[uint64]transfer.IncomingOffer),
		incoming: make(map[uint64]*transfer.IncomingTransfer),
	}
}

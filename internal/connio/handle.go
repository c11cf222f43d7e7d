// Package connio runs the per-connection stream reader: it accepts
// unidirectional and bidirectional streams off one QUIC connection and
// dispatches each stream's leading frame to a Handler.
package connio

import (
	"sync/atomic"

	"github.com/quic-go/quic-go"

	"dezap/internal/cryptoctx"
)

// Handle is the state shared between the service actor and a connection's
// reader: the QUIC connection handle, its crypto context, and a mutable
// display name (defaults to "???" until a Hello arrives).
type Handle struct {
	Addr   string
	Conn   *quic.Conn
	Crypto *cryptoctx.Context

	// OutgoingPassword is sent in this side's Hello when it initiates.
	OutgoingPassword *string
	// RequiredPassword, if set, is checked against the peer's Hello
	// password before the connection is accepted (responder role only).
	RequiredPassword *string

	name atomic.Value // string
}

// NewHandle wraps conn for addr with a fresh crypto context and the
// default "???" display name.
func NewHandle(addr string, conn *quic.Conn, crypto *cryptoctx.Context) *Handle {
	h := &Handle{Addr: addr, Conn: conn, Crypto: crypto}
	h.name.Store("???")
	return h
}

// Name returns the peer's current display name.
func (h *Handle) Name() string {
	return h.name.Load().(string)
}

// SetName updates the peer's display name, e.g. once a Hello arrives.
func (h *Handle) SetName(name string) {
	h.name.Store(name)
}

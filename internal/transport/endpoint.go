// Package transport manages QUIC endpoints: binding a server, building a
// client-only endpoint, and dialing peers. Both roles share one transport
// configuration and ALPN so a single process can act as client and server
// at once.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"dezap/internal/config"
)

func quicConfig() *quic.Config {
	return &quic.Config{
		KeepAlivePeriod:       10 * time.Second,
		MaxIncomingStreams:    32,
		MaxIncomingUniStreams: 256,
	}
}

// ServerEndpoint binds a QUIC listener and keeps the underlying transport
// around so the same socket can also dial out, matching the service
// actor's rule of reusing an active listener's endpoint for outbound
// connections instead of lazily building a second one.
type ServerEndpoint struct {
	*quic.Listener
	transport *quic.Transport
	conn      net.PacketConn
	tlsCfg    config.TLSConfig
	cert      tls.Certificate
}

// BindServer opens a QUIC endpoint bound to addr and accepts connections.
// The server's TLS certificate is materialized once here and reused by
// Dial, so a peer this endpoint connects out to over the same socket
// verifies against the exact certificate this endpoint's server role
// presents.
func BindServer(addr string, tlsCfg config.TLSConfig) (*ServerEndpoint, error) {
	tc, cert, err := BuildServerTLSConfig(tlsCfg)
	if err != nil {
		return nil, err
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("bind QUIC listener on %s: %w", addr, err)
	}

	tr := &quic.Transport{Conn: conn}
	ln, err := tr.Listen(tc, quicConfig())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	return &ServerEndpoint{Listener: ln, transport: tr, conn: conn, tlsCfg: tlsCfg, cert: cert}, nil
}

// Close tears down both the QUIC listener and its underlying socket.
func (e *ServerEndpoint) Close() error {
	err := e.Listener.Close()
	if closeErr := e.transport.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Dial reuses this endpoint's socket to connect out to peer, so a process
// that is already listening does not need a second bound socket to
// initiate a connection. The client role trusts this endpoint's own
// server certificate, matching the peer's expectation that every dezap
// endpoint presents the same material for both its server and client
// roles.
func (e *ServerEndpoint) Dial(ctx context.Context, peer, serverName string) (*quic.Conn, error) {
	raddr, err := net.ResolveUDPAddr("udp", peer)
	if err != nil {
		return nil, fmt.Errorf("resolve peer address %s: %w", peer, err)
	}
	tc, err := BuildClientTLSConfig(e.tlsCfg, &e.cert)
	if err != nil {
		return nil, err
	}
	tc.ServerName = serverName
	conn, err := e.transport.Dial(ctx, raddr, tc, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", peer, err)
	}
	return conn, nil
}

// ClientEndpoint is a client-only QUIC transport, used to dial peers when
// no listener is active on this process.
type ClientEndpoint struct {
	transport *quic.Transport
	conn      net.PacketConn
	tlsCfg    config.TLSConfig
}

// BuildClientEndpoint opens a passive client endpoint bound to localBind
// (an ephemeral port when empty).
func BuildClientEndpoint(localBind string, tlsCfg config.TLSConfig) (*ClientEndpoint, error) {
	if localBind == "" {
		localBind = "0.0.0.0:0"
	}
	udpAddr, err := net.ResolveUDPAddr("udp", localBind)
	if err != nil {
		return nil, fmt.Errorf("resolve client bind address %s: %w", localBind, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("bind client UDP socket: %w", err)
	}
	return &ClientEndpoint{
		transport: &quic.Transport{Conn: conn},
		conn:      conn,
		tlsCfg:    tlsCfg,
	}, nil
}

// Close releases the endpoint's UDP socket.
func (e *ClientEndpoint) Close() error {
	return e.transport.Close()
}

// Connect dials peer, overriding the TLS server name used for verification.
func (e *ClientEndpoint) Connect(ctx context.Context, peer, serverName string) (*quic.Conn, error) {
	raddr, err := net.ResolveUDPAddr("udp", peer)
	if err != nil {
		return nil, fmt.Errorf("resolve peer address %s: %w", peer, err)
	}
	tc, err := BuildClientTLSConfig(e.tlsCfg, nil)
	if err != nil {
		return nil, err
	}
	tc.ServerName = serverName
	conn, err := e.transport.Dial(ctx, raddr, tc, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", peer, err)
	}
	return conn, nil
}

// Connect dials peer using a one-shot ephemeral endpoint, for callers that
// never build a listener or a long-lived client endpoint of their own. The
// service actor does not use it: it dials through ServerEndpoint.Dial or
// ClientEndpoint.Connect.
func Connect(ctx context.Context, peer, serverName string, tlsCfg config.TLSConfig) (*quic.Conn, error) {
	tc, err := BuildClientTLSConfig(tlsCfg, nil)
	if err != nil {
		return nil, err
	}
	tc.ServerName = serverName
	conn, err := quic.DialAddr(ctx, peer, tc, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", peer, err)
	}
	return conn, nil
}

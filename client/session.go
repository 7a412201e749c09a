package client

import (
	"crypto/tls"
	"fmt"

	"github.com/seclink/alpngate/engine"
	"github.com/seclink/alpngate/negotiate"
	"github.com/seclink/alpngate/protocol"
)

// Session is one negotiated connection. It is owned by the attempt that
// produced it and is not shared across goroutines.
type Session struct {
	conn    *tls.Conn
	proto   protocol.Protocol
	version negotiate.Version
	variant engine.Variant
}

// Protocol returns the application protocol agreed during the handshake.
func (s *Session) Protocol() protocol.Protocol { return s.proto }

// TLSVersion returns the TLS protocol version the handshake used.
func (s *Session) TLSVersion() negotiate.Version { return s.version }

// Engine returns the TLS engine variant selected for the attempt.
func (s *Session) Engine() engine.Variant { return s.variant }

// Outcome returns the attempt's terminal outcome in negotiation terms.
func (s *Session) Outcome() negotiate.Outcome {
	return negotiate.Outcome{Protocol: s.proto}
}

// Conn exposes the underlying TLS connection.
func (s *Session) Conn() *tls.Conn { return s.conn }

// Close closes the connection.
func (s *Session) Close() error { return s.conn.Close() }

func errNoCommonProtocol(advertisement []string) error {
	return fmt.Errorf("no common application protocol for advertisement %v", advertisement)
}

package protocol

import "fmt"

// Protocol identifies an application protocol an endpoint can speak.
//
// The string value doubles as the ALPN token exchanged during the TLS
// handshake, so the constants below must match RFC 7301 registrations.
type Protocol string

const (
	// HTTP11 is HTTP/1.1 over cleartext or TLS.
	HTTP11 Protocol = "http/1.1"
	// H2 is HTTP/2 over TLS. Cleartext h2 (h2c) is not supported.
	H2 Protocol = "h2"
)

// Valid reports whether p is a protocol this package knows about.
func (p Protocol) Valid() bool {
	switch p {
	case HTTP11, H2:
		return true
	}
	return false
}

// RequiresTLS reports whether the protocol can only run over TLS.
func (p Protocol) RequiresTLS() bool {
	return p == H2
}

// Parse maps an ALPN token back to a Protocol.
func Parse(s string) (Protocol, error) {
	p := Protocol(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown protocol %q", s)
	}
	return p, nil
}

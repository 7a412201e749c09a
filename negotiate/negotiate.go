// Package negotiate decides which application protocol a connection attempt
// ends up speaking, and classifies handshake failures.
//
// Negotiate is pure: the transport layer runs the actual TLS handshake and
// feeds the observed parameters in, so the same algorithm is unit-testable
// without sockets. ClassifyHandshakeError maps live crypto/tls failures onto
// the same outcome taxonomy.
package negotiate

import (
	"github.com/seclink/alpngate/protocol"
)

// Reason says why a handshake attempt failed to produce a protocol.
type Reason string

const (
	// ReasonVersionMismatch: the peers share no TLS protocol version.
	ReasonVersionMismatch Reason = "version_mismatch"
	// ReasonNoCommonProtocol: TLS versions intersect but the ALPN
	// advertisements do not.
	ReasonNoCommonProtocol Reason = "no_common_protocol"
	// ReasonOther covers transport and handshake errors outside the two
	// negotiation failure classes. Retrying is the caller's policy.
	ReasonOther Reason = "other"
)

// Params carries one side's contribution to the handshake.
type Params struct {
	// Advertisement is the ordered ALPN list, most preferred first.
	// Nil/empty means the side sends (or accepts) no ALPN extension.
	Advertisement []string
	// Versions is the TLS protocol versions the side accepts.
	Versions VersionSet
}

// Outcome is the terminal result of a single connection attempt. Exactly one
// of Protocol or Reason is meaningful; a fresh attempt starts a new Session.
type Outcome struct {
	Protocol protocol.Protocol
	Reason   Reason
}

// Negotiated reports whether the attempt produced a protocol.
func (o Outcome) Negotiated() bool { return o.Reason == "" }

// Negotiate runs the protocol selection for one connection attempt.
//
// Version intersection is checked first; when it is empty the attempt fails
// with ReasonVersionMismatch and no ALPN step occurs. With versions agreed,
// an empty advertisement on both sides falls back to HTTP/1.1 (no ALPN
// extension on the wire). Otherwise the first entry of the local
// advertisement, in local preference order, that the peer also advertises
// wins; a non-empty local advertisement with no overlap fails with
// ReasonNoCommonProtocol.
func Negotiate(local, peer Params) Outcome {
	if local.Versions.Intersect(peer.Versions).Empty() {
		return Outcome{Reason: ReasonVersionMismatch}
	}
	if len(local.Advertisement) == 0 && len(peer.Advertisement) == 0 {
		return Outcome{Protocol: protocol.HTTP11}
	}
	if len(local.Advertisement) == 0 {
		// Peer advertised but we did not: no ALPN extension is exchanged
		// from our side, so the connection runs the default protocol.
		return Outcome{Protocol: protocol.HTTP11}
	}
	for _, want := range local.Advertisement {
		for _, have := range peer.Advertisement {
			if want == have {
				p, err := protocol.Parse(want)
				if err != nil {
					return Outcome{Reason: ReasonOther}
				}
				return Outcome{Protocol: p}
			}
		}
	}
	return Outcome{Reason: ReasonNoCommonProtocol}
}

package protocol

// ResolveALPN derives the ALPN advertisement for a protocol set.
//
// The advertisement is ordered by negotiation priority: h2 is listed before
// http/1.1 whenever both are enabled, regardless of the order protocols were
// configured in. An HTTP/1.1-only set yields nil, meaning the handshake
// carries no application-protocol extension at all and the peer's TLS stack
// reports no negotiated protocol.
//
// The function is pure: resolving the same set twice yields equal results.
func ResolveALPN(s Set) []string {
	if !s.Contains(H2) {
		return nil
	}
	adv := []string{string(H2)}
	if s.Contains(HTTP11) {
		adv = append(adv, string(HTTP11))
	}
	return adv
}

package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var ErrEmptySet = errors.New("empty protocol set")

// Set is an immutable snapshot of the protocols enabled for an endpoint.
//
// Builders mutate their own protocol list freely before bind; a Set is taken
// exactly once at bind/connect time so the resolver never observes
// intermediate builder state.
type Set struct {
	protos []Protocol
}

// NewSet builds a deduplicated Set. It rejects empty input and unknown
// protocols so misconfiguration fails at bind time, not mid-handshake.
func NewSet(protos ...Protocol) (Set, error) {
	if len(protos) == 0 {
		return Set{}, ErrEmptySet
	}
	out := make([]Protocol, 0, len(protos))
	for _, p := range protos {
		if !p.Valid() {
			return Set{}, fmt.Errorf("unknown protocol %q", string(p))
		}
		dup := false
		for _, q := range out {
			if q == p {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return Set{protos: out}, nil
}

// ParseSet builds a Set from ALPN token strings (e.g. CLI "h2,http/1.1").
func ParseSet(tokens []string) (Set, error) {
	protos := make([]Protocol, 0, len(tokens))
	for _, tok := range tokens {
		p, err := Parse(strings.TrimSpace(tok))
		if err != nil {
			return Set{}, err
		}
		protos = append(protos, p)
	}
	return NewSet(protos...)
}

// Contains reports whether p is enabled.
func (s Set) Contains(p Protocol) bool {
	for _, q := range s.protos {
		if q == p {
			return true
		}
	}
	return false
}

// Protocols returns a copy of the enabled protocols.
func (s Set) Protocols() []Protocol {
	out := make([]Protocol, len(s.protos))
	copy(out, s.protos)
	return out
}

// RequiresALPN reports whether the handshake must carry an ALPN extension.
// Only h2 needs in-handshake selection; an HTTP/1.1-only endpoint does a
// plain TLS handshake with no application-protocol extension.
func (s Set) RequiresALPN() bool {
	return s.Contains(H2)
}

// RequiresTLS reports whether any enabled protocol mandates TLS.
func (s Set) RequiresTLS() bool {
	for _, p := range s.protos {
		if p.RequiresTLS() {
			return true
		}
	}
	return false
}

// Empty reports whether the set holds no protocols (the zero Set).
func (s Set) Empty() bool { return len(s.protos) == 0 }

func (s Set) String() string {
	parts := make([]string, len(s.protos))
	for i, p := range s.protos {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

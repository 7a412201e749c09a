// Package server binds HTTP endpoints with TLS-ALPN-aware protocol
// negotiation.
//
// A Builder accumulates configuration fluently; nothing touches the network
// until Bind. Repeated Protocol calls replace the previous protocol list, so
// the effective set is whatever was configured last before Bind — the bound
// endpoint snapshots it into an immutable protocol.Set and the resolver
// never sees intermediate builder state.
package server

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/seclink/alpngate/agerrors"
	"github.com/seclink/alpngate/engine"
	"github.com/seclink/alpngate/internal/defaults"
	"github.com/seclink/alpngate/negotiate"
	"github.com/seclink/alpngate/observability"
	"github.com/seclink/alpngate/protocol"
)

type Builder struct {
	addr             string
	protos           []protocol.Protocol
	material         engine.Material
	secure           bool
	minVersion       negotiate.Version
	maxVersion       negotiate.Version
	handler          http.Handler
	observer         observability.HandshakeObserver
	caps             *engine.Capabilities
	handshakeTimeout time.Duration
}

// New returns a builder for an HTTP/1.1 endpoint on an ephemeral loopback
// port. Every knob has a working default so tests can bind with no setup.
func New() *Builder {
	return &Builder{
		addr:             "127.0.0.1:0",
		protos:           []protocol.Protocol{protocol.HTTP11},
		observer:         observability.NoopHandshakeObserver,
		handshakeTimeout: defaults.HandshakeTimeout,
	}
}

// Addr sets the listen address.
func (b *Builder) Addr(addr string) *Builder {
	b.addr = addr
	return b
}

// Protocol replaces the endpoint's protocol list. The last call before Bind
// wins; earlier calls leave no trace in the bound endpoint.
func (b *Builder) Protocol(protos ...protocol.Protocol) *Builder {
	b.protos = append([]protocol.Protocol(nil), protos...)
	return b
}

// Secure enables TLS with the given certificate material.
func (b *Builder) Secure(m engine.Material) *Builder {
	b.material = m
	b.secure = true
	return b
}

// TLSVersions bounds the accepted TLS protocol versions; zero keeps the
// crypto/tls default for that bound.
func (b *Builder) TLSVersions(min, max negotiate.Version) *Builder {
	b.minVersion = min
	b.maxVersion = max
	return b
}

// Handler sets the HTTP handler served on negotiated connections.
func (b *Builder) Handler(h http.Handler) *Builder {
	b.handler = h
	return b
}

// Observer sets the handshake metrics observer.
func (b *Builder) Observer(o observability.HandshakeObserver) *Builder {
	if o == nil {
		o = observability.NoopHandshakeObserver
	}
	b.observer = o
	return b
}

// Capabilities overrides the platform capability probe (tests).
func (b *Builder) Capabilities(caps engine.Capabilities) *Builder {
	c := caps
	b.caps = &c
	return b
}

// HandshakeTimeout bounds each per-connection TLS handshake; 0 disables.
func (b *Builder) HandshakeTimeout(d time.Duration) *Builder {
	b.handshakeTimeout = d
	return b
}

// Bind validates the configuration, snapshots the protocol set, resolves
// the ALPN advertisement, selects the TLS engine variant, and starts
// listening. Validation and engine construction failures are fatal for the
// endpoint: no listener is created.
func (b *Builder) Bind(ctx context.Context) (*Bound, error) {
	set, err := protocol.NewSet(b.protos...)
	if err != nil {
		code := agerrors.CodeInvalidProtocol
		if err == protocol.ErrEmptySet {
			code = agerrors.CodeEmptyProtocolSet
		}
		return nil, agerrors.Wrap(agerrors.StageValidate, code, err)
	}
	if set.RequiresTLS() && !b.secure {
		return nil, agerrors.Wrap(agerrors.StageValidate, agerrors.CodeCleartextH2, errCleartextH2)
	}

	advertisement := protocol.ResolveALPN(set)
	caps := engine.DetectCapabilities()
	if b.caps != nil {
		caps = *b.caps
	}
	variant := engine.Select(set.RequiresALPN(), caps)
	b.observer.EngineSelected(string(variant))

	var tlsCfg *tls.Config
	if b.secure {
		tlsCfg, err = engine.NewServerConfig(b.material, advertisement, uint16(b.minVersion), uint16(b.maxVersion), variant)
		if err != nil {
			return nil, agerrors.Wrap(agerrors.StageBind, engineCode(err), err)
		}
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", b.addr)
	if err != nil {
		return nil, agerrors.Wrap(agerrors.StageBind, agerrors.CodeBindFailed, err)
	}

	handler := b.handler
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	bound := &Bound{
		set:              set,
		advertisement:    advertisement,
		variant:          variant,
		secure:           b.secure,
		tlsCfg:           tlsCfg,
		ln:               ln,
		observer:         b.observer,
		handshakeTimeout: b.handshakeTimeout,
		done:             make(chan struct{}),
	}
	bound.srv = &http.Server{
		Handler:   handler,
		ConnState: bound.trackConn,
	}

	if b.secure {
		bound.srv.TLSConfig = tlsCfg
		if set.Contains(protocol.H2) {
			if err := http2.ConfigureServer(bound.srv, &http2.Server{}); err != nil {
				_ = ln.Close()
				return nil, agerrors.Wrap(agerrors.StageBind, agerrors.CodeEngineUnavailable, err)
			}
			// ConfigureServer appends to NextProtos; the resolved
			// advertisement stays authoritative for what goes on the wire.
			tlsCfg.NextProtos = append([]string(nil), advertisement...)
		}
		bound.queue = newConnQueue(ln.Addr())
		go bound.acceptLoop()
		go bound.serve(bound.queue)
	} else {
		go bound.serve(ln)
	}
	return bound, nil
}

func engineCode(err error) agerrors.Code {
	switch err {
	case engine.ErrMissingCertificate:
		return agerrors.CodeMissingCertMaterial
	case engine.ErrInvalidVersions:
		return agerrors.CodeInvalidVersions
	}
	return agerrors.CodeEngineUnavailable
}

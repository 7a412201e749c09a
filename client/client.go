// Package client dials TLS endpoints with ALPN-aware protocol negotiation.
//
// Like the server builder, configuration is fluent and last-writer-wins for
// the protocol list; the effective set is snapshotted when Connect (or
// HTTPClient) runs.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/seclink/alpngate/agerrors"
	"github.com/seclink/alpngate/engine"
	"github.com/seclink/alpngate/internal/contextutil"
	"github.com/seclink/alpngate/internal/defaults"
	"github.com/seclink/alpngate/negotiate"
	"github.com/seclink/alpngate/observability"
	"github.com/seclink/alpngate/protocol"
)

type Builder struct {
	protos         []protocol.Protocol
	material       engine.Material
	minVersion     negotiate.Version
	maxVersion     negotiate.Version
	serverName     string
	observer       observability.HandshakeObserver
	caps           *engine.Capabilities
	connectTimeout time.Duration
}

// New returns a builder for an HTTP/1.1 client.
func New() *Builder {
	return &Builder{
		protos:         []protocol.Protocol{protocol.HTTP11},
		observer:       observability.NoopHandshakeObserver,
		connectTimeout: defaults.ConnectTimeout,
	}
}

// Protocol replaces the client's protocol list; the last call before
// Connect wins.
func (b *Builder) Protocol(protos ...protocol.Protocol) *Builder {
	b.protos = append([]protocol.Protocol(nil), protos...)
	return b
}

// Secure sets the trust material used to verify the server. Without it the
// system root pool applies.
func (b *Builder) Secure(m engine.Material) *Builder {
	b.material = m
	return b
}

// TLSVersions bounds the offered TLS protocol versions; zero keeps the
// crypto/tls default for that bound.
func (b *Builder) TLSVersions(min, max negotiate.Version) *Builder {
	b.minVersion = min
	b.maxVersion = max
	return b
}

// ServerName overrides the SNI/verification name derived from the target
// address.
func (b *Builder) ServerName(name string) *Builder {
	b.serverName = name
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

// ConnectTimeout bounds the TCP dial plus TLS handshake; 0 disables.
func (b *Builder) ConnectTimeout(d time.Duration) *Builder {
	b.connectTimeout = d
	return b
}

// snapshot finalizes the builder state for one connection attempt.
func (b *Builder) snapshot(addr string) (protocol.Set, []string, engine.Variant, *tls.Config, error) {
	set, err := protocol.NewSet(b.protos...)
	if err != nil {
		code := agerrors.CodeInvalidProtocol
		if err == protocol.ErrEmptySet {
			code = agerrors.CodeEmptyProtocolSet
		}
		return protocol.Set{}, nil, "", nil, agerrors.Wrap(agerrors.StageValidate, code, err)
	}
	advertisement := protocol.ResolveALPN(set)
	caps := engine.DetectCapabilities()
	if b.caps != nil {
		caps = *b.caps
	}
	variant := engine.Select(set.RequiresALPN(), caps)

	serverName := b.serverName
	if serverName == "" && addr != "" {
		if host, _, err := net.SplitHostPort(addr); err == nil {
			serverName = host
		} else {
			serverName = addr
		}
	}
	cfg, err := engine.NewClientConfig(b.material, advertisement, uint16(b.minVersion), uint16(b.maxVersion), variant, serverName)
	if err != nil {
		return protocol.Set{}, nil, "", nil, agerrors.Wrap(agerrors.StageValidate, agerrors.CodeInvalidVersions, err)
	}
	return set, advertisement, variant, cfg, nil
}

// Connect runs one TLS connection attempt against addr and returns the
// negotiated session. A failed handshake returns a classified error; this
// layer never retries — retry policy belongs to the caller.
func (b *Builder) Connect(ctx context.Context, addr string) (*Session, error) {
	set, advertisement, variant, cfg, err := b.snapshot(addr)
	if err != nil {
		return nil, err
	}
	b.observer.EngineSelected(string(variant))

	start := time.Now()
	ctx, cancel := contextutil.WithTimeout(ctx, b.connectTimeout)
	defer cancel()

	rawConn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, agerrors.Wrap(agerrors.StageConnect, agerrors.ClassifyConnectCode(err), err)
	}
	tc := tls.Client(rawConn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		_ = rawConn.Close()
		b.observer.Handshake(observability.HandshakeResultFail, failReason(err))
		return nil, agerrors.Wrap(agerrors.StageHandshake, agerrors.ClassifyHandshakeCode(err), err)
	}

	state := tc.ConnectionState()
	proto := state.NegotiatedProtocol
	if proto == "" {
		// The server either ran no ALPN or shares nothing with us. Falling
		// back to HTTP/1.1 is only sound when HTTP/1.1 is in our set.
		if !set.Contains(protocol.HTTP11) {
			_ = tc.Close()
			b.observer.Handshake(observability.HandshakeResultFail, observability.HandshakeReasonNoCommonProtocol)
			return nil, agerrors.Wrap(agerrors.StageNegotiate, agerrors.CodeNoCommonProtocol, errNoCommonProtocol(advertisement))
		}
		proto = string(protocol.HTTP11)
	}
	b.observer.Handshake(observability.HandshakeResultOK, observability.HandshakeReasonOK)
	b.observer.HandshakeLatency(time.Since(start))
	b.observer.Negotiated(proto)

	p, err := protocol.Parse(proto)
	if err != nil {
		_ = tc.Close()
		return nil, agerrors.Wrap(agerrors.StageNegotiate, agerrors.CodeInvalidProtocol, err)
	}
	return &Session{
		conn:    tc,
		proto:   p,
		version: negotiate.Version(state.Version),
		variant: variant,
	}, nil
}

func failReason(err error) observability.HandshakeReason {
	switch negotiate.ClassifyHandshakeError(err) {
	case negotiate.ReasonVersionMismatch:
		return observability.HandshakeReasonVersionMismatch
	case negotiate.ReasonNoCommonProtocol:
		return observability.HandshakeReasonNoCommonProtocol
	}
	return observability.HandshakeReasonOther
}

// HTTPClient returns an *http.Client speaking the configured protocol set.
// An h2-only set uses the HTTP/2 transport directly; a mixed set lets ALPN
// decide per connection.
func (b *Builder) HTTPClient() (*http.Client, error) {
	set, _, _, cfg, err := b.snapshot("")
	if err != nil {
		return nil, err
	}
	// snapshot derives ServerName from the dial address at connect time;
	// for the generic transport the stdlib fills it per request.
	cfg.ServerName = ""

	var rt http.RoundTripper
	if set.Contains(protocol.H2) && !set.Contains(protocol.HTTP11) {
		rt = &http2.Transport{TLSClientConfig: cfg}
	} else {
		rt = &http.Transport{
			TLSClientConfig:   cfg,
			ForceAttemptHTTP2: set.Contains(protocol.H2),
		}
	}
	return &http.Client{Transport: rt}, nil
}

// Get issues a GET over a client built from the current configuration.
func (b *Builder) Get(ctx context.Context, url string) (*http.Response, error) {
	hc, err := b.HTTPClient()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, wrapRoundTripError(err)
	}
	return resp, nil
}

// wrapRoundTripError assigns a transport failure to the lifecycle stage it
// belongs to. Dial failures never reached the TLS layer and classify as
// connect errors; everything else happened during or after the handshake.
func wrapRoundTripError(err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return agerrors.Wrap(agerrors.StageConnect, agerrors.ClassifyConnectCode(err), err)
	}
	return agerrors.Wrap(agerrors.StageHandshake, agerrors.ClassifyHandshakeCode(err), err)
}

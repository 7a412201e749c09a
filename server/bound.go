package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seclink/alpngate/engine"
	"github.com/seclink/alpngate/internal/contextutil"
	"github.com/seclink/alpngate/negotiate"
	"github.com/seclink/alpngate/observability"
	"github.com/seclink/alpngate/protocol"
)

var errCleartextH2 = errors.New("h2 requires TLS; configure Secure before Bind")

// Bound is a bound endpoint. Its protocol set, ALPN advertisement, and
// engine variant are snapshotted at bind time and safe for concurrent reads
// across all connection attempts.
type Bound struct {
	set           protocol.Set
	advertisement []string
	variant       engine.Variant
	secure        bool
	tlsCfg        *tls.Config

	ln    net.Listener
	queue *connQueue
	srv   *http.Server

	observer         observability.HandshakeObserver
	handshakeTimeout time.Duration

	conns     atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

// Protocols returns the ALPN advertisement the endpoint sends during
// handshakes. Empty for an HTTP/1.1-only endpoint (no ALPN extension).
func (b *Bound) Protocols() []string {
	return append([]string(nil), b.advertisement...)
}

// ProtocolSet returns the effective protocol set snapshotted at bind time.
func (b *Bound) ProtocolSet() protocol.Set { return b.set }

// Engine returns the TLS engine variant selected at bind time.
func (b *Bound) Engine() engine.Variant { return b.variant }

// Secure reports whether the endpoint terminates TLS.
func (b *Bound) Secure() bool { return b.secure }

// Addr returns the bound listen address.
func (b *Bound) Addr() net.Addr { return b.ln.Addr() }

// URL returns a base URL for the endpoint.
func (b *Bound) URL() string {
	scheme := "http"
	if b.secure {
		scheme = "https"
	}
	return scheme + "://" + b.ln.Addr().String()
}

// Shutdown stops accepting connections and drains in-flight requests until
// ctx expires.
func (b *Bound) Shutdown(ctx context.Context) error {
	b.closeOnce.Do(func() {
		close(b.done)
		_ = b.ln.Close()
	})
	return b.srv.Shutdown(ctx)
}

// acceptLoop takes raw TCP connections and hands each to a handshake
// goroutine, so one slow peer never stalls the accept path.
func (b *Bound) acceptLoop() {
	for {
		c, err := b.ln.Accept()
		if err != nil {
			select {
			case <-b.done:
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		go b.handshake(c)
	}
}

// handshake runs the TLS handshake for one connection attempt, classifies
// the outcome, and hands negotiated connections to the HTTP server. A failed
// attempt is terminal: the connection is closed and never retried here.
func (b *Bound) handshake(c net.Conn) {
	start := time.Now()
	tc := tls.Server(c, b.tlsCfg)
	ctx, cancel := contextutil.WithTimeout(context.Background(), b.handshakeTimeout)
	defer cancel()
	if err := tc.HandshakeContext(ctx); err != nil {
		b.observer.Handshake(observability.HandshakeResultFail, failReason(err))
		_ = c.Close()
		return
	}

	proto := tc.ConnectionState().NegotiatedProtocol
	if proto == "" {
		// The client sent no ALPN extension, so the connection would run the
		// default protocol. crypto/tls accepts that even for an h2-only
		// endpoint; enforce our advertisement here.
		if !b.set.Contains(protocol.HTTP11) {
			b.observer.Handshake(observability.HandshakeResultFail, observability.HandshakeReasonNoCommonProtocol)
			_ = tc.Close()
			return
		}
		proto = string(protocol.HTTP11)
	}
	b.observer.Handshake(observability.HandshakeResultOK, observability.HandshakeReasonOK)
	b.observer.HandshakeLatency(time.Since(start))
	b.observer.Negotiated(proto)

	select {
	case b.queue.ch <- tc:
	case <-b.done:
		_ = tc.Close()
	}
}

func (b *Bound) serve(ln net.Listener) {
	err := b.srv.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		select {
		case <-b.done:
		default:
			// Listener failed underneath us; nothing to serve anymore.
		}
	}
}

func (b *Bound) trackConn(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		b.observer.ConnCount(b.conns.Add(1))
	case http.StateClosed, http.StateHijacked:
		b.observer.ConnCount(b.conns.Add(-1))
	}
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

// connQueue is a net.Listener fed by the handshake goroutines, so the HTTP
// server only ever sees connections whose TLS handshake already completed.
type connQueue struct {
	ch   chan net.Conn
	addr net.Addr
	done chan struct{}
	once sync.Once
}

func newConnQueue(addr net.Addr) *connQueue {
	return &connQueue{
		ch:   make(chan net.Conn),
		addr: addr,
		done: make(chan struct{}),
	}
}

func (q *connQueue) Accept() (net.Conn, error) {
	select {
	case c := <-q.ch:
		return c, nil
	case <-q.done:
		return nil, net.ErrClosed
	}
}

func (q *connQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}

func (q *connQueue) Addr() net.Addr { return q.addr }

// Package ws upgrades negotiated HTTP/1.1 connections to WebSocket.
//
// WebSocket bootstrapping (RFC 6455) rides on an HTTP/1.1 Upgrade, so an
// upgrade is only legal when the TLS handshake negotiated http/1.1 (or ran
// without ALPN). Connections that negotiated h2 are refused: extended
// CONNECT (RFC 8441) is not supported here.
package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ErrUpgradeOverH2 is returned when an upgrade is attempted on a connection
// that negotiated h2 via ALPN.
var ErrUpgradeOverH2 = errors.New("websocket upgrade requires http/1.1, connection negotiated h2")

// Conn wraps a websocket connection with context-aware reads and writes.
type Conn struct {
	c *websocket.Conn
}

// UpgradeOptions exposes a small set of websocket upgrader controls.
type UpgradeOptions struct {
	ReadBufferSize  int
	WriteBufferSize int
	// AllowedOrigins is the Origin allow-list; empty refuses all
	// browser-originated requests unless AllowNoOrigin admits the rest.
	AllowedOrigins []string
	// AllowNoOrigin admits requests without an Origin header.
	AllowNoOrigin bool
}

// Upgrade upgrades an HTTP request to a websocket connection, refusing
// requests whose TLS session negotiated h2.
func Upgrade(w http.ResponseWriter, r *http.Request, opts UpgradeOptions) (*Conn, error) {
	if r.TLS != nil && r.TLS.NegotiatedProtocol == "h2" {
		http.Error(w, "websocket requires HTTP/1.1", http.StatusBadRequest)
		return nil, ErrUpgradeOverH2
	}
	up := websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     NewOriginChecker(opts.AllowedOrigins, opts.AllowNoOrigin),
	}
	c, err := up.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &Conn{c: c}, nil
}

// DialOptions provides optional controls for websocket dialing.
type DialOptions struct {
	Header http.Header
	Dialer *websocket.Dialer
}

// Dial opens a websocket connection with deadline-aware handshake.
func Dial(ctx context.Context, urlStr string, opts DialOptions) (*Conn, *http.Response, error) {
	var d websocket.Dialer
	if opts.Dialer != nil {
		d = *opts.Dialer
	}
	if deadline, ok := ctx.Deadline(); ok {
		dl := time.Until(deadline)
		if d.HandshakeTimeout == 0 || d.HandshakeTimeout > dl {
			d.HandshakeTimeout = dl
		}
	}
	c, resp, err := d.DialContext(ctx, urlStr, opts.Header)
	if err != nil {
		return nil, resp, err
	}
	return &Conn{c: c}, resp, nil
}

// ReadMessage reads one frame, honoring the context deadline.
func (c *Conn) ReadMessage(ctx context.Context) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		_ = c.c.SetReadDeadline(deadline)
	} else {
		_ = c.c.SetReadDeadline(time.Time{})
	}
	mt, b, err := c.c.ReadMessage()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() && hasDeadline && !time.Now().Before(deadline) {
			return 0, nil, context.DeadlineExceeded
		}
		return 0, nil, err
	}
	return mt, b, nil
}

// WriteMessage writes one frame, honoring the context deadline.
func (c *Conn) WriteMessage(ctx context.Context, messageType int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		_ = c.c.SetWriteDeadline(deadline)
	} else {
		_ = c.c.SetWriteDeadline(time.Time{})
	}
	err := c.c.WriteMessage(messageType, data)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() && hasDeadline && !time.Now().Before(deadline) {
			return context.DeadlineExceeded
		}
	}
	return err
}

// Close closes the websocket connection.
func (c *Conn) Close() error { return c.c.Close() }

// Underlying exposes the raw gorilla/websocket connection.
func (c *Conn) Underlying() *websocket.Conn { return c.c }

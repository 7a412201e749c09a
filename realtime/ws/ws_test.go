package ws

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestUpgradeRefusesH2(t *testing.T) {
	rec := httptest.NewRecorder()
	r := &http.Request{
		Header: http.Header{},
		TLS:    &tls.ConnectionState{NegotiatedProtocol: "h2"},
	}
	_, err := Upgrade(rec, r, UpgradeOptions{AllowNoOrigin: true})
	if !errors.Is(err, ErrUpgradeOverH2) {
		t.Fatalf("expected ErrUpgradeOverH2, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpgradeAllowsHTTP11TLS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simulate a TLS session that negotiated http/1.1 explicitly.
		r.TLS = &tls.ConnectionState{NegotiatedProtocol: "http/1.1"}
		c, err := Upgrade(w, r, UpgradeOptions{AllowNoOrigin: true})
		if err != nil {
			return
		}
		defer c.Close()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, _, err := Dial(ctx, url, DialOptions{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	c.Close()
}

func TestEcho(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r, UpgradeOptions{AllowNoOrigin: true})
		if err != nil {
			return
		}
		defer c.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		mt, b, err := c.ReadMessage(ctx)
		if err != nil {
			return
		}
		_ = c.WriteMessage(ctx, mt, b)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, _, err := Dial(ctx, url, DialOptions{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	defer c.Close()

	if err := c.WriteMessage(ctx, websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	mt, b, err := c.ReadMessage(ctx)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if mt != websocket.TextMessage || string(b) != "ping" {
		t.Fatalf("expected echoed text ping, got (%d, %q)", mt, b)
	}
}

func TestUpgradeRejectsDisallowedOrigin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = Upgrade(w, r, UpgradeOptions{AllowedOrigins: []string{"https://good.example"}})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, resp, err := Dial(ctx, url, DialOptions{Header: header})
	if err == nil {
		t.Fatalf("expected handshake rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 response, got %+v", resp)
	}
}

func TestReadMessageDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r, UpgradeOptions{AllowNoOrigin: true})
		if err != nil {
			return
		}
		defer c.Close()
		// Never writes; the client read must hit its deadline.
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dialCancel()
	c, _, err := Dial(dialCtx, url, DialOptions{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err = c.ReadMessage(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

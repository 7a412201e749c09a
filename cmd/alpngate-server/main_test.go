package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seclink/alpngate/negotiate"
	"github.com/seclink/alpngate/observability"
)

func TestValidateTLSFiles(t *testing.T) {
	cases := []struct {
		name    string
		cert    string
		key     string
		wantErr bool
	}{
		{"neither", "", "", false},
		{"both", "cert.pem", "key.pem", false},
		{"cert only", "cert.pem", "", true},
		{"key only", "", "key.pem", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateTLSFiles(tc.cert, tc.key)
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseVersionBound(t *testing.T) {
	t.Run("empty keeps default", func(t *testing.T) {
		v, err := parseVersionBound("  ")
		if err != nil || v != 0 {
			t.Fatalf("expected zero version, got %v (%v)", v, err)
		}
	})
	t.Run("short form", func(t *testing.T) {
		v, err := parseVersionBound("1.3")
		if err != nil || v != negotiate.TLS13 {
			t.Fatalf("expected TLS13, got %v (%v)", v, err)
		}
	})
	t.Run("invalid", func(t *testing.T) {
		if _, err := parseVersionBound("ssl3"); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestSwitchHandler(t *testing.T) {
	h := newSwitchHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before Set, got %d", rec.Code)
	}

	h.Set(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 after Set, got %d", rec.Code)
	}

	h.Set(nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after reset, got %d", rec.Code)
	}
}

func TestMetricsControllerToggle(t *testing.T) {
	handler := newSwitchHandler()
	observer := observability.NewAtomicHandshakeObserver()
	ctrl := newMetricsController(handler, observer)

	ctrl.Enable()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 while enabled, got %d", rec.Code)
	}

	// Observer events must not panic regardless of toggle state.
	observer.Handshake(observability.HandshakeResultOK, observability.HandshakeReasonOK)

	ctrl.Disable()
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 while disabled, got %d", rec.Code)
	}
	observer.Handshake(observability.HandshakeResultOK, observability.HandshakeReasonOK)

	// Repeat transitions are no-ops.
	ctrl.Disable()
	ctrl.Enable()
	ctrl.Enable()
}

package engine

import (
	"crypto/tls"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/seclink/alpngate/internal/certutil"
)

func testCert(t *testing.T) tls.Certificate {
	t.Helper()
	certPEM, keyPEM, err := certutil.SelfSigned([]string{"127.0.0.1"}, time.Hour)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	cert, err := certutil.Pair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	return cert
}

func TestNewServerConfig(t *testing.T) {
	cert := testCert(t)

	t.Run("missing certificate", func(t *testing.T) {
		_, err := NewServerConfig(Material{}, nil, 0, 0, VariantGeneric)
		if !errors.Is(err, ErrMissingCertificate) {
			t.Fatalf("expected ErrMissingCertificate, got %v", err)
		}
	})

	t.Run("inverted version bounds", func(t *testing.T) {
		m := Material{Certificates: []tls.Certificate{cert}}
		_, err := NewServerConfig(m, nil, tls.VersionTLS13, tls.VersionTLS12, VariantGeneric)
		if !errors.Is(err, ErrInvalidVersions) {
			t.Fatalf("expected ErrInvalidVersions, got %v", err)
		}
	})

	t.Run("advertisement copied into NextProtos", func(t *testing.T) {
		m := Material{Certificates: []tls.Certificate{cert}}
		adv := []string{"h2", "http/1.1"}
		cfg, err := NewServerConfig(m, adv, 0, 0, VariantGeneric)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if !reflect.DeepEqual(cfg.NextProtos, adv) {
			t.Fatalf("expected %v, got %v", adv, cfg.NextProtos)
		}
		adv[0] = "mutated"
		if cfg.NextProtos[0] != "h2" {
			t.Fatalf("expected config to own its advertisement copy")
		}
	})

	t.Run("no advertisement leaves NextProtos nil", func(t *testing.T) {
		m := Material{Certificates: []tls.Certificate{cert}}
		cfg, err := NewServerConfig(m, nil, 0, 0, VariantGeneric)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if cfg.NextProtos != nil {
			t.Fatalf("expected nil NextProtos, got %v", cfg.NextProtos)
		}
		if cfg.GetConfigForClient != nil {
			t.Fatalf("expected no ALPN enforcement without an advertisement")
		}
	})

	t.Run("http11 in advertisement skips ALPN enforcement", func(t *testing.T) {
		m := Material{Certificates: []tls.Certificate{cert}}
		cfg, err := NewServerConfig(m, []string{"h2", "http/1.1"}, 0, 0, VariantGeneric)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if cfg.GetConfigForClient != nil {
			t.Fatalf("expected no ALPN enforcement when http/1.1 is advertised")
		}
	})
}

func TestServerConfigALPNEnforcement(t *testing.T) {
	m := Material{Certificates: []tls.Certificate{testCert(t)}}
	cfg, err := NewServerConfig(m, []string{"h2"}, 0, 0, VariantGeneric)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.GetConfigForClient == nil {
		t.Fatalf("expected ALPN enforcement for an h2-only advertisement")
	}

	t.Run("overlap passes through", func(t *testing.T) {
		got, err := cfg.GetConfigForClient(&tls.ClientHelloInfo{SupportedProtos: []string{"http/1.1", "h2"}})
		if err != nil || got != nil {
			t.Fatalf("expected (nil, nil), got (%v, %v)", got, err)
		}
	})

	t.Run("no ALPN extension passes through", func(t *testing.T) {
		got, err := cfg.GetConfigForClient(&tls.ClientHelloInfo{})
		if err != nil || got != nil {
			t.Fatalf("expected (nil, nil), got (%v, %v)", got, err)
		}
	})

	t.Run("foreign protocols get an unmatchable list", func(t *testing.T) {
		got, err := cfg.GetConfigForClient(&tls.ClientHelloInfo{SupportedProtos: []string{"http/1.1"}})
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if got == nil {
			t.Fatalf("expected a rejecting config")
		}
		// The replacement list must be impossible for any well-formed
		// ClientHello to satisfy, so the handshake fails with the
		// no_application_protocol alert rather than the h2 fallback.
		if len(got.NextProtos) != 1 || got.NextProtos[0] != "" {
			t.Fatalf("unexpected replacement NextProtos %v", got.NextProtos)
		}
		if got.GetConfigForClient != nil {
			t.Fatalf("rejecting config must not re-run enforcement")
		}
	})
}

func TestNewClientConfig(t *testing.T) {
	t.Run("no certificate required", func(t *testing.T) {
		cfg, err := NewClientConfig(Material{InsecureSkipVerify: true}, []string{"h2"}, 0, 0, VariantGeneric, "example.com")
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if cfg.ServerName != "example.com" || !cfg.InsecureSkipVerify {
			t.Fatalf("material not applied: %+v", cfg)
		}
	})

	t.Run("inverted version bounds", func(t *testing.T) {
		_, err := NewClientConfig(Material{}, nil, tls.VersionTLS13, tls.VersionTLS12, VariantGeneric, "")
		if !errors.Is(err, ErrInvalidVersions) {
			t.Fatalf("expected ErrInvalidVersions, got %v", err)
		}
	})
}

func TestCipherSuitePreference(t *testing.T) {
	native := cipherSuites(VariantNativeAccelerated)
	generic := cipherSuites(VariantGeneric)
	if native[0] != tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256 {
		t.Fatalf("native variant should lead with AES-GCM, got 0x%04x", native[0])
	}
	if generic[0] != tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305 {
		t.Fatalf("generic variant should lead with ChaCha20, got 0x%04x", generic[0])
	}
	if len(native) != len(generic) {
		t.Fatalf("variants must offer the same suites in different order")
	}
}

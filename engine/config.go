package engine

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
)

var (
	ErrMissingCertificate = errors.New("engine: no server certificate configured")
	ErrInvalidVersions    = errors.New("engine: min version above max version")
)

// Material is the opaque certificate/trust handle an endpoint supplies.
// Ownership stays with the caller; the engine only reads it.
type Material struct {
	// Certificates are the endpoint's own cert chains (server side).
	Certificates []tls.Certificate
	// RootCAs is the trust pool for verifying the peer (client side).
	// Nil falls back to the system pool.
	RootCAs *x509.CertPool
	// InsecureSkipVerify disables peer verification (tests only).
	InsecureSkipVerify bool
}

// cipherSuites returns the TLS 1.2 suite preference for a variant.
// TLS 1.3 suites are not configurable and are unaffected.
//
// The native-accelerated engine leads with AES-GCM because the hardware
// makes it the cheapest AEAD; the generic engine leads with
// ChaCha20-Poly1305, which is the faster choice without AES instructions.
func cipherSuites(v Variant) []uint16 {
	if v == VariantNativeAccelerated {
		return []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		}
	}
	return []uint16{
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	}
}

// NewServerConfig builds the server-side tls.Config for an endpoint.
//
// advertisement is the resolved ALPN list (nil for an HTTP/1.1-only
// endpoint, which then performs a plain TLS handshake and ignores client
// ALPN). minVersion/maxVersion bound the accepted TLS versions; zero leaves
// the crypto/tls default in place. Construction failures are bind-time
// fatal: no listener is created from a config this function rejected.
func NewServerConfig(m Material, advertisement []string, minVersion, maxVersion uint16, v Variant) (*tls.Config, error) {
	if len(m.Certificates) == 0 {
		return nil, ErrMissingCertificate
	}
	if err := checkVersions(minVersion, maxVersion); err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		Certificates: m.Certificates,
		MinVersion:   minVersion,
		MaxVersion:   maxVersion,
		CipherSuites: cipherSuites(v),
	}
	if len(advertisement) > 0 {
		cfg.NextProtos = append([]string(nil), advertisement...)
		if !containsProto(advertisement, "http/1.1") {
			cfg.GetConfigForClient = enforceALPNOverlap(cfg, cfg.NextProtos)
		}
	}
	return cfg, nil
}

// enforceALPNOverlap refuses ClientHellos whose ALPN list shares nothing with
// the advertisement. crypto/tls quietly admits clients offering only
// "http/1.1" to an "h2" server with no negotiated protocol (the Go issue
// 46310 compatibility fallback for misconfigured proxies). This endpoint
// advertises exactly what it speaks, so such an attempt must fail during the
// handshake with a no_application_protocol alert, not after it.
func enforceALPNOverlap(cfg *tls.Config, advertisement []string) func(*tls.ClientHelloInfo) (*tls.Config, error) {
	return func(chi *tls.ClientHelloInfo) (*tls.Config, error) {
		if len(chi.SupportedProtos) == 0 {
			// No ALPN extension on the wire; the caller decides after the
			// handshake whether a default protocol is acceptable.
			return nil, nil
		}
		for _, want := range advertisement {
			if containsProto(chi.SupportedProtos, want) {
				return nil, nil
			}
		}
		reject := cfg.Clone()
		reject.GetConfigForClient = nil
		// RFC 7301 identifiers are 1..255 bytes, so a well-formed ClientHello
		// can never offer the empty protocol. Negotiating against it forces
		// crypto/tls down the alert path instead of the h2 fallback.
		reject.NextProtos = []string{""}
		return reject, nil
	}
}

func containsProto(protos []string, p string) bool {
	for _, q := range protos {
		if q == p {
			return true
		}
	}
	return false
}

// NewClientConfig builds the client-side tls.Config for a connect attempt.
func NewClientConfig(m Material, advertisement []string, minVersion, maxVersion uint16, v Variant, serverName string) (*tls.Config, error) {
	if err := checkVersions(minVersion, maxVersion); err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		RootCAs:            m.RootCAs,
		InsecureSkipVerify: m.InsecureSkipVerify,
		ServerName:         serverName,
		MinVersion:         minVersion,
		MaxVersion:         maxVersion,
		CipherSuites:       cipherSuites(v),
	}
	if len(advertisement) > 0 {
		cfg.NextProtos = append([]string(nil), advertisement...)
	}
	return cfg, nil
}

func checkVersions(minVersion, maxVersion uint16) error {
	if minVersion != 0 && maxVersion != 0 && minVersion > maxVersion {
		return ErrInvalidVersions
	}
	return nil
}

// Package engine selects and constructs the TLS engine used by an endpoint.
//
// Two variants exist: a native-accelerated engine used when the platform has
// hardware AES-GCM support, and a generic engine used everywhere else. The
// variant is chosen once at bind/connect time and never changes for the
// lifetime of the endpoint; it is exported so callers and tests can inspect
// which engine a bound endpoint ended up with.
package engine

import "golang.org/x/sys/cpu"

// Variant identifies the TLS engine flavor backing an endpoint.
type Variant string

const (
	VariantNativeAccelerated Variant = "native_accelerated"
	VariantGeneric           Variant = "generic"
)

// Capabilities is the result of the platform probe. It is a plain value so
// tests can inject arbitrary probe results.
type Capabilities struct {
	// HardwareAESGCM is true when the CPU has AES + carry-less multiply
	// instructions, making hardware-assisted AES-GCM the fast path.
	HardwareAESGCM bool
	// ALPN is true when the native-accelerated engine can negotiate ALPN on
	// this platform.
	ALPN bool
}

// DetectCapabilities probes the running platform once per call.
func DetectCapabilities() Capabilities {
	hw := cpu.X86.HasAES && cpu.X86.HasPCLMULQDQ ||
		cpu.ARM64.HasAES && cpu.ARM64.HasPMULL ||
		cpu.S390X.HasAES && cpu.S390X.HasAESCTR && cpu.S390X.HasGHASH
	return Capabilities{
		HardwareAESGCM: hw,
		// The accelerated path carries ALPN on every platform the probe
		// recognizes; the flag stays separate so the selector's contract
		// does not depend on that staying true.
		ALPN: hw,
	}
}

// Select picks the engine variant for an endpoint.
//
// The native-accelerated engine is chosen only when the platform probe
// succeeded and, if the endpoint needs ALPN, the native engine supports ALPN
// here. The decision is pure: identical inputs always yield the same
// variant.
func Select(requiresALPN bool, caps Capabilities) Variant {
	if !caps.HardwareAESGCM {
		return VariantGeneric
	}
	if requiresALPN && !caps.ALPN {
		return VariantGeneric
	}
	return VariantNativeAccelerated
}

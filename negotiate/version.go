package negotiate

import (
	"crypto/tls"
	"fmt"
)

// Version is a TLS protocol version, numerically equal to the crypto/tls
// wire constant so it can be dropped into tls.Config version bounds.
type Version uint16

const (
	TLS10 Version = tls.VersionTLS10
	TLS11 Version = tls.VersionTLS11
	TLS12 Version = tls.VersionTLS12
	TLS13 Version = tls.VersionTLS13
)

func (v Version) String() string {
	switch v {
	case TLS10:
		return "TLSv1.0"
	case TLS11:
		return "TLSv1.1"
	case TLS12:
		return "TLSv1.2"
	case TLS13:
		return "TLSv1.3"
	}
	return fmt.Sprintf("TLS(0x%04x)", uint16(v))
}

// ParseVersion maps a human-readable name (e.g. "TLSv1.3" or "1.3") to a Version.
func ParseVersion(s string) (Version, error) {
	switch s {
	case "TLSv1.0", "1.0":
		return TLS10, nil
	case "TLSv1.1", "1.1":
		return TLS11, nil
	case "TLSv1.2", "1.2":
		return TLS12, nil
	case "TLSv1.3", "1.3":
		return TLS13, nil
	}
	return 0, fmt.Errorf("unknown TLS version %q", s)
}

// VersionSet is the set of TLS protocol versions an endpoint accepts.
type VersionSet struct {
	versions []Version
}

// NewVersionSet builds a deduplicated version set.
func NewVersionSet(versions ...Version) VersionSet {
	out := make([]Version, 0, len(versions))
	for _, v := range versions {
		dup := false
		for _, w := range out {
			if w == v {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return VersionSet{versions: out}
}

// VersionRange expands an inclusive [min,max] bound into a VersionSet,
// matching how tls.Config expresses version limits.
func VersionRange(min, max Version) VersionSet {
	all := []Version{TLS10, TLS11, TLS12, TLS13}
	out := make([]Version, 0, len(all))
	for _, v := range all {
		if v >= min && v <= max {
			out = append(out, v)
		}
	}
	return VersionSet{versions: out}
}

// Contains reports whether v is in the set.
func (s VersionSet) Contains(v Version) bool {
	for _, w := range s.versions {
		if w == v {
			return true
		}
	}
	return false
}

// Intersect returns the versions present in both sets.
func (s VersionSet) Intersect(other VersionSet) VersionSet {
	out := make([]Version, 0, len(s.versions))
	for _, v := range s.versions {
		if other.Contains(v) {
			out = append(out, v)
		}
	}
	return VersionSet{versions: out}
}

// Empty reports whether the set holds no versions.
func (s VersionSet) Empty() bool { return len(s.versions) == 0 }

// Versions returns a copy of the set contents.
func (s VersionSet) Versions() []Version {
	out := make([]Version, len(s.versions))
	copy(out, s.versions)
	return out
}

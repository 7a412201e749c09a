package ws

import (
	"net/http"
	"net/url"
	"strings"
)

// IsOriginAllowed validates r.Header["Origin"] against an allow-list.
//
// Allowed entries support full Origin values with scheme
// ("https://example.com"), bare hostnames ("example.com"), wildcard
// hostnames ("*.example.com", matching the base domain and subdomains), and
// exact non-standard values ("null"). allowNoOrigin controls requests with
// no Origin header.
func IsOriginAllowed(r *http.Request, allowed []string, allowNoOrigin bool) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return allowNoOrigin
	}
	hostname := ""
	if parsed, err := url.Parse(origin); err == nil {
		hostname = parsed.Hostname()
	}
	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "://") {
			if origin == entry {
				return true
			}
			continue
		}
		if base, ok := strings.CutPrefix(entry, "*."); ok {
			if hostname != "" && base != "" &&
				(hostname == base || strings.HasSuffix(hostname, "."+base)) {
				return true
			}
			continue
		}
		if hostname != "" && hostname == entry {
			return true
		}
		if origin == entry {
			return true
		}
	}
	return false
}

// NewOriginChecker returns a websocket upgrader CheckOrigin function.
func NewOriginChecker(allowed []string, allowNoOrigin bool) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		return IsOriginAllowed(r, allowed, allowNoOrigin)
	}
}

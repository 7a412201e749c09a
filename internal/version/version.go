package version

import (
	"runtime/debug"
	"strings"
)

// String formats a human-friendly version line for CLI tools.
//
// It prefers the provided version/commit values (usually injected via
// -ldflags) and falls back to Go module build info when those are unset.
func String(version string, commit string) string {
	v := strings.TrimSpace(version)
	c := strings.TrimSpace(commit)

	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "" || v == "dev" || v == "(devel)" {
			if mv := strings.TrimSpace(info.Main.Version); mv != "" && mv != "(devel)" {
				v = mv
			}
		}
		if c == "" || c == "unknown" {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
					break
				}
			}
		}
	}

	out := v
	if out == "" {
		out = "dev"
	}
	if c != "" && c != "unknown" {
		out += " (" + c + ")"
	}
	return out
}

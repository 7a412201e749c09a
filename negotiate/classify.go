package negotiate

import (
	"context"
	"errors"
	"strings"
)

// ClassifyHandshakeError maps a live crypto/tls handshake error onto the
// negotiation failure taxonomy, so the real handshake path and the pure
// Negotiate model report the same reasons.
//
// crypto/tls does not export its alert error types for TCP connections; a
// peer's fatal alert surfaces as a net.OpError wrapping an unexported alert
// value, and locally generated failures are plain errors. Matching the
// stable alert description strings is the only classification hook
// available.
func ClassifyHandshakeError(err error) Reason {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "protocol version not supported"),
		strings.Contains(msg, "unsupported versions"),
		strings.Contains(msg, "selected unsupported protocol version"),
		strings.Contains(msg, "no supported versions satisfy MinVersion and MaxVersion"):
		return ReasonVersionMismatch
	case strings.Contains(msg, "no application protocol"),
		strings.Contains(msg, "client requested unsupported application protocols"),
		strings.Contains(msg, "server selected unadvertised ALPN protocol"):
		return ReasonNoCommonProtocol
	}
	return ReasonOther
}

// Retryable reports whether a handshake error is a transient transport
// condition rather than a terminal negotiation outcome. Negotiation
// failures are never retryable; cancellation is surfaced as-is.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return ClassifyHandshakeError(err) == ReasonOther
}

package agerrors

import (
	"context"
	"errors"

	"github.com/seclink/alpngate/negotiate"
)

// ClassifyConnectCode maps a dial-layer error to a stable Code.
func ClassifyConnectCode(err error) Code {
	return classifyContextCode(err, CodeDialFailed)
}

// ClassifyHandshakeCode maps a TLS handshake error to a stable Code.
//
// Negotiation outcomes (version mismatch, no common ALPN protocol) get their
// own codes; everything else collapses to CodeHandshakeFailed so callers can
// build retry policy on top without string matching.
func ClassifyHandshakeCode(err error) Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	}
	switch negotiate.ClassifyHandshakeError(err) {
	case negotiate.ReasonVersionMismatch:
		return CodeVersionMismatch
	case negotiate.ReasonNoCommonProtocol:
		return CodeNoCommonProtocol
	}
	return CodeHandshakeFailed
}

func classifyContextCode(err error, fallback Code) Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	default:
		return fallback
	}
}

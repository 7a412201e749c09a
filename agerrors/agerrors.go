package agerrors

import "fmt"

// Stage identifies which step of the endpoint lifecycle failed.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageBind      Stage = "bind"
	StageConnect   Stage = "connect"
	StageHandshake Stage = "handshake"
	StageNegotiate Stage = "negotiate"
	StageServe     Stage = "serve"
	StageClose     Stage = "close"
)

// Code is a stable, programmatic error identifier for user-facing operations.
type Code string

const (
	CodeTimeout             Code = "timeout"
	CodeCanceled            Code = "canceled"
	CodeInvalidProtocol     Code = "invalid_protocol"
	CodeEmptyProtocolSet    Code = "empty_protocol_set"
	CodeCleartextH2         Code = "cleartext_h2"
	CodeMissingCertMaterial Code = "missing_cert_material"
	CodeInvalidVersions     Code = "invalid_versions"
	CodeEngineUnavailable   Code = "engine_unavailable"
	CodeBindFailed          Code = "bind_failed"
	CodeDialFailed          Code = "dial_failed"
	CodeVersionMismatch     Code = "version_mismatch"
	CodeNoCommonProtocol    Code = "no_common_protocol"
	CodeHandshakeFailed     Code = "handshake_failed"
	CodeUpgradeFailed       Code = "upgrade_failed"
)

// Error is a structured, programmatically identifiable error for endpoint
// operations. Bind-time codes are fatal for the endpoint; handshake-stage
// codes belong to a single connection attempt and are never retried here.
type Error struct {
	Stage Stage
	Code  Code
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Stage, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func Wrap(stage Stage, code Code, err error) error {
	return &Error{Stage: stage, Code: code, Err: err}
}

// CodeOf extracts the stable code from an error chain, or "" if the chain
// carries no *Error.
func CodeOf(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

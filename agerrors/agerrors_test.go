package agerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		err := Wrap(StageHandshake, CodeVersionMismatch, errors.New("boom"))
		if got := err.Error(); got != "handshake (version_mismatch): boom" {
			t.Fatalf("unexpected format %q", got)
		}
	})
	t.Run("without cause", func(t *testing.T) {
		err := &Error{Stage: StageBind, Code: CodeBindFailed}
		if got := err.Error(); got != "bind (bind_failed)" {
			t.Fatalf("unexpected format %q", got)
		}
	})
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(StageConnect, CodeDialFailed, cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to see the cause")
	}
	var e *Error
	if !errors.As(err, &e) || e.Stage != StageConnect {
		t.Fatalf("expected errors.As to find *Error")
	}
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("x"), ""},
		{"direct", Wrap(StageBind, CodeCleartextH2, nil), CodeCleartextH2},
		{"wrapped", fmt.Errorf("outer: %w", Wrap(StageNegotiate, CodeNoCommonProtocol, nil)), CodeNoCommonProtocol},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

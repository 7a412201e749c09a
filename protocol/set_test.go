package protocol

import (
	"errors"
	"testing"
)

func TestNewSet(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := NewSet()
		if !errors.Is(err, ErrEmptySet) {
			t.Fatalf("expected ErrEmptySet, got %v", err)
		}
	})

	t.Run("unknown protocol", func(t *testing.T) {
		_, err := NewSet(Protocol("spdy/3"))
		if err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("dedupes preserving order", func(t *testing.T) {
		s, err := NewSet(H2, HTTP11, H2, HTTP11)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		got := s.Protocols()
		if len(got) != 2 || got[0] != H2 || got[1] != HTTP11 {
			t.Fatalf("expected [h2 http/1.1], got %v", got)
		}
	})

	t.Run("protocols returns a copy", func(t *testing.T) {
		s, err := NewSet(H2, HTTP11)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		s.Protocols()[0] = Protocol("mutated")
		if got := s.Protocols()[0]; got != H2 {
			t.Fatalf("expected h2, got %q", got)
		}
	})
}

func TestParseSet(t *testing.T) {
	t.Run("trims tokens", func(t *testing.T) {
		s, err := ParseSet([]string{" h2 ", "http/1.1"})
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if !s.Contains(H2) || !s.Contains(HTTP11) {
			t.Fatalf("expected both protocols, got %v", s.Protocols())
		}
	})

	t.Run("rejects unknown token", func(t *testing.T) {
		if _, err := ParseSet([]string{"h2", "h3"}); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		if _, err := ParseSet(nil); !errors.Is(err, ErrEmptySet) {
			t.Fatalf("expected ErrEmptySet")
		}
	})
}

func TestSetRequires(t *testing.T) {
	cases := []struct {
		name         string
		protos       []Protocol
		requiresALPN bool
		requiresTLS  bool
	}{
		{"http11 only", []Protocol{HTTP11}, false, false},
		{"h2 only", []Protocol{H2}, true, true},
		{"both", []Protocol{HTTP11, H2}, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSet(tc.protos...)
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if got := s.RequiresALPN(); got != tc.requiresALPN {
				t.Fatalf("RequiresALPN: expected %v, got %v", tc.requiresALPN, got)
			}
			if got := s.RequiresTLS(); got != tc.requiresTLS {
				t.Fatalf("RequiresTLS: expected %v, got %v", tc.requiresTLS, got)
			}
		})
	}
}

func TestSetString(t *testing.T) {
	s, err := NewSet(H2, HTTP11)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got := s.String(); got != "h2,http/1.1" {
		t.Fatalf("expected h2,http/1.1, got %q", got)
	}
}

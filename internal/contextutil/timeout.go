// Package contextutil holds small context helpers shared by the connect and
// handshake paths.
package contextutil

import (
	"context"
	"time"
)

// WithTimeout bounds parent by d when d is positive. A nonpositive d applies
// no bound: parent comes back unchanged with a no-op cancel, so call sites
// can always defer the cancel. A nil parent falls back to
// context.Background.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if d <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, d)
}

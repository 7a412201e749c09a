package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

type HandshakeResult string

const (
	HandshakeResultOK   HandshakeResult = "ok"
	HandshakeResultFail HandshakeResult = "fail"
)

type HandshakeReason string

const (
	HandshakeReasonOK               HandshakeReason = "ok"
	HandshakeReasonVersionMismatch  HandshakeReason = "version_mismatch"
	HandshakeReasonNoCommonProtocol HandshakeReason = "no_common_protocol"
	HandshakeReasonOther            HandshakeReason = "other"
)

// HandshakeObserver receives per-endpoint negotiation metric events.
type HandshakeObserver interface {
	ConnCount(n int64)
	Handshake(result HandshakeResult, reason HandshakeReason)
	Negotiated(proto string)
	HandshakeLatency(d time.Duration)
	EngineSelected(variant string)
}

type noopHandshakeObserver struct{}

func (noopHandshakeObserver) ConnCount(int64)                            {}
func (noopHandshakeObserver) Handshake(HandshakeResult, HandshakeReason) {}
func (noopHandshakeObserver) Negotiated(string)                          {}
func (noopHandshakeObserver) HandshakeLatency(time.Duration)             {}
func (noopHandshakeObserver) EngineSelected(string)                      {}

// NoopHandshakeObserver is a zero-cost observer used when metrics are disabled.
var NoopHandshakeObserver HandshakeObserver = noopHandshakeObserver{}

// AtomicHandshakeObserver swaps its delegate at runtime.
type AtomicHandshakeObserver struct {
	once sync.Once
	v    atomic.Value
}

type handshakeObserverHolder struct {
	obs HandshakeObserver
}

// NewAtomicHandshakeObserver returns an initialized atomic observer.
func NewAtomicHandshakeObserver() *AtomicHandshakeObserver {
	a := &AtomicHandshakeObserver{}
	a.once.Do(func() { a.v.Store(&handshakeObserverHolder{obs: NoopHandshakeObserver}) })
	return a
}

// Set replaces the delegate, falling back to the no-op observer on nil.
func (a *AtomicHandshakeObserver) Set(obs HandshakeObserver) {
	if obs == nil {
		obs = NoopHandshakeObserver
	}
	a.once.Do(func() { a.v.Store(&handshakeObserverHolder{obs: NoopHandshakeObserver}) })
	a.v.Store(&handshakeObserverHolder{obs: obs})
}

func (a *AtomicHandshakeObserver) load() HandshakeObserver {
	a.once.Do(func() { a.v.Store(&handshakeObserverHolder{obs: NoopHandshakeObserver}) })
	return a.v.Load().(*handshakeObserverHolder).obs
}

func (a *AtomicHandshakeObserver) ConnCount(n int64) { a.load().ConnCount(n) }
func (a *AtomicHandshakeObserver) Handshake(result HandshakeResult, reason HandshakeReason) {
	a.load().Handshake(result, reason)
}
func (a *AtomicHandshakeObserver) Negotiated(proto string) { a.load().Negotiated(proto) }
func (a *AtomicHandshakeObserver) HandshakeLatency(d time.Duration) {
	a.load().HandshakeLatency(d)
}
func (a *AtomicHandshakeObserver) EngineSelected(variant string) {
	a.load().EngineSelected(variant)
}

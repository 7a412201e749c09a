package prom

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seclink/alpngate/observability"
)

// NewRegistry returns a fresh Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler returns a Prometheus HTTP handler bound to the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// HandshakeObserver exports negotiation metrics to Prometheus.
type HandshakeObserver struct {
	connGauge        prometheus.Gauge
	handshakeTotal   *prometheus.CounterVec
	negotiatedTotal  *prometheus.CounterVec
	handshakeLatency prometheus.Histogram
	engineSelected   *prometheus.CounterVec
}

// NewHandshakeObserver registers negotiation metrics on the registry.
func NewHandshakeObserver(reg *prometheus.Registry) *HandshakeObserver {
	o := &HandshakeObserver{
		connGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alpngate_connections",
			Help: "Current accepted connection count.",
		}),
		handshakeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alpngate_handshakes_total",
			Help: "TLS handshake attempts by result and reason.",
		}, []string{"result", "reason"}),
		negotiatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alpngate_negotiated_total",
			Help: "Successful handshakes by negotiated application protocol.",
		}, []string{"proto"}),
		handshakeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alpngate_handshake_latency_seconds",
			Help:    "Latency from accept to handshake completion.",
			Buckets: prometheus.DefBuckets,
		}),
		engineSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alpngate_engine_selected_total",
			Help: "Endpoint binds by selected TLS engine variant.",
		}, []string{"variant"}),
	}
	reg.MustRegister(
		o.connGauge,
		o.handshakeTotal,
		o.negotiatedTotal,
		o.handshakeLatency,
		o.engineSelected,
	)
	return o
}

func (o *HandshakeObserver) ConnCount(n int64) {
	o.connGauge.Set(float64(n))
}

func (o *HandshakeObserver) Handshake(result observability.HandshakeResult, reason observability.HandshakeReason) {
	o.handshakeTotal.WithLabelValues(string(result), string(reason)).Inc()
}

func (o *HandshakeObserver) Negotiated(proto string) {
	o.negotiatedTotal.WithLabelValues(proto).Inc()
}

func (o *HandshakeObserver) HandshakeLatency(d time.Duration) {
	o.handshakeLatency.Observe(d.Seconds())
}

func (o *HandshakeObserver) EngineSelected(variant string) {
	o.engineSelected.WithLabelValues(variant).Inc()
}

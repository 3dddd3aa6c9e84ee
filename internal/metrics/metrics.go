// Package metrics exposes Prometheus instrumentation for Eventify.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Operations  *prometheus.CounterVec
	Subscribers *prometheus.GaugeVec
	UploadBytes prometheus.Counter

	registry *prometheus.Registry
}

// New creates the collectors on a private registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "media",
			Name:      "operations_total",
			Help:      "Media operations by kind and result.",
		}, []string{"op", "result"}),
		Subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "subscribers",
			Help:      "Live feed subscriptions per topic.",
		}, []string{"topic"}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "bytes_total",
			Help:      "Bytes accepted by media uploads.",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.Collectors()...)
	m.registry.MustRegister(prometheus.NewGoCollector())
	return m
}

// Collectors returns the Eventify collectors for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{m.Operations, m.Subscribers, m.UploadBytes}
}

// Observe counts one operation outcome.
func (m *Metrics) Observe(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

// SetSubscribers records the subscription count of topic.
func (m *Metrics) SetSubscribers(topic string, n int) {
	if m == nil {
		return
	}
	m.Subscribers.WithLabelValues(topic).Set(float64(n))
}

// AddUploadBytes counts stored bytes.
func (m *Metrics) AddUploadBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.UploadBytes.Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

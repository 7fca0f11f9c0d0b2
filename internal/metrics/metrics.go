package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors the POS exports.
type Metrics struct {
	registry *prometheus.Registry

	CheckoutOutcomes  *prometheus.CounterVec
	Reconciliations   *prometheus.CounterVec
	ReceiptDeliveries *prometheus.CounterVec
	GatewayDuration   *prometheus.HistogramVec
	HTTPRequests      *prometheus.CounterVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		CheckoutOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "checkout_outcomes_total",
			Help:      "Sale attempts by flow and terminal state.",
		}, []string{"flow", "outcome"}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "payment_reconciliations_total",
			Help:      "Captured payments that could not be turned into a sale.",
		}, []string{"reason"}),
		ReceiptDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "receipt_deliveries_total",
			Help:      "Receipt send attempts by result.",
		}, []string{"result"}),
		GatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pos",
			Name:      "gateway_call_duration_seconds",
			Help:      "Latency of payment gateway calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CheckoutOutcomes,
		m.Reconciliations,
		m.ReceiptDeliveries,
		m.GatewayDuration,
		m.HTTPRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

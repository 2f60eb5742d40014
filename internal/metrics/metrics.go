package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Reconciliation runs by decision outcome
	ReconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_runs_total",
			Help: "Reconciliation runs by trigger and decided status",
		},
		[]string{"trigger", "decision"},
	)
	ReconcileFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_payment_fallbacks_total",
			Help: "Payment lookups that fell back to order aggregation",
		},
	)

	// Outbound PSP calls
	PSPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "psp_request_duration_seconds",
			Help:    "Latency of PSP API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)

	// Webhook traffic
	WebhookHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_hits_total",
			Help: "Inbound PSP webhook calls",
		},
		[]string{"action"},
	)

	// Sweep
	SweepQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sweep_queue_depth",
			Help: "Transactions queued for the periodic re-check",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(HTTPLatency)
	prometheus.MustRegister(ReconcileRuns)
	prometheus.MustRegister(ReconcileFallbacks)
	prometheus.MustRegister(PSPRequestDuration)
	prometheus.MustRegister(WebhookHits)
	prometheus.MustRegister(SweepQueueDepth)
}

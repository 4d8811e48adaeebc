package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PlanRuns counts planning runs by outcome.
	PlanRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_runs_total", Help: "Planning runs by outcome."},
		[]string{"outcome"},
	)
	// PlanDuration records end-to-end planning run durations in seconds.
	PlanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_run_duration_seconds", Help: "Planning run duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60}},
	)
	// PlanRoutes counts routes produced by kind (scheduled, pull_forward, overspill).
	PlanRoutes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_routes_total", Help: "Routes produced by kind."},
		[]string{"kind"},
	)
	// InsertionRejections counts insertion attempts rejected by the scorer.
	InsertionRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_insertion_rejections_total", Help: "Insertion rejections by feasibility check."},
		[]string{"reason"},
	)
	// RebalanceMoves counts accepted rebalancing moves by kind (merge, swap).
	RebalanceMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_rebalance_moves_total", Help: "Accepted rebalancing moves by kind."},
		[]string{"kind"},
	)
	// UnplannedShipments counts shipments left for manual review.
	UnplannedShipments = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_unplanned_shipments_total", Help: "Shipments left unplanned by reason."},
		[]string{"reason"},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status.
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds.
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the package registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PlanRuns)
		Registry.MustRegister(PlanDuration)
		Registry.MustRegister(PlanRoutes)
		Registry.MustRegister(InsertionRejections)
		Registry.MustRegister(RebalanceMoves)
		Registry.MustRegister(UnplannedShipments)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// ObserveStats feeds one run's planner counters.
func ObserveStats(rejections map[string]int, merges, swaps int, scheduled, pullForward, overspill int) {
	PlanRoutes.WithLabelValues("scheduled").Add(float64(scheduled))
	PlanRoutes.WithLabelValues("pull_forward").Add(float64(pullForward))
	PlanRoutes.WithLabelValues("overspill").Add(float64(overspill))
	RebalanceMoves.WithLabelValues("merge").Add(float64(merges))
	RebalanceMoves.WithLabelValues("swap").Add(float64(swaps))
	for reason, n := range rejections {
		InsertionRejections.WithLabelValues(reason).Add(float64(n))
	}
}

var regOnce sync.Once

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alarmsync",
		Name:      "operations_enqueued_total",
		Help:      "Operations accepted into the durable queue.",
	}, []string{"kind"})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alarmsync",
		Name:      "deliveries_total",
		Help:      "Backend delivery attempts by outcome.",
	}, []string{"outcome"})

	DrainDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "alarmsync",
		Name:      "drain_duration_seconds",
		Help:      "Time spent in a single drain pass.",
		Buckets:   prometheus.DefBuckets,
	})

	DrainsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alarmsync",
		Name:      "drains_total",
		Help:      "Drain passes by trigger.",
	}, []string{"trigger"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "alarmsync",
		Name:      "queue_depth",
		Help:      "Operations currently in the queue by state.",
	}, []string{"state"})

	HealthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alarmsync",
		Name:      "health_checks_total",
		Help:      "Background scheduler probes by result.",
	}, []string{"result"})

	ConnectivityEdges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alarmsync",
		Name:      "connectivity_edges_total",
		Help:      "Observed connectivity transitions.",
	}, []string{"direction"})
)

// ObserveQueueDepth updates the per-state queue gauges from a counts
// breakdown.
func ObserveQueueDepth(pending, inFlight, failed int) {
	QueueDepth.WithLabelValues("pending").Set(float64(pending))
	QueueDepth.WithLabelValues("in_flight").Set(float64(inFlight))
	QueueDepth.WithLabelValues("failed").Set(float64(failed))
}

// Package metrics holds the Prometheus collectors of the pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors groups every collector. Obtain it with Get.
type Collectors struct {
	Enqueued      *prometheus.CounterVec
	Ticks         *prometheus.CounterVec
	Items         *prometheus.CounterVec
	ItemLatency   *prometheus.HistogramVec
	QueueDepth    prometheus.Gauge
	Notifications *prometheus.CounterVec
}

var singleton = sync.OnceValue(func() *Collectors {
	return &Collectors{
		Enqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mandaatsync",
			Name:      "enqueued_total",
			Help:      "Total number of mandate references accepted from intake.",
		}, []string{"path"}),
		Ticks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mandaatsync",
			Name:      "scheduler_ticks_total",
			Help:      "Total number of scheduler wake-ups by result.",
		}, []string{"result"}),
		Items: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mandaatsync",
			Name:      "reconcile_total",
			Help:      "Total number of reconciled references by outcome.",
		}, []string{"outcome"}),
		ItemLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mandaatsync",
			Name:      "reconcile_latency_seconds",
			Help:      "Latency distribution of one reconciliation.",
			Buckets: []float64{
				0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5, 10,
			},
		}, []string{"outcome"}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "mandaatsync",
			Name:      "queue_depth",
			Help:      "Number of entries in the durable work queue at the last tick.",
		}),
		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mandaatsync",
			Name:      "notifications_total",
			Help:      "Total number of notifications written by severity.",
		}, []string{"severity"}),
	}
})

// Get returns the process-wide collectors, registering them on first use.
func Get() *Collectors {
	return singleton()
}

package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Worker collectors, served on the worker's WORKER_METRICS_ADDR listener.
var (
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "offers",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Tasks per asynq queue and state, sampled by WatchDepth.",
	}, []string{"queue", "state"})
	QueueProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offers",
		Subsystem: "queue",
		Name:      "processed_total",
		Help:      "Tasks processed, by task type and outcome.",
	}, []string{"kind", "status"})
	QueueTaskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "offers",
		Subsystem: "queue",
		Name:      "task_duration_seconds",
		Help:      "Task handler latency, by task type.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(QueueDepth, QueueProcessedTotal, QueueTaskDuration)
}

func observeTask(kind, status string, started time.Time) {
	QueueProcessedTotal.WithLabelValues(kind, status).Inc()
	QueueTaskDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker collectors, labelled by the breaker's target.
var (
	// BreakerState is the numeric State: 0 closed, 1 open, 2 half-open.
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "offers",
		Subsystem: "breaker",
		Name:      "state",
		Help:      "Current circuit breaker state (0 closed, 1 open, 2 half-open).",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offers",
		Subsystem: "breaker",
		Name:      "transitions_total",
		Help:      "Circuit breaker state transitions.",
	}, []string{"target", "from", "to"})
	BreakerRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "offers",
		Subsystem: "breaker",
		Name:      "rejected_total",
		Help:      "Calls refused while the breaker was open or probing.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerRejected)
}

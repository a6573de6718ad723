package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OfferApplyTotal counts cart pricing runs by outcome.
	OfferApplyTotal *prometheus.CounterVec
	// OfferRuleFiredTotal counts how often each rule fired during pricing.
	OfferRuleFiredTotal *prometheus.CounterVec
	// OfferApplyDuration records end-to-end apply latency in milliseconds, storage included.
	OfferApplyDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OfferApplyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offer_apply_total",
			Help:      "Count of cart pricing runs by outcome.",
		}, []string{"result"})
		OfferRuleFiredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offer_rule_fired_total",
			Help:      "Count of offer rules that fired, by rule name.",
		}, []string{"rule"})
		OfferApplyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "offer_apply_duration_ms",
			Help:      "Latency of cart pricing runs in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		})

		mustRegisterCollector(reg, OfferApplyTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OfferApplyTotal = v
			}
		})
		mustRegisterCollector(reg, OfferRuleFiredTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OfferRuleFiredTotal = v
			}
		})
		mustRegisterCollector(reg, OfferApplyDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				OfferApplyDuration = v
			}
		})
	})
}

// ObserveApply records the outcome of one pricing run. It is a no-op until
// MustRegisterDomainMetrics has been called.
func ObserveApply(result string, durationMs float64, firedRules []string) {
	if OfferApplyTotal == nil {
		return
	}
	OfferApplyTotal.WithLabelValues(result).Inc()
	OfferApplyDuration.Observe(durationMs)
	for _, name := range firedRules {
		OfferRuleFiredTotal.WithLabelValues(name).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}

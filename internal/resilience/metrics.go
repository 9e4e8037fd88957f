package resilience

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	breakerMetricsOnce sync.Once

	// BreakerState reports the current state per protected dependency
	// (0=closed, 1=open, 2=half-open). Nil until registered.
	BreakerState *prometheus.GaugeVec
	// BreakerTransitions counts state transitions per dependency.
	BreakerTransitions *prometheus.CounterVec
	// BreakerOpenedTotal counts how often a breaker tripped open.
	BreakerOpenedTotal *prometheus.CounterVec
)

// MustRegisterBreakerMetrics initialises and registers the circuit breaker
// collectors. Safe to call more than once; an already-registered collector is
// reused.
func MustRegisterBreakerMetrics(namespace string, reg prometheus.Registerer) {
	breakerMetricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current circuit breaker state per dependency (0=closed, 1=open, 2=half-open).",
		}, []string{"target"})
		BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Count of circuit breaker state transitions.",
		}, []string{"target", "from", "to"})
		BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_opened_total",
			Help:      "Count of times a circuit breaker tripped open.",
		}, []string{"target"})

		registerBreakerCollector(reg, BreakerState, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.GaugeVec); ok {
				BreakerState = v
			}
		})
		registerBreakerCollector(reg, BreakerTransitions, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BreakerTransitions = v
			}
		})
		registerBreakerCollector(reg, BreakerOpenedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BreakerOpenedTotal = v
			}
		})
	})
}

func registerBreakerCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register breaker metric: %w", err))
	}
}

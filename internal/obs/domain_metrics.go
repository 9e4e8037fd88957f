package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingCalculationsTotal counts pricing runs by outcome.
	PricingCalculationsTotal *prometheus.CounterVec
	// PricingCalcDuration records end-to-end pricing latency in milliseconds.
	PricingCalcDuration prometheus.Histogram
	// PricingCodeRejectionsTotal counts rejected coupon and campaign codes.
	PricingCodeRejectionsTotal *prometheus.CounterVec
	// PricingMalformedRulesTotal counts rule rows skipped for bad payloads.
	PricingMalformedRulesTotal prometheus.Counter
	// PricingTaxLookupsTotal counts tax gateway lookups by result.
	PricingTaxLookupsTotal *prometheus.CounterVec
	// RuleCacheTotal counts rule cache reads by outcome (hit, miss, error).
	RuleCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the pricing collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingCalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_calculations_total",
			Help:      "Count of cart pricing runs by outcome.",
		}, []string{"result"})
		PricingCalcDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_calculation_duration_ms",
			Help:      "Latency of full cart pricing runs in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		})
		PricingCodeRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_code_rejections_total",
			Help:      "Count of coupon and campaign codes rejected during pricing.",
		}, []string{"kind"})
		PricingMalformedRulesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_malformed_rules_total",
			Help:      "Count of pricing rule rows skipped due to unparseable payloads.",
		})
		PricingTaxLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_tax_lookups_total",
			Help:      "Count of tax gateway lookups by result.",
		}, []string{"result"})
		RuleCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_rule_cache_total",
			Help:      "Count of rule cache reads by outcome.",
		}, []string{"outcome"})

		mustRegisterCollector(reg, PricingCalculationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingCalculationsTotal = v
			}
		})
		mustRegisterCollector(reg, PricingCalcDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				PricingCalcDuration = v
			}
		})
		mustRegisterCollector(reg, PricingCodeRejectionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingCodeRejectionsTotal = v
			}
		})
		mustRegisterCollector(reg, PricingMalformedRulesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PricingMalformedRulesTotal = v
			}
		})
		mustRegisterCollector(reg, PricingTaxLookupsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingTaxLookupsTotal = v
			}
		})
		mustRegisterCollector(reg, RuleCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RuleCacheTotal = v
			}
		})
	})
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

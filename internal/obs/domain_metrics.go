package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts quote computations by outcome.
	QuoteTotal *prometheus.CounterVec
	// QuoteLineItems records how many line items each quote carried.
	QuoteLineItems prometheus.Histogram
	// QuoteAmountDueToday records the amount due today per quote, by currency, in minor units.
	QuoteAmountDueToday *prometheus.HistogramVec
	// QuoteRateLimited counts quote requests rejected by the rate limiter.
	QuoteRateLimited prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_total",
			Help:      "Count of quote computations by outcome.",
		}, []string{"result"})
		QuoteLineItems = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_line_items",
			Help:      "Number of line items per quote.",
			Buckets:   []float64{1, 2, 3, 5, 10, 25, 50},
		})
		QuoteAmountDueToday = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_amount_due_today",
			Help:      "Amount due today per quote in minor units.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 10),
		}, []string{"currency"})
		QuoteRateLimited = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_rate_limited_total",
			Help:      "Number of quote requests rejected by the rate limiter.",
		})

		mustRegisterCollector(reg, QuoteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteLineItems, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				QuoteLineItems = v
			}
		})
		mustRegisterCollector(reg, QuoteAmountDueToday, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				QuoteAmountDueToday = v
			}
		})
		mustRegisterCollector(reg, QuoteRateLimited, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				QuoteRateLimited = v
			}
		})
	})
}

// ObserveQuote records a quote outcome. It is a no-op until the domain
// metrics are registered.
func ObserveQuote(result string, lineItems int, currency string, dueToday int64) {
	if QuoteTotal == nil {
		return
	}
	QuoteTotal.WithLabelValues(result).Inc()
	if result != "ok" {
		return
	}
	QuoteLineItems.Observe(float64(lineItems))
	QuoteAmountDueToday.WithLabelValues(currency).Observe(float64(dueToday))
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}

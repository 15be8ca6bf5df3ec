package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sale outcomes recorded by SalesMetrics.
const (
	OutcomeCommitted         = "committed"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeNotFound          = "not_found"
	OutcomeInvalid           = "invalid"
	OutcomeTransient         = "transient"
	OutcomeFailed            = "failed"
)

// SalesMetrics records sale processor outcomes. A nil receiver is a no-op.
type SalesMetrics struct {
	outcomes *prometheus.CounterVec
	retries  prometheus.Counter
	duration *prometheus.HistogramVec
	units    *prometheus.CounterVec
}

// NewSalesMetrics registers the sale metrics on the provided registerer.
func NewSalesMetrics(reg prometheus.Registerer) *SalesMetrics {
	if reg == nil {
		return &SalesMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_total",
		Help:      "Sale attempts by outcome.",
	}, []string{"outcome"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sale_retries_total",
		Help:      "Atomic sale scopes replayed after a transient store conflict.",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sale_duration_seconds",
		Help:      "Wall time of a sale including retries.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"outcome"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "units_sold_total",
		Help:      "Units sold by item category.",
	}, []string{"category"})
	reg.MustRegister(outcomes, retries, duration, units)
	return &SalesMetrics{
		outcomes: outcomes,
		retries:  retries,
		duration: duration,
		units:    units,
	}
}

// ObserveSale records the outcome and duration of one sale call.
func (m *SalesMetrics) ObserveSale(outcome string, elapsed time.Duration) {
	if m == nil || m.outcomes == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.outcomes.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// IncRetry counts one replay of the atomic scope.
func (m *SalesMetrics) IncRetry() {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Inc()
}

// AddUnits counts units sold for a category.
func (m *SalesMetrics) AddUnits(category string, qty int) {
	if m == nil || m.units == nil || qty <= 0 {
		return
	}
	m.units.WithLabelValues(normalizeLabel(category)).Add(float64(qty))
}

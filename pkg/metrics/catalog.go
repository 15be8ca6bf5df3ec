package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "pos"

// CatalogMetrics records administrative catalog events.
type CatalogMetrics struct {
	stockOverrides prometheus.Counter
	imageReleases  *prometheus.CounterVec
}

func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	overrides := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "item_stock_overrides_total",
		Help:      "Direct current_stock overwrites through catalog update.",
	})
	releases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_releases_total",
		Help:      "Image blob releases by result.",
	}, []string{"result"})
	reg.MustRegister(overrides, releases)
	return &CatalogMetrics{stockOverrides: overrides, imageReleases: releases}
}

func (m *CatalogMetrics) IncStockOverride() {
	if m == nil || m.stockOverrides == nil {
		return
	}
	m.stockOverrides.Inc()
}

// ObserveImageRelease counts a blob release; err decides the result label.
func (m *CatalogMetrics) ObserveImageRelease(err error) {
	if m == nil || m.imageReleases == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.imageReleases.WithLabelValues(result).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

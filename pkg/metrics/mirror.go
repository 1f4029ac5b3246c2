package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MirrorMetrics tracks collection mirror refresh activity.
type MirrorMetrics struct {
	refreshes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	size      *prometheus.GaugeVec
}

// NewMirrorMetrics registers the mirror metrics on the provided registerer.
func NewMirrorMetrics(reg prometheus.Registerer) *MirrorMetrics {
	if reg == nil {
		return &MirrorMetrics{}
	}
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_refresh_total",
		Help: "Completed mirror refreshes per collection.",
	}, []string{"collection"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_refresh_failures",
		Help: "Mirror refreshes that failed to load per collection.",
	}, []string{"collection"})
	size := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mirror_snapshot_size",
		Help: "Document count of the latest mirror snapshot per collection.",
	}, []string{"collection"})
	reg.MustRegister(refreshes, failures, size)
	return &MirrorMetrics{
		refreshes: refreshes,
		failures:  failures,
		size:      size,
	}
}

// ObserveRefresh records a successful refresh and the new snapshot size.
func (m *MirrorMetrics) ObserveRefresh(collection string, size int) {
	if m == nil || m.refreshes == nil {
		return
	}
	label := normalizeLabel(collection)
	m.refreshes.WithLabelValues(label).Inc()
	m.size.WithLabelValues(label).Set(float64(size))
}

// IncFailure increments the failure counter for the collection.
func (m *MirrorMetrics) IncFailure(collection string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(collection)).Inc()
}

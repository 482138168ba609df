package storage

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the storage manager counters, labelled by volume role.
type Metrics struct {
	SectorsRead        *prometheus.CounterVec
	SectorsWritten     *prometheus.CounterVec
	FailedReads        *prometheus.CounterVec
	FailedWrites       *prometheus.CounterVec
	CachedElementCount prometheus.Gauge
}

// NewMetrics creates the storage metrics and registers them with reg when
// it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SectorsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lcache",
			Subsystem: "storage",
			Name:      "sectors_read_total",
			Help:      "Sectors requested from linear volumes.",
		}, []string{"role"}),
		SectorsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lcache",
			Subsystem: "storage",
			Name:      "sectors_written_total",
			Help:      "Sectors written to linear volumes.",
		}, []string{"role"}),
		FailedReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lcache",
			Subsystem: "storage",
			Name:      "failed_reads_total",
			Help:      "Media read attempts that failed, retries included.",
		}, []string{"role"}),
		FailedWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lcache",
			Subsystem: "storage",
			Name:      "failed_writes_total",
			Help:      "Media write attempts that failed, retries included.",
		}, []string{"role"}),
		CachedElementCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lcache",
			Name:      "cached_elements",
			Help:      "Elements the last verification pass trusted.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.SectorsRead, m.SectorsWritten, m.FailedReads, m.FailedWrites, m.CachedElementCount)
	}
	return m
}

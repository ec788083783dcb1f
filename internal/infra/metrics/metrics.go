// Package metrics exposes tracking and sync counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync attempt outcomes
const (
	SyncResultDelivered = "delivered"
	SyncResultRetry     = "retry"
	SyncResultFailed    = "failed"
	SyncResultAbandoned = "abandoned"
)

// Metrics holds every collector of the process on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	SamplesAdmitted    prometheus.Counter
	SamplesRejected    *prometheus.CounterVec
	GeofenceViolations prometheus.Counter
	SamplesAnnotated   prometheus.Counter
	SamplesReconciled  prometheus.Counter
	TrackingActive     prometheus.Gauge
	TickDurationMs     prometheus.Histogram
	SyncAttempts       *prometheus.CounterVec
	SyncDurationMs     prometheus.Histogram
	OutboxEntries      *prometheus.GaugeVec
}

// New registers all collectors, plus Go runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SamplesAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldtrack_samples_admitted_total",
			Help: "Total number of samples admitted inside the geofence",
		}),
		SamplesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldtrack_samples_rejected_total",
			Help: "Total number of fixes not admitted, by reason",
		}, []string{"reason"}),
		GeofenceViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldtrack_geofence_violations_total",
			Help: "Total number of fixes outside the geofence",
		}),
		SamplesAnnotated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldtrack_samples_annotated_total",
			Help: "Total number of committed annotations",
		}),
		SamplesReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldtrack_samples_reconciled_total",
			Help: "Total number of unannotated samples removed by reconcile",
		}),
		TrackingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fieldtrack_tracking_active",
			Help: "1 while a tracking session is active",
		}),
		TickDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldtrack_tick_duration_ms",
			Help:    "Tracking tick duration in milliseconds",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
		}),
		SyncAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldtrack_sync_attempts_total",
			Help: "Remote delivery attempts by outcome",
		}, []string{"result"}),
		SyncDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldtrack_sync_duration_ms",
			Help:    "Remote delivery duration in milliseconds",
			Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 15000},
		}),
		OutboxEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fieldtrack_outbox_entries",
			Help: "Outbox entries by status as of the last dispatch",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SamplesAdmitted,
		m.SamplesRejected,
		m.GeofenceViolations,
		m.SamplesAnnotated,
		m.SamplesReconciled,
		m.TrackingActive,
		m.TickDurationMs,
		m.SyncAttempts,
		m.SyncDurationMs,
		m.OutboxEntries,
	)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package metrics holds the Prometheus collectors for reminders.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "todoprompt"

// Metrics exposes Prometheus collectors that report reminder activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	fired       *prometheus.CounterVec
	scheduleOps *prometheus.CounterVec
	jobsActive  prometheus.Gauge
}

// MustNew constructs a Metrics instance using the provided registerer.
// Registration errors panic, mirroring the promauto helpers.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		fired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reminders",
				Name:      "fired_total",
				Help:      "Reminder notifications by kind and delivery outcome.",
			},
			[]string{"kind", "outcome"},
		),
		scheduleOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reminders",
				Name:      "schedule_operations_total",
				Help:      "Schedule and unschedule calls by result.",
			},
			[]string{"op", "result"},
		),
		jobsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "jobs_active",
				Help:      "Recurring jobs currently registered in the engine.",
			},
		),
	}
	reg.MustRegister(m.fired, m.scheduleOps, m.jobsActive)
	return m
}

// Fired counts one notification attempt. outcome is sent, compose_error or delivery_failed.
func (m *Metrics) Fired(kind, outcome string) {
	if m == nil {
		return
	}
	m.fired.WithLabelValues(kind, outcome).Inc()
}

// ScheduleOp counts a schedule/unschedule/reconcile call.
func (m *Metrics) ScheduleOp(op, result string) {
	if m == nil {
		return
	}
	m.scheduleOps.WithLabelValues(op, result).Inc()
}

// SetJobsActive reports the engine's registered job count.
func (m *Metrics) SetJobsActive(n int) {
	if m == nil {
		return
	}
	m.jobsActive.Set(float64(n))
}

package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tasksQueued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modlog_scheduler_tasks_queued_total",
	Help: "Lift tasks started by the expiry scheduler",
}, []string{"type"})

var tasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "modlog_scheduler_tasks_in_flight",
	Help: "Lift tasks currently sleeping or running",
})

var tasksLifted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modlog_scheduler_lifted_total",
	Help: "Infractions lifted on expiry",
}, []string{"type"})

var liftFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modlog_scheduler_lift_failures_total",
	Help: "Lift callbacks that returned an error",
}, []string{"type"})

var scanErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modlog_scheduler_scan_errors_total",
	Help: "Expiry scans that failed to query storage",
})

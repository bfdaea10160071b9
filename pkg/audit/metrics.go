package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var correlatorQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "modlog_audit_queue_depth",
	Help: "Number of audit log lookups waiting for the next pass",
})

var correlatorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modlog_audit_requests_total",
	Help: "Audit log lookups by outcome of the pass that handled them",
}, []string{"outcome"})

var correlatorTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modlog_audit_timeouts_total",
	Help: "Audit log lookups that expired without a matching entry",
}, []string{"action"})

var correlatorFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modlog_audit_fetch_errors_total",
	Help: "Audit log page fetches that failed",
})

var correlatorPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "modlog_audit_pass_duration_seconds",
	Help:    "Time spent in one correlation pass",
	Buckets: prometheus.DefBuckets,
})

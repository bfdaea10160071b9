package modlog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var recordsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modlog_records_total",
	Help: "Modlog messages rendered, by category",
}, []string{"category"})

var eventFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modlog_event_failures_total",
	Help: "Dispatched events that failed to record or render",
})

var messageEdits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modlog_message_edits_total",
	Help: "Modlog messages re-rendered after an edit",
})

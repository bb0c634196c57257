package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fedibot_event_processed",
	Help: "Number of notifications processed, by type",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fedibot_event_errors",
	Help: "Number of notifications which failed processing, by type",
}, []string{"type"})

var eventSkippedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fedibot_event_skipped",
	Help: "Number of notifications skipped for lack of a handler, by type",
}, []string{"type"})

var dismissErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fedibot_dismiss_errors",
	Help: "Number of failed notification dismissals",
})

var fetchErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fedibot_fetch_errors",
	Help: "Number of failed notification fetches",
})

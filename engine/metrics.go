package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fedibot_actions",
	Help: "Number of response actions performed, by action",
}, []string{"action"})

var actionErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fedibot_action_errors",
	Help: "Number of response actions which failed",
}, []string{"action"})

var noticeCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fedibot_notices_posted",
	Help: "Number of deficiency notices posted, by deficiency",
}, []string{"deficiency"})

var relationshipFetches = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fedibot_relationship_fetches",
	Help: "Number of account relationship reads (API calls)",
})

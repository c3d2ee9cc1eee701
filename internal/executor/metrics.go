// File: internal/executor/metrics.go
package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "puppetry",
		Subsystem: "executor",
		Name:      "actions_total",
		Help:      "Number of attempted actions by kind and status.",
	}, []string{"kind", "status"})
	metricActionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "puppetry",
		Subsystem: "executor",
		Name:      "action_duration_seconds",
		Help:      "Wall clock duration of individual actions.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
)

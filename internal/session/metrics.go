// File: internal/session/metrics.go
package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "puppetry",
		Subsystem: "sessions",
		Name:      "opened_total",
		Help:      "Number of browser sessions opened since process start.",
	})
	metricSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "puppetry",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Number of browser sessions currently live.",
	})
	metricSessionsIdleClosed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "puppetry",
		Subsystem: "sessions",
		Name:      "idle_closed_total",
		Help:      "Number of sessions closed by the idle sweep.",
	})
)

// File: internal/server/metrics.go
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "puppetry",
		Subsystem: "server",
		Name:      "tool_calls_total",
		Help:      "MCP tool calls by tool name and outcome.",
	}, []string{"tool", "outcome"})
	metricHTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "puppetry",
		Subsystem: "server",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status code.",
	}, []string{"route", "code"})
)

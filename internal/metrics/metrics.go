// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AuthRequests counts signup/login/logout attempts by outcome.
	AuthRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duo_auth_requests_total",
		Help: "Auth endpoint calls by operation and result.",
	}, []string{"op", "result"})

	// SessionResolutions counts bearer token lookups by outcome
	// (ok, missing, expired, unknown, error).
	SessionResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duo_session_resolutions_total",
		Help: "Bearer token resolutions by result.",
	}, []string{"result"})

	// PresenceWrites counts committed status, presence and typing writes.
	PresenceWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duo_presence_writes_total",
		Help: "Presence related writes by kind.",
	}, []string{"kind"})

	// HTTPDuration observes handler latency keyed by route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "duo_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "golfkit",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by method, path, and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "golfkit",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "golfkit",
		Name:      "webhook_events_total",
		Help:      "Billing webhook events by type and outcome (processed, duplicate, ignored, error).",
	}, []string{"event_type", "outcome"})

	InsightsTriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "golfkit",
		Name:      "insights_triggers_total",
		Help:      "Post-purchase insights triggers by outcome (ok, error).",
	}, []string{"outcome"})
)

// Handler returns an http.Handler that serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package metrics exposes prometheus counters for auth outcomes and HTTP responses.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry        *prometheus.Registry
	authEvents      *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
}

// NewCollector registers the videotube metrics on a fresh registry, together
// with the standard go and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "videotube_auth_events_total",
			Help: "Auth operations by event and outcome.",
		}, []string{"event", "outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "videotube_http_responses_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "videotube_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.authEvents,
		c.httpStatus,
		c.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

func (c *Collector) RecordAuthEvent(event, outcome string) {
	c.authEvents.WithLabelValues(event, outcome).Inc()
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) ObserveRequestDuration(d time.Duration) {
	c.requestDuration.Observe(d.Seconds())
}

// TrackSessionSockets exports count as the number of open session sockets.
// Call it once per collector.
func (c *Collector) TrackSessionSockets(count func() int) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "videotube_session_sockets",
		Help: "Open session event websocket connections.",
	}, func() float64 { return float64(count()) }))
}

func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// Handler serves the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

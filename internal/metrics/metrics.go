// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records HTTP traffic, credential resolution outcomes, memo
// commands and event publishing.
type Collector struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	credentials *prometheus.CounterVec
	commands    *prometheus.CounterVec
	events      *prometheus.CounterVec
}

// NewCollector creates the collectors and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memos_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memos_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		credentials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memos_credential_resolutions_total",
			Help: "Credential resolutions by outcome (session, token, anonymous, expired, invalid).",
		}, []string{"outcome"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memos_memo_commands_total",
			Help: "Memo mutations by command and result.",
		}, []string{"command", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memos_events_published_total",
			Help: "Memo events handed to the broker, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(c.requests, c.latency, c.credentials, c.commands, c.events)
	return c
}

// RecordRequest counts one finished HTTP request.
func (c *Collector) RecordRequest(method, route string, status int, d time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveCredential counts one credential resolution.
func (c *Collector) ObserveCredential(outcome string) {
	c.credentials.WithLabelValues(outcome).Inc()
}

// RecordCommand counts one memo mutation.  result is "ok" or the error
// kind.
func (c *Collector) RecordCommand(command, result string) {
	c.commands.WithLabelValues(command, result).Inc()
}

// RecordPublish counts one event publish attempt.
func (c *Collector) RecordPublish(err error) {
	if err != nil {
		c.events.WithLabelValues("error").Inc()
		return
	}
	c.events.WithLabelValues("ok").Inc()
}

// Handler exposes gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Package metrics exposes the service's prometheus collectors on a private
// registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bioneuro"

// Collector methods are safe on a nil receiver so components can run
// without metrics.
type Collector struct {
	registry *prometheus.Registry

	Classifications     *prometheus.CounterVec
	ChatReplies         *prometheus.CounterVec
	ChatDuration        *prometheus.HistogramVec
	ActiveSessions      prometheus.Gauge
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decoder_classifications_total",
			Help:      "Decoder readings by matched rule",
		}, []string{"rule"}),
		ChatReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_replies_total",
			Help:      "Chat replies by provider and outcome",
		}, []string{"provider", "outcome"}),
		ChatDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_reply_duration_seconds",
			Help:      "Time to settle a chat turn",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_visitors",
			Help:      "Visitors with live widget state",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	reg.MustRegister(
		c.Classifications,
		c.ChatReplies,
		c.ChatDuration,
		c.ActiveSessions,
		c.HTTPRequestsTotal,
		c.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveClassification(rule string) {
	if c == nil {
		return
	}
	c.Classifications.WithLabelValues(rule).Inc()
}

func (c *Collector) ObserveChat(provider, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.ChatReplies.WithLabelValues(provider, outcome).Inc()
	c.ChatDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (c *Collector) SetActiveSessions(count int) {
	if c == nil {
		return
	}
	c.ActiveSessions.Set(float64(count))
}

func (c *Collector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

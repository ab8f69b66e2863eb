// Package metrics exposes crawl progress as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campuscrawl"

// Duplicate kinds.
const (
	DuplicateLink = "link"
	DuplicatePage = "page"
)

// Metrics holds the crawler's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	pagesFetched   *prometheus.CounterVec
	bytesFetched   prometheus.Counter
	fetchDuration  prometheus.Histogram
	duplicates     *prometheus.CounterVec
	urlsEnqueued   prometheus.Counter
	malformedURLs  prometheus.Counter
	frontierQueued prometheus.Gauge
	busyWorkers    prometheus.Gauge
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages fetched, by HTTP status (0 for transport errors).",
		}, []string{"status"}),
		bytesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_fetched_total",
			Help:      "Response body bytes downloaded.",
		}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent downloading a page, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Links and pages rejected as duplicates.",
		}, []string{"kind"}),
		urlsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urls_enqueued_total",
			Help:      "New URLs added to the frontier.",
		}),
		malformedURLs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_urls_total",
			Help:      "Links dropped because they could not be parsed.",
		}),
		frontierQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_pending_urls",
			Help:      "URLs waiting in the frontier.",
		}),
		busyWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "busy_workers",
			Help:      "Workers currently owning a domain.",
		}),
	}

	reg.MustRegister(
		m.pagesFetched,
		m.bytesFetched,
		m.fetchDuration,
		m.duplicates,
		m.urlsEnqueued,
		m.malformedURLs,
		m.frontierQueued,
		m.busyWorkers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PageFetched records one download.
func (m *Metrics) PageFetched(status, bytes int, seconds float64) {
	if m == nil {
		return
	}
	m.pagesFetched.WithLabelValues(strconv.Itoa(status)).Inc()
	m.bytesFetched.Add(float64(bytes))
	m.fetchDuration.Observe(seconds)
}

// Duplicate records a rejected link or page.
func (m *Metrics) Duplicate(kind string) {
	if m == nil {
		return
	}
	m.duplicates.WithLabelValues(kind).Inc()
}

// URLEnqueued records a URL newly added to the frontier.
func (m *Metrics) URLEnqueued() {
	if m == nil {
		return
	}
	m.urlsEnqueued.Inc()
}

// MalformedURL records a dropped unparsable link.
func (m *Metrics) MalformedURL() {
	if m == nil {
		return
	}
	m.malformedURLs.Inc()
}

// SetFrontier records the frontier's current size and busy worker count.
func (m *Metrics) SetFrontier(pending, busy int) {
	if m == nil {
		return
	}
	m.frontierQueued.Set(float64(pending))
	m.busyWorkers.Set(float64(busy))
}

// Package metrics exposes Prometheus counters for the note service and a
// request duration histogram for the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cryptnote"

// Fetch outcomes
const (
	OutcomeOK         = "ok"
	OutcomeInvalidID  = "invalid_id"
	OutcomeNotFound   = "not_found"
	OutcomeExpired    = "expired"
	OutcomeCorrupted  = "corrupted"
	OutcomeStorageErr = "storage_error"
)

// Metrics owns a private registry. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	notesCreated          prometheus.Counter
	fetches               *prometheus.CounterVec
	expiredDeleted        prometheus.Counter
	expiredDeleteFailures prometheus.Counter
	idCollisions          prometheus.Counter
	requestDuration       *prometheus.HistogramVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		notesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_created_total",
			Help:      "Notes committed to storage.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "note_fetches_total",
			Help:      "Note fetches by outcome.",
		}, []string{"outcome"}),
		expiredDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_notes_deleted_total",
			Help:      "Expired notes removed on first access after expiry.",
		}),
		expiredDeleteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_note_delete_failures_total",
			Help:      "Failed deletions of expired notes.",
		}),
		idCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "note_id_collisions_total",
			Help:      "Generated note ids that were already taken.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.notesCreated,
		m.fetches,
		m.expiredDeleted,
		m.expiredDeleteFailures,
		m.idCollisions,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) NoteCreated() {
	if m != nil {
		m.notesCreated.Inc()
	}
}

func (m *Metrics) Fetch(outcome string) {
	if m != nil {
		m.fetches.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ExpiredDeleted() {
	if m != nil {
		m.expiredDeleted.Inc()
	}
}

func (m *Metrics) ExpiredDeleteFailed() {
	if m != nil {
		m.expiredDeleteFailures.Inc()
	}
}

func (m *Metrics) IDCollision() {
	if m != nil {
		m.idCollisions.Inc()
	}
}

// Middleware records the duration of every request by matched route.
// Unmatched paths share one label to keep cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

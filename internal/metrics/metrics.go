// Package metrics exposes the service counters through prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-accounts/accounts"
	"github.com/goliatone/go-accounts/search"
)

// Registry owns a private prometheus registry and every collector the
// service reports.
type Registry struct {
	reg *prometheus.Registry

	created     prometheus.Counter
	retrieved   prometheus.Counter
	updated     prometheus.Counter
	deleted     prometheus.Counter
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	notFound    prometheus.Counter

	indexFailures *prometheus.CounterVec
	indexDropped  prometheus.Counter
	httpErrors    *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

var _ accounts.Metrics = (*Registry)(nil)

// New registers the collectors, including the Go runtime and process
// collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		reg.MustRegister(c)
		return c
	}

	r := &Registry{
		reg:         reg,
		created:     counter("accounts_created_total", "Accounts created."),
		retrieved:   counter("accounts_retrieved_total", "Accounts read successfully."),
		updated:     counter("accounts_updated_total", "Accounts updated."),
		deleted:     counter("accounts_deleted_total", "Accounts deleted."),
		cacheHits:   counter("account_cache_hits_total", "Account reads served from the cache."),
		cacheMisses: counter("account_cache_misses_total", "Account reads that went to the store."),
		notFound:    counter("accounts_not_found_total", "Operations on accounts that do not exist."),
		indexFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_index_failures_total",
			Help: "Search index operations that failed.",
		}, []string{"op"}),
		indexDropped: counter("search_index_dropped_total", "Index updates dropped because the queue was full or closed."),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by kind.",
		}, []string{"kind"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	reg.MustRegister(
		r.indexFailures,
		r.httpErrors,
		r.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Registry) AccountCreated()   { r.created.Inc() }
func (r *Registry) AccountRetrieved() { r.retrieved.Inc() }
func (r *Registry) AccountUpdated()   { r.updated.Inc() }
func (r *Registry) AccountDeleted()   { r.deleted.Inc() }
func (r *Registry) CacheHit()         { r.cacheHits.Inc() }
func (r *Registry) CacheMiss()        { r.cacheMisses.Inc() }
func (r *Registry) AccountNotFound()  { r.notFound.Inc() }

func (r *Registry) IndexFailure(op string) { r.indexFailures.WithLabelValues(op).Inc() }

// IndexDropped counts a dropped index update.
func (r *Registry) IndexDropped(op string) { r.indexDropped.Inc() }

// IndexerHooks wires the indexer notifications into the registry.
func (r *Registry) IndexerHooks() search.IndexerHooks {
	return search.IndexerHooks{
		OnFailure: r.IndexFailure,
		OnDropped: r.IndexDropped,
	}
}

// HTTPError counts an error response of the given kind, e.g. "not_found".
func (r *Registry) HTTPError(kind string) { r.httpErrors.WithLabelValues(kind).Inc() }

// ObserveRequest records the latency of one request.
func (r *Registry) ObserveRequest(route, method string, status int, d time.Duration) {
	r.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// RegisterAccountsGauge exports accounts_total, evaluated on every scrape.
func (r *Registry) RegisterAccountsGauge(count func() float64) error {
	return r.reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "accounts_total",
		Help: "Accounts in the store.",
	}, count))
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

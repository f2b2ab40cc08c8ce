// Package metrics exports Prometheus metrics for the movies service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.cscs.ch/openchami/chamicore-movies/internal/store"
)

const namespace = "chamicore_movies"

// Observer implements store.Observer and HTTP request instrumentation on a
// dedicated registry.
type Observer struct {
	registry *prometheus.Registry

	storeOps      *prometheus.CounterVec
	storeLatency  *prometheus.HistogramVec
	storeRecords  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpLatencies *prometheus.HistogramVec
}

var _ store.Observer = (*Observer)(nil)

// NewObserver creates an Observer and registers its collectors, together
// with the Go runtime and process collectors, on a fresh registry.
func NewObserver() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Latency of store operations.",
			Buckets:   []float64{.000001, .000005, .00001, .00005, .0001, .0005, .001, .005, .01},
		}, []string{"op"}),
		storeRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "records",
			Help:      "Number of movies currently stored.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpLatencies: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	o.registry.MustRegister(
		o.storeOps,
		o.storeLatency,
		o.storeRecords,
		o.httpRequests,
		o.httpLatencies,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return o
}

// OnOperation records one store operation.
func (o *Observer) OnOperation(op store.Op, outcome store.Outcome, d time.Duration) {
	o.storeOps.WithLabelValues(string(op), outcome.String()).Inc()
	o.storeLatency.WithLabelValues(string(op)).Observe(d.Seconds())
}

// OnSize records the current record count.
func (o *Observer) OnSize(records int) {
	o.storeRecords.Set(float64(records))
}

// Registry returns the registry backing this observer.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{Registry: o.registry})
}

// Middleware records request counts and latencies labelled by the matched
// chi route pattern, so path parameters do not inflate cardinality.
func (o *Observer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		o.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		o.httpLatencies.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Package metrics exposes the pipeline's ambient prometheus counters and
// histograms behind an optional HTTP listener (spec's DOMAIN STACK:
// intentionally small, proportional to a batch job rather than a
// long-lived service — no tracing, no OpenTelemetry).
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FilesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codegraph_files_processed_total",
		Help: "Total files successfully parsed and written to the graph.",
	})

	EntitiesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codegraph_entities_created_total",
		Help: "Total graph entities created, by kind.",
	}, []string{"kind"})

	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codegraph_parse_duration_seconds",
		Help:    "Per-file parse duration.",
		Buckets: prometheus.DefBuckets,
	})

	ResolveScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codegraph_resolve_score_histogram",
		Help:    "Confidence score assigned to each resolved placeholder.",
		Buckets: []float64{0.0, 0.5, 0.7, 0.8, 0.9, 1.0},
	})
)

// Server serves /metrics on listenAddr until the returned shutdown func is
// called. A blank listenAddr means metrics are disabled entirely.
func Server(listenAddr string) (shutdown func(context.Context) error, err error) {
	if listenAddr == "" {
		return func(context.Context) error { return nil }, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: listenAddr, Handler: mux}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv.Shutdown, nil
}

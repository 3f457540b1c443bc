package utils

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector carries the analyzer's prometheus instruments on a private
// registry so the /metrics endpoint exposes only what this tool produces.
type MetricsCollector struct {
	registry *prometheus.Registry

	PagesAnalyzed     *prometheus.CounterVec
	FetchFailures     prometheus.Counter
	FetchDuration     prometheus.Histogram
	Detections        *prometheus.CounterVec
	BatchesSummarized prometheus.Counter
}

func NewMetricsCollector(enableRuntimeMetrics bool) *MetricsCollector {
	reg := prometheus.NewRegistry()

	if enableRuntimeMetrics {
		_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		_ = reg.Register(collectors.NewGoCollector())
	}

	m := &MetricsCollector{
		registry: reg,
		PagesAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stacklynx_pages_analyzed_total",
			Help: "Pages analyzed, partitioned by outcome (ok, degraded, dropped).",
		}, []string{"outcome"}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stacklynx_fetch_failures_total",
			Help: "Page fetches that failed and produced degraded records.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stacklynx_fetch_duration_seconds",
			Help:    "Wall time of page fetches including well-known probes.",
			Buckets: prometheus.DefBuckets,
		}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stacklynx_detections_total",
			Help: "Technologies detected, partitioned by category.",
		}, []string{"category"}),
		BatchesSummarized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stacklynx_batches_summarized_total",
			Help: "Batch aggregations performed.",
		}),
	}

	reg.MustRegister(m.PagesAnalyzed, m.FetchFailures, m.FetchDuration, m.Detections, m.BatchesSummarized)
	return m
}

func (m *MetricsCollector) ObserveFetch(d time.Duration) {
	m.FetchDuration.Observe(d.Seconds())
}

func (m *MetricsCollector) Registry() *prometheus.Registry { return m.registry }

// StartServer serves /metrics until the context is cancelled.
func (m *MetricsCollector) StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

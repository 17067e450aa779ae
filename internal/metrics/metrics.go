// Package metrics exposes Prometheus metrics for index builds.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/exfor-index/pkg/types"
)

const (
	namespace = "x4index"
	subsystem = "build"
)

// BuildMetrics records the progress of index builds.
// A nil *BuildMetrics is valid and records nothing.
type BuildMetrics struct {
	registry *prometheus.Registry

	chunksTotal     prometheus.Gauge
	chunksCompleted prometheus.Counter
	filesProcessed  prometheus.Counter
	filesFailed     *prometheus.CounterVec
	rowsEmitted     prometheus.Counter
	buildDuration   prometheus.Histogram
}

// New creates BuildMetrics registered on a registry of its own
func New() *BuildMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &BuildMetrics{
		registry: reg,

		chunksTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chunks",
			Help:      "Number of chunks in the current build",
		}),
		chunksCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chunks_completed_total",
			Help:      "Chunks processed by the worker pool",
		}),
		filesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "files_processed_total",
			Help:      "Entry files processed successfully",
		}),
		// Labels: kind (error kind of the failing entry)
		filesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "files_failed_total",
			Help:      "Entry files that failed, by error kind",
		}, []string{"kind"}),
		rowsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rows_emitted_total",
			Help:      "Index rows produced by the worker pool",
		}),
		buildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Wall time of completed builds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		}),
	}
}

// Registry returns the registry the metrics are registered on
func (m *BuildMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SetChunksTotal records the chunk count of a starting build
func (m *BuildMetrics) SetChunksTotal(n int) {
	if m == nil {
		return
	}
	m.chunksTotal.Set(float64(n))
}

// ChunkCompleted records one finished chunk
func (m *BuildMetrics) ChunkCompleted() {
	if m == nil {
		return
	}
	m.chunksCompleted.Inc()
}

// FileProcessed records one entry file and the rows it produced
func (m *BuildMetrics) FileProcessed(rows int) {
	if m == nil {
		return
	}
	m.filesProcessed.Inc()
	m.rowsEmitted.Add(float64(rows))
}

// FileFailed records one failed entry file
func (m *BuildMetrics) FileFailed(kind types.ErrorKind) {
	if m == nil {
		return
	}
	m.filesFailed.WithLabelValues(string(kind)).Inc()
}

// ObserveBuild records the duration of a completed build
func (m *BuildMetrics) ObserveBuild(d time.Duration) {
	if m == nil {
		return
	}
	m.buildDuration.Observe(d.Seconds())
}

// Serve exposes the metrics on addr at /metrics until ctx is done
func (m *BuildMetrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

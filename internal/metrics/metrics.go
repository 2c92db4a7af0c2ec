package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

const namespace = "docchunk"

// Metrics records chunking task activity. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	tasksSubmitted  prometheus.Counter
	tasksFinished   *prometheus.CounterVec
	segmentsWritten prometheus.Counter
	taskDuration    prometheus.Histogram
	tasksRunning    prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_submitted_total",
			Help:      "Chunking tasks accepted for processing.",
		}),
		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Chunking tasks that reached a terminal status.",
		}, []string{"status"}),
		segmentsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_written_total",
			Help:      "Segments persisted by chunking tasks.",
		}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time from task start to terminal status.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_running",
			Help:      "Chunking tasks currently processing.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.tasksSubmitted, m.tasksFinished, m.segmentsWritten, m.taskDuration, m.tasksRunning,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

// NewRegistry returns a registry with Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// TaskStarted records a submitted task entering processing
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksSubmitted.Inc()
	m.tasksRunning.Inc()
}

// TaskFinished records a task reaching status after elapsed
func (m *Metrics) TaskFinished(status types.TaskStatus, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.tasksRunning.Dec()
	m.tasksFinished.WithLabelValues(status.String()).Inc()
	m.taskDuration.Observe(elapsed.Seconds())
}

// SegmentsWritten adds n persisted segments
func (m *Metrics) SegmentsWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.segmentsWritten.Add(float64(n))
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

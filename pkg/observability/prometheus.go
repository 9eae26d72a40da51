package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusHooks implements every hook interface on top of a private
// Prometheus registry. Use [PrometheusHooks.WriteTextfile] to dump the
// collected metrics in the node_exporter textfile format.
type PrometheusHooks struct {
	registry *prometheus.Registry

	scans         *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	filesAnalyzed *prometheus.CounterVec
	fileDuration  prometheus.Histogram
	cacheOps      *prometheus.CounterVec
	cacheBytes    prometheus.Counter
	fixRuns       *prometheus.CounterVec
	fixFiles      *prometheus.CounterVec
}

// NewPrometheusHooks creates hooks backed by a fresh registry.
// Each call creates an independent registry to avoid collector conflicts.
func NewPrometheusHooks() *PrometheusHooks {
	h := &PrometheusHooks{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "depclean_scans_total",
			Help: "Completed scans by outcome.",
		}, []string{"outcome"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "depclean_scan_duration_seconds",
			Help:    "Wall time of a full scan.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		filesAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "depclean_files_analyzed_total",
			Help: "Source files parsed, by outcome.",
		}, []string{"outcome"}),
		fileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "depclean_file_analysis_seconds",
			Help:    "Time spent parsing and resolving a single file.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "depclean_cache_operations_total",
			Help: "Cache lookups and writes by key type and result.",
		}, []string{"key_type", "result"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "depclean_cache_written_bytes_total",
			Help: "Bytes written to the cache backend.",
		}),
		fixRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "depclean_fix_runs_total",
			Help: "Fix invocations by mode.",
		}, []string{"mode"}),
		fixFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "depclean_fix_files_total",
			Help: "Fix targets by final status.",
		}, []string{"status"}),
	}
	h.registry.MustRegister(
		h.scans, h.scanDuration,
		h.filesAnalyzed, h.fileDuration,
		h.cacheOps, h.cacheBytes,
		h.fixRuns, h.fixFiles,
	)
	return h
}

// Registry exposes the underlying registry, e.g. for tests.
func (h *PrometheusHooks) Registry() *prometheus.Registry { return h.registry }

// Register installs h as the scan, cache and fix hooks.
func (h *PrometheusHooks) Register() {
	SetScanHooks(h)
	SetCacheHooks(h)
	SetFixHooks(h)
}

// WriteTextfile writes all metrics to path atomically.
func (h *PrometheusHooks) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, h.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func (h *PrometheusHooks) OnScanStart(context.Context, string, int) {}

func (h *PrometheusHooks) OnFileAnalyzed(_ context.Context, _ string, d time.Duration, err error) {
	h.filesAnalyzed.WithLabelValues(outcome(err)).Inc()
	h.fileDuration.Observe(d.Seconds())
}

func (h *PrometheusHooks) OnScanComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	h.scans.WithLabelValues(outcome(err)).Inc()
	h.scanDuration.Observe(d.Seconds())
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheOps.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.Add(float64(size))
}

func (h *PrometheusHooks) OnFixStart(_ context.Context, dryRun bool, _ int) {
	mode := "apply"
	if dryRun {
		mode = "dry_run"
	}
	h.fixRuns.WithLabelValues(mode).Inc()
}

func (h *PrometheusHooks) OnFileFixed(_ context.Context, _ string, status string) {
	h.fixFiles.WithLabelValues(status).Inc()
}

func (h *PrometheusHooks) OnFixComplete(context.Context, int, int, time.Duration) {}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	_ ScanHooks  = (*PrometheusHooks)(nil)
	_ CacheHooks = (*PrometheusHooks)(nil)
	_ FixHooks   = (*PrometheusHooks)(nil)
)

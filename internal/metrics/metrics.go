// Package metrics owns the Prometheus registry of webbundle: directory
// collection, remote source loads, the preview server and build metadata.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MShaffar19/webbundle/internal/version"
)

const namespace = "webbundle"

type Metrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	// directory collection
	filesCollected    prometheus.Counter
	bytesCollected    prometheus.Counter
	symlinksSkipped   prometheus.Counter
	collectErrors     *prometheus.CounterVec
	traversalDuration prometheus.Histogram
	bundleInfo        *prometheus.GaugeVec
	bundleExchanges   prometheus.Gauge
	bundleBytes       prometheus.Gauge

	// remote source
	sourceLoadDuration prometheus.Histogram
	sourceErrors       *prometheus.CounterVec
	sourceArchive      *prometheus.GaugeVec
	sourceLoadedAt     prometheus.Gauge

	// preview server
	inflight       prometheus.Gauge
	reqTotal       *prometheus.CounterVec
	reqDur         *prometheus.HistogramVec
	respBytes      *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec
	httpPanicTotal prometheus.Counter
	rateLimited    prometheus.Counter
	rateLimitFull  prometheus.Counter

	buildInfo       *prometheus.GaugeVec
	profilingActive prometheus.Gauge
}

// New builds a private registry with the Go and process collectors plus
// every webbundle metric. HTTP labels are limited to method, route pattern
// and status.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		filesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collected_files_total",
			Help:      "Regular files turned into exchanges",
		}),
		bytesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collected_bytes_total",
			Help:      "Response body bytes read while collecting",
		}),
		symlinksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "symlinks_skipped_total",
			Help:      "Symbolic links skipped during traversal",
		}),
		collectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collect_errors_total",
			Help:      "Failed traversals by error type",
		}, []string{"type"}),
		traversalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "traversal_duration_seconds",
			Help:      "Time to walk a directory and read every file",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 2.5, 10, 30},
		}),
		bundleInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bundle_info",
			Help:      "Current bundle (labels carry identity, value is always 1)",
		}, []string{"version", "primary_url"}),
		bundleExchanges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bundle_exchanges",
			Help:      "Number of exchanges in the current bundle",
		}),
		bundleBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bundle_bytes",
			Help:      "Total response body bytes in the current bundle",
		}),
		sourceLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_load_duration_seconds",
			Help:      "Time to resolve, download, verify and extract a content archive",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Remote source failures by stage",
		}, []string{"stage"}),
		sourceArchive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_archive_info",
			Help:      "Loaded content archive (label carries digest, value is always 1)",
		}, []string{"sha256"}),
		sourceLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_loaded_timestamp_seconds",
			Help:      "Unix time the content archive was loaded",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216},
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx responses by method and route",
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total recovered handler panics",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by the rate limiter",
		}),
		rateLimitFull: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total times the rate limiter client table was full",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "build_date", "vcs_dirty", "go_version"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or not (0)",
		}),
	}
	reg.MustRegister(
		m.filesCollected,
		m.bytesCollected,
		m.symlinksSkipped,
		m.collectErrors,
		m.traversalDuration,
		m.bundleInfo,
		m.bundleExchanges,
		m.bundleBytes,
		m.sourceLoadDuration,
		m.sourceErrors,
		m.sourceArchive,
		m.sourceLoadedAt,
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.httpPanicTotal,
		m.rateLimited,
		m.rateLimitFull,
		m.buildInfo,
		m.profilingActive,
	)

	m.reg = reg
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return m
}

func (m *Metrics) Handler() http.Handler { return m.handler }

// collection, satisfies bundle.CollectorMetrics

func (m *Metrics) IncCollectedFile(bytes int) {
	m.filesCollected.Inc()
	m.bytesCollected.Add(float64(bytes))
}

func (m *Metrics) IncSymlinkSkipped() { m.symlinksSkipped.Inc() }

func (m *Metrics) IncCollectError(errType string) {
	m.collectErrors.WithLabelValues(errType).Inc()
}

func (m *Metrics) ObserveTraversalDuration(seconds float64) {
	m.traversalDuration.Observe(seconds)
}

// SetBundle replaces the current bundle identity.
func (m *Metrics) SetBundle(version, primaryURL string, exchanges int, bytes int64) {
	m.bundleInfo.Reset()
	m.bundleInfo.WithLabelValues(version, primaryURL).Set(1)
	m.bundleExchanges.Set(float64(exchanges))
	m.bundleBytes.Set(float64(bytes))
}

// remote source, satisfies source.Metrics

func (m *Metrics) ObserveSourceLoad(seconds float64) { m.sourceLoadDuration.Observe(seconds) }

func (m *Metrics) IncSourceError(stage string) {
	m.sourceErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) SetSourceArchive(sha256 string, loadedAt time.Time) {
	m.sourceArchive.Reset()
	m.sourceArchive.WithLabelValues(sha256).Set(1)
	m.sourceLoadedAt.Set(float64(loadedAt.Unix()))
}

// http

func (m *Metrics) IncHTTPPanic() { m.httpPanicTotal.Inc() }

func (m *Metrics) IncRateLimitDenied() { m.rateLimited.Inc() }

func (m *Metrics) IncRateLimitCapacity() { m.rateLimitFull.Inc() }

// SetBuildInfo is called once at startup.
func (m *Metrics) SetBuildInfo(component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":        version.AppName,
		"component":  component,
		"version":    vi.Version,
		"commit":     vi.Commit,
		"build_date": vi.BuildDate,
		"vcs_dirty":  dirty,
		"go_version": vi.GoVersion,
	}).Set(1)
}

func (m *Metrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}

package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentsystems/notary-bundler/internal/version"
)

// ReqDBStatsFromContextFunc is injected at wiring-time in main() so the metrics package doesn't need to import postgres.
type ReqDBStatsFromContextFunc func(ctx context.Context) (count int64, errs int64, total time.Duration, ok bool)

type ServerMetrics struct {
	reg                  *prometheus.Registry
	handler              http.Handler
	inflight             prometheus.Gauge
	reqTotal             *prometheus.CounterVec
	reqDur               *prometheus.HistogramVec
	respBytes            *prometheus.HistogramVec
	errorsTotal          *prometheus.CounterVec
	httpPanicTotal       prometheus.Counter
	buildInfo            *prometheus.GaugeVec
	ratelimitDeniedTotal prometheus.Counter
	profilingActive      prometheus.Gauge

	decodeOutcomeTotal   *prometheus.CounterVec
	verifyOutcomeTotal   *prometheus.CounterVec
	validateOutcomeTotal *prometheus.CounterVec
	bundleItemsCount     prometheus.Histogram
	bundleSizeBytes      prometheus.Histogram
	bundleAssembleTotal  *prometheus.CounterVec
	deadLetterWritten    prometheus.Counter

	reqDBStats ReqDBStatsFromContextFunc
}

// New returns a fresh registry + standard collectors + HTTP metrics
// safe labels only (method, route, code) to avoid path/cardinality explosions
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
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
			Buckets: prometheus.ExponentialBuckets(200, 4, 10),
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total HTTP requests that completed with a 5xx status",
		}, []string{}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "1 if pprof profiling endpoints are mounted on the admin server, else 0",
		}),
		decodeOutcomeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dataitem_decode_total",
			Help: "Total DataItem decode attempts by outcome",
		}, []string{"outcome"}),
		verifyOutcomeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dataitem_verify_total",
			Help: "Total DataItem signature verification attempts by outcome",
		}, []string{"outcome"}),
		validateOutcomeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dataitem_validate_total",
			Help: "Total DataItem schema validation attempts by outcome",
		}, []string{"outcome"}),
		bundleItemsCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bundle_items_count",
			Help:    "Number of DataItems per assembled bundle",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		bundleSizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bundle_size_bytes",
			Help:    "Size in bytes of assembled bundles",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 16),
		}),
		bundleAssembleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bundle_assemble_total",
			Help: "Total bundle assemble/submit attempts by outcome",
		}, []string{"outcome"}),
		deadLetterWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dead_letter_batches_written_total",
			Help: "Total batches archived to the dead-letter bucket after failing to submit",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.httpPanicTotal,
		m.buildInfo,
		m.ratelimitDeniedTotal,
		m.profilingActive,
		m.decodeOutcomeTotal,
		m.verifyOutcomeTotal,
		m.validateOutcomeTotal,
		m.bundleItemsCount,
		m.bundleSizeBytes,
		m.bundleAssembleTotal,
		m.deadLetterWritten,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) IncHttpPanic() {
	m.httpPanicTotal.Inc()
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// set once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         app,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildId,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDeniedTotal.Inc()
}

// SetProfilingActive reflects whether pprof is mounted on the admin server.
func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
		return
	}
	m.profilingActive.Set(0)
}

// IncDecodeOutcome records the result of parsing the ANS-104 binary header
// of a submitted DataItem: "ok", the notaryerr kind name of the failure
// (e.g. "DecodeError", "UnsupportedSignatureType"), or "internal" for an
// error that carries no kind.
func (m *ServerMetrics) IncDecodeOutcome(outcome string) {
	m.decodeOutcomeTotal.WithLabelValues(outcome).Inc()
}

// IncVerifyOutcome records the result of the owner-modulus RSA-PSS
// signature check over a decoded DataItem's deep hash ("ok", or a kind
// name such as "SignatureInvalid").
func (m *ServerMetrics) IncVerifyOutcome(outcome string) {
	m.verifyOutcomeTotal.WithLabelValues(outcome).Inc()
}

// IncValidateOutcome records the result of the 9-tag/body schema check
// ("ok", or a kind name such as "SchemaViolation" or "SizeExceeded"; the
// specific rule is not part of the label).
func (m *ServerMetrics) IncValidateOutcome(outcome string) {
	m.validateOutcomeTotal.WithLabelValues(outcome).Inc()
}

// ObserveBundleAssembled records the item count and byte size of a
// successfully assembled bundle.
func (m *ServerMetrics) ObserveBundleAssembled(itemCount int, sizeBytes int) {
	m.bundleItemsCount.Observe(float64(itemCount))
	m.bundleSizeBytes.Observe(float64(sizeBytes))
}

// IncBundleAssemble records a bundle assemble/submit attempt by outcome
// ("ok", "submit_failed", ...).
func (m *ServerMetrics) IncBundleAssemble(outcome string) {
	m.bundleAssembleTotal.WithLabelValues(outcome).Inc()
}

// IncDeadLetterWritten records a batch archived to the dead-letter bucket
// after it failed to submit.
func (m *ServerMetrics) IncDeadLetterWritten() {
	m.deadLetterWritten.Inc()
}

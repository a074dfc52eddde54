package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mgmtd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mgmtd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "route", "status"},
	)
	mbeanCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mgmtd",
			Subsystem: "admin",
			Name:      "mbean_calls_total",
			Help:      "Managed-object calls through the admin API.",
		},
		[]string{"service", "call", "member", "status"},
	)
	bringUpCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mgmtd",
			Subsystem: "bringup",
			Name:      "cycles_total",
			Help:      "Management bring-up cycles by outcome.",
		},
		[]string{"outcome"},
	)
	bringUpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mgmtd",
			Subsystem: "bringup",
			Name:      "duration_seconds",
			Help:      "Management bring-up cycle duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	loaderRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mgmtd",
			Subsystem: "loader",
			Name:      "runs_total",
			Help:      "Loader executions by loader and outcome.",
		},
		[]string{"loader", "op", "outcome"},
	)
	loaderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mgmtd",
			Subsystem: "loader",
			Name:      "duration_seconds",
			Help:      "Loader load duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"loader", "outcome"},
	)
	featurePublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mgmtd",
			Subsystem: "feature",
			Name:      "published_total",
			Help:      "Readiness feature publications.",
		},
		[]string{"feature"},
	)
	startupPhase = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mgmtd",
			Subsystem: "startup",
			Name:      "phase",
			Help:      "1 for the current startup phase, 0 otherwise.",
		},
		[]string{"phase"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			mbeanCalls,
			bringUpCycles,
			bringUpDuration,
			loaderRuns,
			loaderDuration,
			featurePublished,
			startupPhase,
		)
	})
}

func RecordHTTPRequest(service, method, route string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, route, statusLabel).Observe(duration.Seconds())
}

func RecordMBeanCall(service, call, member string, status int) {
	RegisterMetrics()
	mbeanCalls.WithLabelValues(service, call, member, strconv.Itoa(status)).Inc()
}

func RecordBringUp(outcome string, duration time.Duration) {
	RegisterMetrics()
	bringUpCycles.WithLabelValues(outcome).Inc()
	bringUpDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func RecordLoaderLoad(loader string, success bool, duration time.Duration) {
	RegisterMetrics()
	outcome := outcomeLabel(success)
	loaderRuns.WithLabelValues(loader, "load", outcome).Inc()
	loaderDuration.WithLabelValues(loader, outcome).Observe(duration.Seconds())
}

func RecordLoaderUnload(loader string, success bool) {
	RegisterMetrics()
	loaderRuns.WithLabelValues(loader, "unload", outcomeLabel(success)).Inc()
}

func RecordFeaturePublished(feature string) {
	RegisterMetrics()
	featurePublished.WithLabelValues(feature).Inc()
}

// SetPhase marks current as the only active phase among all.
func SetPhase(current string, all []string) {
	RegisterMetrics()
	for _, phase := range all {
		v := 0.0
		if phase == current {
			v = 1
		}
		startupPhase.WithLabelValues(phase).Set(v)
	}
}

func outcomeLabel(success bool) string {
	if success {
		return "ok"
	}
	return "failed"
}

// Package metrics provides Prometheus metrics collection for envspec.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "envspec"

// Collector holds all Prometheus metrics for envspec.
// The Record* helpers are safe to call on a nil *Collector.
type Collector struct {
	// Loader metrics
	SpecsLoaded        *prometheus.CounterVec
	LoadErrors         *prometheus.CounterVec
	ValidationWarnings *prometheus.CounterVec
	SpecsSaved         prometheus.Counter

	// Export metrics
	Exports        *prometheus.CounterVec
	ExportDuration prometheus.Histogram

	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		SpecsLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "specs_loaded_total",
				Help:      "Total number of environment specs loaded",
			},
			[]string{"source"},
		),
		LoadErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "load_errors_total",
				Help:      "Total number of failed environment spec loads",
			},
			[]string{"kind"},
		),
		ValidationWarnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_warnings_total",
				Help:      "Total number of validation warnings emitted",
			},
			[]string{"kind"},
		),
		SpecsSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "specs_saved_total",
				Help:      "Total number of environment specs written to disk",
			},
		),
		Exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Total number of prefix exports",
			},
			[]string{"mode"},
		),
		ExportDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "export_duration_seconds",
				Help:      "Prefix export duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// RecordLoad counts a successful load from source ("file", "remote", "text").
func (c *Collector) RecordLoad(source string) {
	if c == nil {
		return
	}
	c.SpecsLoaded.WithLabelValues(source).Inc()
}

// RecordLoadError counts a failed load.
func (c *Collector) RecordLoadError(kind string) {
	if c == nil {
		return
	}
	c.LoadErrors.WithLabelValues(kind).Inc()
}

// RecordWarning counts a validation warning.
func (c *Collector) RecordWarning(kind string) {
	if c == nil {
		return
	}
	c.ValidationWarnings.WithLabelValues(kind).Inc()
}

// RecordSave counts a spec written to disk.
func (c *Collector) RecordSave() {
	if c == nil {
		return
	}
	c.SpecsSaved.Inc()
}

// RecordExport counts an export and observes its duration.
func (c *Collector) RecordExport(mode string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Exports.WithLabelValues(mode).Inc()
	c.ExportDuration.Observe(elapsed.Seconds())
}

// RecordConfigReload records the outcome of a config reload.
func (c *Collector) RecordConfigReload(err error, at time.Time) {
	if c == nil {
		return
	}
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}

// NormalizePath reduces label cardinality by truncating long paths.
func NormalizePath(path string) string {
	if len(path) > 50 {
		return path[:50] + "..."
	}
	return path
}

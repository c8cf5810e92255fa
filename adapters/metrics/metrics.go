// Package metrics provides Prometheus metrics collection for vizprops.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artpar/vizprops/core/errs"
)

const namespace = "vizprops"

// Collector holds all Prometheus metrics for vizprops.
type Collector struct {
	gatherer prometheus.Gatherer

	// Property metrics
	Assignments *prometheus.CounterVec

	// Registry metrics
	TypesRegistered prometheus.Gauge

	// Serialization metrics
	Serializations    *prometheus.CounterVec
	ObjectsSerialized prometheus.Counter

	// Definition reload metrics
	DefinitionReloads      prometheus.Counter
	DefinitionReloadErrors prometheus.Counter
	DefinitionLastReload   prometheus.Gauge

	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates a collector on its own registry, so several collectors can
// coexist in one process.
func New() *Collector {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates a new metrics collector registered with reg.
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		gatherer: reg,

		Assignments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assignments_total",
				Help:      "Property assignments by type, property and result",
			},
			[]string{"type", "property", "result"},
		),

		TypesRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "types_registered",
				Help:      "Number of types currently registered",
			},
		),

		Serializations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "serializations_total",
				Help:      "Documents serialized, by the type of the first root",
			},
			[]string{"type"},
		),
		ObjectsSerialized: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "objects_serialized_total",
				Help:      "Objects emitted in serialized documents",
			},
		),

		DefinitionReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "definition_reloads_total",
				Help:      "Total number of successful definition reloads",
			},
		),
		DefinitionReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "definition_reload_errors_total",
				Help:      "Total number of definition reload errors",
			},
		),
		DefinitionLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "definition_last_reload_timestamp",
				Help:      "Unix timestamp of last successful definition reload",
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of introspection requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
	}
}

// ObserveAssignment implements model.Observer.
func (c *Collector) ObserveAssignment(typeName, property string, err error) {
	c.Assignments.WithLabelValues(typeName, property, Result(err)).Inc()
}

// ObserveSerialization records one serialized document.
func (c *Collector) ObserveSerialization(rootType string, objects int) {
	c.Serializations.WithLabelValues(rootType).Inc()
	c.ObjectsSerialized.Add(float64(objects))
}

// ObserveReload records the outcome of a definitions reload.
func (c *Collector) ObserveReload(types int, err error) {
	if err != nil {
		c.DefinitionReloadErrors.Inc()
		return
	}
	c.DefinitionReloads.Inc()
	c.DefinitionLastReload.Set(float64(time.Now().Unix()))
	c.TypesRegistered.Set(float64(types))
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Result labels an assignment outcome by its error class.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	switch errs.Kind(err) {
	case errs.ErrTypeMismatch:
		return "type_mismatch"
	case errs.ErrShape:
		return "shape"
	case errs.ErrUnknownProperty:
		return "unknown_property"
	case errs.ErrReadonly:
		return "readonly"
	}
	return "error"
}

// NormalizeStatus buckets an HTTP status code, e.g. 404 -> "4xx".
func NormalizeStatus(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	}
	return "1xx"
}

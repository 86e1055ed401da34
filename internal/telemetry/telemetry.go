// Package telemetry exposes Prometheus collectors for daylight runs.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChicagoDave/daylight/pkg/summary"
)

// Metrics holds the run collectors on a private registry, so several
// instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	gridsTotal    *prometheus.CounterVec
	gridDuration  prometheus.Histogram
	runDuration   prometheus.Histogram
	buildingPass  prometheus.Gauge
	roomsAnalysed prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gridsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daylight_grids_total",
			Help: "Grids evaluated, by outcome (ok, insufficient, failed).",
		}, []string{"status"}),
		gridDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "daylight_grid_compute_seconds",
			Help:    "Time spent computing the metrics of one grid.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "daylight_run_duration_seconds",
			Help:    "Wall time of a complete run, from validation to artifact write.",
			Buckets: prometheus.DefBuckets,
		}),
		buildingPass: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "daylight_building_pass",
			Help: "1 when the last run passed every room, 0 otherwise.",
		}),
		roomsAnalysed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "daylight_rooms_analysed",
			Help: "Rooms in the last summary.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daylight_http_requests_total",
			Help: "HTTP requests served, by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "daylight_http_request_duration_seconds",
			Help:    "HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.gridsTotal,
		m.gridDuration,
		m.runDuration,
		m.buildingPass,
		m.roomsAnalysed,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// ObserveGrid records one evaluated grid.
func (m *Metrics) ObserveGrid(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.gridsTotal.WithLabelValues(status).Inc()
	m.gridDuration.Observe(elapsed.Seconds())
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(s *summary.Summary, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(elapsed.Seconds())
	m.SetSummary(s)
}

// SetSummary updates the gauges from a summary without counting a run.
func (m *Metrics) SetSummary(s *summary.Summary) {
	if m == nil || s == nil {
		return
	}
	pass := 0.0
	if s.BuildingPass {
		pass = 1
	}
	m.buildingPass.Set(pass)
	m.roomsAnalysed.Set(float64(s.RoomsAnalysed))
}

// WriteTextfile writes the current values in the text exposition format,
// for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts and times the requests served by next.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Package metrics exposes decoding and viewer metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/primdiff/internal/diff"
	"github.com/roach88/primdiff/internal/session"
)

const (
	statusAccepted = "accepted"
	statusRejected = "rejected"
)

// Metrics holds all Prometheus collectors for one process.
// It implements session.Observer.
type Metrics struct {
	// Frame metrics
	framesTotal    *prometheus.CounterVec
	addedTotal     *prometheus.CounterVec
	removedTotal   *prometheus.CounterVec
	protocolErrors *prometheus.CounterVec
	livePrimitives prometheus.Gauge
	decodeDuration prometheus.Histogram
	resetsTotal    prometheus.Counter

	// HTTP request metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var _ session.Observer = (*Metrics)(nil)

// New creates and registers all collectors with reg. Tests pass a fresh
// prometheus.NewRegistry(); the CLI passes prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		framesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "primdiff_frames_total",
				Help: "Total number of frames received, by outcome",
			},
			[]string{"status"},
		),
		addedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "primdiff_primitives_added_total",
				Help: "Total number of primitives added to the scene",
			},
			[]string{"type"},
		),
		removedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "primdiff_primitives_removed_total",
				Help: "Total number of primitives removed from the scene",
			},
			[]string{"type"},
		),
		protocolErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "primdiff_protocol_errors_total",
				Help: "Total number of rejected frames, by protocol error code",
			},
			[]string{"code"},
		),
		livePrimitives: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "primdiff_live_primitives",
				Help: "Number of primitives currently live",
			},
		),
		decodeDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "primdiff_frame_decode_seconds",
				Help:    "Time spent decoding and applying one frame",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
		),
		resetsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "primdiff_session_resets_total",
				Help: "Total number of session resets",
			},
		),
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "primdiff_http_requests_total",
				Help: "Total number of viewer HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "primdiff_http_request_duration_seconds",
				Help:    "Viewer HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
}

// FrameDecoded implements session.Observer.
func (m *Metrics) FrameDecoded(report session.Report) {
	m.framesTotal.WithLabelValues(statusAccepted).Inc()
	for _, ts := range report.Types {
		if ts.Added > 0 {
			m.addedTotal.WithLabelValues(ts.Type).Add(float64(ts.Added))
		}
		if ts.Removed > 0 {
			m.removedTotal.WithLabelValues(ts.Type).Add(float64(ts.Removed))
		}
	}
	m.livePrimitives.Set(float64(report.Live))
	m.decodeDuration.Observe(report.Elapsed.Seconds())
}

// FrameRejected implements session.Observer.
func (m *Metrics) FrameRejected(code diff.ProtocolErrorCode) {
	m.framesTotal.WithLabelValues(statusRejected).Inc()
	m.protocolErrors.WithLabelValues(string(code)).Inc()
}

// SessionReset implements session.Observer.
func (m *Metrics) SessionReset(string) {
	m.resetsTotal.Inc()
	m.livePrimitives.Set(0)
}

// RecordHTTPRequest records one served viewer request.
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// InstrumentHandler wraps handler so every request is counted under endpoint.
func (m *Metrics) InstrumentHandler(endpoint string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler.ServeHTTP(rw, r)
		m.RecordHTTPRequest(r.Method, endpoint, rw.statusCode, time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

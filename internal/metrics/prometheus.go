package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the wake edge agent
type Metrics struct {
	// Acquisition / inference metrics
	SlicesProcessed  prometheus.Counter
	BusReadFailures  prometheus.Counter
	ClassifyFailures prometheus.Counter
	SliceRMS         prometheus.Histogram

	// Detection metrics
	WakeEvents     prometheus.Counter
	WakeConfidence prometheus.Histogram

	// Capture metrics
	Captures        prometheus.Counter
	CaptureFailures prometheus.Counter

	// Streaming metrics
	StreamsStarted   prometheus.Counter
	StreamsCompleted prometheus.Counter
	StreamFailures   prometheus.Counter
	ChunksSent       prometheus.Counter

	// Remote command metrics
	CommandsReceived *prometheus.CounterVec
	CommandErrors    prometheus.Counter

	// Admin HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		SlicesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wake_slices_processed_total",
			Help: "Total number of audio slices acquired and classified",
		}),
		BusReadFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wake_bus_read_failures_total",
			Help: "Total number of failed or timed-out bus reads",
		}),
		ClassifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wake_classify_failures_total",
			Help: "Total number of discarded cycles due to classifier failure",
		}),
		SliceRMS: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wake_slice_rms",
			Help:    "RMS energy of acquired slices",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100 to ~51k
		}),

		WakeEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wake_events_total",
			Help: "Total number of wake events fired by the detection gate",
		}),
		WakeConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wake_event_confidence",
			Help:    "Classifier confidence of fired wake events",
			Buckets: prometheus.LinearBuckets(0.5, 0.05, 11), // 0.5 to 1.0
		}),

		Captures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wake_captures_total",
			Help: "Total number of post-trigger capture attempts",
		}),
		CaptureFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wake_capture_failures_total",
			Help: "Total number of aborted captures",
		}),

		StreamsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wake_streams_started_total",
			Help: "Total number of recording streams started",
		}),
		StreamsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wake_streams_completed_total",
			Help: "Total number of recording streams fully transmitted",
		}),
		StreamFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wake_stream_failures_total",
			Help: "Total number of streams aborted on send failure",
		}),
		ChunksSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wake_chunks_sent_total",
			Help: "Total number of audio chunk envelopes sent",
		}),

		CommandsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wake_commands_received_total",
			Help: "Total number of inbound remote commands by type",
		}, []string{"type"}),
		CommandErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wake_command_errors_total",
			Help: "Total number of rejected or failed remote commands",
		}),

		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wake_http_requests_total",
			Help: "Total number of admin HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wake_http_request_duration_seconds",
			Help:    "Admin HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordSlice records one completed classification cycle
func (m *Metrics) RecordSlice(rms float64) {
	m.SlicesProcessed.Inc()
	m.SliceRMS.Observe(rms)
}

// RecordBusReadFailure increments the bus read failure counter
func (m *Metrics) RecordBusReadFailure() {
	m.BusReadFailures.Inc()
}

// RecordClassifyFailure increments the classifier failure counter
func (m *Metrics) RecordClassifyFailure() {
	m.ClassifyFailures.Inc()
}

// RecordWakeEvent records a fired wake event
func (m *Metrics) RecordWakeEvent(confidence float64) {
	m.WakeEvents.Inc()
	m.WakeConfidence.Observe(confidence)
}

// RecordCapture records a capture attempt and its outcome
func (m *Metrics) RecordCapture(success bool) {
	m.Captures.Inc()
	if !success {
		m.CaptureFailures.Inc()
	}
}

// RecordStreamStarted increments the streams started counter
func (m *Metrics) RecordStreamStarted() {
	m.StreamsStarted.Inc()
}

// RecordStreamCompleted increments the streams completed counter
func (m *Metrics) RecordStreamCompleted() {
	m.StreamsCompleted.Inc()
}

// RecordStreamFailure increments the stream failure counter
func (m *Metrics) RecordStreamFailure() {
	m.StreamFailures.Inc()
}

// RecordChunksSent adds a completed stream's chunk count
func (m *Metrics) RecordChunksSent(count int) {
	m.ChunksSent.Add(float64(count))
}

// RecordCommand records an inbound remote command
func (m *Metrics) RecordCommand(cmdType string) {
	m.CommandsReceived.WithLabelValues(cmdType).Inc()
}

// RecordCommandError increments the command error counter
func (m *Metrics) RecordCommandError() {
	m.CommandErrors.Inc()
}

// RecordHTTPRequest records an admin HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

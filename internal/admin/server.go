package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/wake-edge-agent/internal/config"
	"github.com/skypro1111/wake-edge-agent/internal/metrics"
)

// Stats is a point-in-time snapshot of agent runtime state, assembled by
// the StatsFunc the caller provides.
type Stats struct {
	State            string  `json:"state"`
	Connected        bool    `json:"connected"`
	Cycles           uint64  `json:"cycles"`
	ReadFailures     uint64  `json:"read_failures"`
	ClassifyFailures uint64  `json:"classify_failures"`
	LastConfidence   float32 `json:"last_confidence"`
}

// StatsFunc supplies the current runtime snapshot. It is called from the
// HTTP serving goroutine and must be safe to invoke concurrently with the
// agent loop.
type StatsFunc func() Stats

// Server is the local monitoring HTTP server.
type Server struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	statsFn StatsFunc
	metrics *metrics.Metrics

	startTime time.Time
}

// NewServer creates the admin server listening on address.
func NewServer(address string, logger *slog.Logger, cfg *config.Config, statsFn StatsFunc, m *metrics.Metrics) *Server {
	s := &Server{
		logger:    logger,
		config:    cfg,
		statsFn:   statsFn,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         address,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures the admin routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))

	// Runtime statistics endpoint
	mux.HandleFunc("/stats", s.withMetrics("/stats", s.handleStats))

	// Configuration endpoint
	mux.HandleFunc("/config", s.withMetrics("/config", s.handleConfig))

	// Prometheus metrics endpoint (not itself measured)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", s.withMetrics("/", s.handleRoot))
}

// withMetrics wraps a handler with request metrics collection. Metrics
// are optional; without them the handler runs unmeasured.
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return handler
	}

	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		s.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode), duration)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the admin server in the background.
func (s *Server) Start() error {
	s.logger.Info("Starting admin server", slog.String("address", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Admin server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the admin server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping admin server...")
	return s.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := s.statsFn()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
		"service": map[string]interface{}{
			"name":    "wake-edge-agent",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"detection": map[string]interface{}{
				"status": "running",
				"state":  stats.State,
				"cycles": stats.Cycles,
			},
			"transport": map[string]interface{}{
				"connected": stats.Connected,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStats implements the /stats endpoint
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"uptime":    time.Since(s.startTime).String(),
		"timestamp": time.Now().UTC(),
		"agent":     s.statsFn(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleConfig implements the /config endpoint
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sanitized := map[string]interface{}{
		"server": map[string]interface{}{
			"url":       s.config.Server.URL,
			"device_id": s.config.Server.DeviceID,
		},
		"audio": map[string]interface{}{
			"sample_rate":       s.config.Audio.SampleRate,
			"window_samples":    s.config.Audio.WindowSamples,
			"slices_per_window": s.config.Audio.SlicesPerWindow,
			"bus_device":        s.config.Audio.BusDevice,
			"warmup_slices":     s.config.Audio.WarmupSlices,
			"capture_duration":  s.config.Audio.CaptureDuration,
		},
		"detect": map[string]interface{}{
			"target_label":         s.config.Detect.TargetLabel,
			"confidence_threshold": s.config.Detect.ConfidenceThreshold,
			"energy_threshold":     s.config.Detect.EnergyThreshold,
		},
		"stream": map[string]interface{}{
			"chunk_samples": s.config.Stream.ChunkSamples,
			"pacing_ms":     s.config.Stream.PacingDelay,
			"cooldown_ms":   s.config.Stream.Cooldown,
		},
		"logging": map[string]interface{}{
			"level":  s.config.Logging.Level,
			"format": s.config.Logging.Format,
			"output": s.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitized)
}

// handleRoot implements the / endpoint with API documentation
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Wake Edge Agent",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Agent health check",
			"GET /stats":   "Agent runtime statistics",
			"GET /config":  "Sanitized agent configuration",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}

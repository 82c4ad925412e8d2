package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skypro1111/wake-edge-agent/internal/actuate"
	"github.com/skypro1111/wake-edge-agent/internal/admin"
	"github.com/skypro1111/wake-edge-agent/internal/agent"
	"github.com/skypro1111/wake-edge-agent/internal/audio"
	"github.com/skypro1111/wake-edge-agent/internal/classifier"
	"github.com/skypro1111/wake-edge-agent/internal/config"
	"github.com/skypro1111/wake-edge-agent/internal/detect"
	"github.com/skypro1111/wake-edge-agent/internal/metrics"
	"github.com/skypro1111/wake-edge-agent/internal/protocol"
	"github.com/skypro1111/wake-edge-agent/internal/transport"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "wake-edge-agent"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.String("server_url", cfg.Server.URL),
		slog.String("device_id", cfg.Server.DeviceID),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("window_samples", cfg.Audio.WindowSamples),
		slog.Int("slice_samples", cfg.Audio.SliceSamples()),
		slog.String("bus_device", cfg.Audio.BusDevice),
		slog.String("target_label", cfg.Detect.TargetLabel),
		slog.Float64("confidence_threshold", float64(cfg.Detect.ConfidenceThreshold)),
		slog.Float64("energy_threshold", cfg.Detect.EnergyThreshold),
		slog.Int("chunk_samples", cfg.Stream.ChunkSamples),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics (if enabled)
	var appMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		appMetrics = metrics.NewMetrics()
		logger.Info("Prometheus metrics initialized")
	}

	// Shared monotonic tick source stamped on every outbound envelope
	start := time.Now()
	ticks := func() int64 { return time.Since(start).Milliseconds() }

	// Initialize the capture bus and acquisition layer
	bus := audio.NewArecordBus(cfg.Audio.BusDevice, cfg.Audio.SampleRate, logger)
	if err := bus.Start(); err != nil {
		logger.Error("Failed to start capture bus", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer bus.Stop()

	reader := audio.NewFrameReader(bus, cfg.Audio.GetReadTimeout(), logger)

	recorder, err := audio.NewRecorder(reader, cfg.Audio.CaptureSamples(), logger)
	if err != nil {
		logger.Error("Failed to create recorder", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize the classifier and detection layer
	cls, err := classifier.NewEnergyClassifier(cfg.Detect.TargetLabel, cfg.Audio.SliceSamples())
	if err != nil {
		logger.Error("Failed to create classifier", slog.String("error", err.Error()))
		os.Exit(1)
	}

	driver, err := detect.NewDriver(reader, cls, cfg.Audio.SliceSamples(), logger)
	if err != nil {
		logger.Error("Failed to create inference driver", slog.String("error", err.Error()))
		os.Exit(1)
	}

	gate, err := detect.NewGate(cfg.Detect.TargetLabel, cfg.Detect.ConfidenceThreshold, cfg.Detect.EnergyThreshold, logger)
	if err != nil {
		logger.Error("Failed to create detection gate", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize actuation
	actuator := actuate.NewLogActuator(logger)
	pulser := actuate.NewStatusPulser(actuator, cfg.Status.Target, cfg.Status.Pulses,
		cfg.Status.GetPulseOnDelay(), cfg.Status.GetPulseOffDelay(), logger)

	// Connect to the remote service. A failed dial is not fatal: the agent
	// keeps detecting and drops recordings until restarted with a
	// reachable server.
	client := transport.NewClient(cfg.Server.URL, cfg.Server.DeviceID, logger)
	if err := client.Connect(); err != nil {
		logger.Warn("Server unreachable, recordings will be dropped", slog.String("error", err.Error()))
	}
	defer client.Close()

	streamer, err := transport.NewStreamer(client, cfg.Server.DeviceID, cfg.Stream.ChunkSamples,
		cfg.Stream.GetPacingDelay(), ticks, logger)
	if err != nil {
		logger.Error("Failed to create streamer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Assemble the orchestration loop
	loop, err := agent.NewLoop(agent.Options{
		Config: agent.Config{
			WarmupSlices:   cfg.Audio.WarmupSlices,
			ReadRetryDelay: cfg.Audio.GetReadRetryDelay(),
			Cooldown:       cfg.Stream.GetCooldown(),
		},
		Driver:   driver,
		Gate:     gate,
		Recorder: recorder,
		Streamer: streamer,
		Pulser:   pulser,
		Actuator: actuator,
		Commands: client.Commands(),
		Ack: func(success bool, errMsg string) error {
			data, err := protocol.NewActionResult(cfg.Server.DeviceID, ticks(), success, errMsg).Marshal()
			if err != nil {
				return err
			}
			return client.SendText(data)
		},
		Ready:   client.Ready,
		Ticks:   ticks,
		Metrics: appMetrics,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("Failed to create agent loop", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start the admin/metrics endpoint (if enabled)
	var adminServer *admin.Server
	if cfg.Metrics.Enabled {
		statsFn := func() admin.Stats {
			cycles, readFailures, classifyFailures := driver.Stats()
			return admin.Stats{
				State:            loop.CurrentState().String(),
				Connected:        client.Ready(),
				Cycles:           cycles,
				ReadFailures:     readFailures,
				ClassifyFailures: classifyFailures,
				LastConfidence:   gate.LastConfidence(),
			}
		}
		adminServer = admin.NewServer(cfg.Metrics.Address, logger, cfg, statsFn, appMetrics)
		if err := adminServer.Start(); err != nil {
			logger.Error("Failed to start admin server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("Agent started", slog.String("endpoint", client.URL()))

	// Run the loop until cancelled
	loop.Run(ctx)

	// Stop the admin server first (stop serving stale state)
	if adminServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := adminServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping admin server", slog.String("error", err.Error()))
		}
	}

	cycles, readFailures, classifyFailures := driver.Stats()
	logger.Info("Final agent statistics",
		slog.Uint64("cycles", cycles),
		slog.Uint64("read_failures", readFailures),
		slog.Uint64("classify_failures", classifyFailures),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete agent configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Audio   AudioConfig   `yaml:"audio"`
	Detect  DetectConfig  `yaml:"detect"`
	Stream  StreamConfig  `yaml:"stream"`
	Status  StatusConfig  `yaml:"status"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig identifies the remote service and this device
type ServerConfig struct {
	URL      string `yaml:"url"`       // ws://host:port
	DeviceID string `yaml:"device_id"`
}

// AudioConfig contains acquisition parameters for the capture bus
type AudioConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	WindowSamples   int     `yaml:"window_samples"`    // full classifier window
	SlicesPerWindow int     `yaml:"slices_per_window"`
	BusDevice       string  `yaml:"bus_device"`        // ALSA device name
	ReadTimeout     int     `yaml:"read_timeout_ms"`   // per-chunk bus timeout
	ReadRetryDelay  int     `yaml:"read_retry_ms"`     // delay after a failed slice read
	WarmupSlices    int     `yaml:"warmup_slices"`
	CaptureDuration float64 `yaml:"capture_duration"`  // seconds
}

// DetectConfig contains detection gate thresholds
type DetectConfig struct {
	TargetLabel         string  `yaml:"target_label"`
	ConfidenceThreshold float32 `yaml:"confidence_threshold"`
	EnergyThreshold     float64 `yaml:"energy_threshold"` // RMS noise floor gate
}

// StreamConfig contains chunked transport parameters
type StreamConfig struct {
	ChunkSamples int `yaml:"chunk_samples"`
	PacingDelay  int `yaml:"pacing_ms"`   // fixed inter-chunk delay
	Cooldown     int `yaml:"cooldown_ms"` // delay before returning to listening
}

// StatusConfig contains the alert pulse sequence parameters
type StatusConfig struct {
	Target        string `yaml:"target"`
	Pulses        int    `yaml:"pulses"`
	PulseOnDelay  int    `yaml:"pulse_on_ms"`
	PulseOffDelay int    `yaml:"pulse_off_ms"`
}

// MetricsConfig contains the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Detect.Validate(); err != nil {
		return fmt.Errorf("detect config: %w", err)
	}

	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream config: %w", err)
	}

	if err := c.Status.Validate(); err != nil {
		return fmt.Errorf("status config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if !strings.HasPrefix(s.URL, "ws://") && !strings.HasPrefix(s.URL, "wss://") {
		return fmt.Errorf("url must start with ws:// or wss://, got %q", s.URL)
	}

	if s.DeviceID == "" {
		return fmt.Errorf("device_id cannot be empty")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz for the wake model, got %d", a.SampleRate)
	}

	if a.WindowSamples < 1 {
		return fmt.Errorf("window_samples must be positive, got %d", a.WindowSamples)
	}

	if a.SlicesPerWindow < 1 {
		return fmt.Errorf("slices_per_window must be at least 1, got %d", a.SlicesPerWindow)
	}

	if a.WindowSamples%a.SlicesPerWindow != 0 {
		return fmt.Errorf("window_samples (%d) must be divisible by slices_per_window (%d)",
			a.WindowSamples, a.SlicesPerWindow)
	}

	if a.ReadTimeout < 1 {
		return fmt.Errorf("read_timeout_ms must be at least 1, got %d", a.ReadTimeout)
	}

	if a.ReadRetryDelay < 0 {
		return fmt.Errorf("read_retry_ms cannot be negative, got %d", a.ReadRetryDelay)
	}

	if a.WarmupSlices < 0 {
		return fmt.Errorf("warmup_slices cannot be negative, got %d", a.WarmupSlices)
	}

	if a.CaptureDuration <= 0 {
		return fmt.Errorf("capture_duration must be positive, got %f", a.CaptureDuration)
	}

	return nil
}

// Validate validates detection configuration
func (d *DetectConfig) Validate() error {
	if d.TargetLabel == "" {
		return fmt.Errorf("target_label cannot be empty")
	}

	if d.ConfidenceThreshold < 0 || d.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", d.ConfidenceThreshold)
	}

	if d.EnergyThreshold < 0 {
		return fmt.Errorf("energy_threshold cannot be negative, got %f", d.EnergyThreshold)
	}

	return nil
}

// Validate validates streaming configuration
func (s *StreamConfig) Validate() error {
	if s.ChunkSamples < 1 {
		return fmt.Errorf("chunk_samples must be positive, got %d", s.ChunkSamples)
	}

	// Keep the base64 payload plus JSON overhead well under typical
	// message-size limits.
	if s.ChunkSamples > 16384 {
		return fmt.Errorf("chunk_samples must be at most 16384, got %d", s.ChunkSamples)
	}

	if s.PacingDelay < 0 {
		return fmt.Errorf("pacing_ms cannot be negative, got %d", s.PacingDelay)
	}

	if s.Cooldown < 0 {
		return fmt.Errorf("cooldown_ms cannot be negative, got %d", s.Cooldown)
	}

	return nil
}

// Validate validates status pulse configuration
func (s *StatusConfig) Validate() error {
	if s.Target == "" {
		return fmt.Errorf("target cannot be empty")
	}

	if s.Pulses < 0 {
		return fmt.Errorf("pulses cannot be negative, got %d", s.Pulses)
	}

	if s.PulseOnDelay < 0 || s.PulseOffDelay < 0 {
		return fmt.Errorf("pulse durations cannot be negative, got %d/%d",
			s.PulseOnDelay, s.PulseOffDelay)
	}

	return nil
}

// Validate validates metrics configuration
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address cannot be empty when metrics are enabled")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// SliceSamples returns the slice size in samples
func (a *AudioConfig) SliceSamples() int {
	return a.WindowSamples / a.SlicesPerWindow
}

// CaptureSamples returns the trigger recording size in samples
func (a *AudioConfig) CaptureSamples() int {
	return int(a.CaptureDuration * float64(a.SampleRate))
}

// GetReadTimeout returns the per-chunk bus timeout as a time.Duration
func (a *AudioConfig) GetReadTimeout() time.Duration {
	return time.Duration(a.ReadTimeout) * time.Millisecond
}

// GetReadRetryDelay returns the post-failure retry delay as a time.Duration
func (a *AudioConfig) GetReadRetryDelay() time.Duration {
	return time.Duration(a.ReadRetryDelay) * time.Millisecond
}

// GetPacingDelay returns the inter-chunk delay as a time.Duration
func (s *StreamConfig) GetPacingDelay() time.Duration {
	return time.Duration(s.PacingDelay) * time.Millisecond
}

// GetCooldown returns the post-stream cooldown as a time.Duration
func (s *StreamConfig) GetCooldown() time.Duration {
	return time.Duration(s.Cooldown) * time.Millisecond
}

// GetPulseOnDelay returns the pulse on duration as a time.Duration
func (s *StatusConfig) GetPulseOnDelay() time.Duration {
	return time.Duration(s.PulseOnDelay) * time.Millisecond
}

// GetPulseOffDelay returns the pulse off duration as a time.Duration
func (s *StatusConfig) GetPulseOffDelay() time.Duration {
	return time.Duration(s.PulseOffDelay) * time.Millisecond
}

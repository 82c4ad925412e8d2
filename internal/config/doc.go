// Package config provides configuration loading and validation for the
// wake edge agent. It handles YAML-based configuration with per-section
// struct validation covering the audio pipeline, detection thresholds,
// streaming transport, and ambient concerns.
package config

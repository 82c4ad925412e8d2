package actuate

import (
	"fmt"
	"log/slog"
	"time"
)

// Actuator is the GPIO-level actuation capability: drive a named target
// high or low. Targets come from a small fixed name set ("status_led",
// "light", "fan").
type Actuator interface {
	Set(target string, on bool) error
}

// Allowed remote action verbs and values, mirroring the server's
// validation set. Anything else is rejected before touching hardware.
var (
	allowedActions = map[string]bool{
		"relay_set": true,
		"led_set":   true,
		"noop":      true,
	}
	allowedValues = map[string]bool{
		"on":     true,
		"off":    true,
		"toggle": true,
	}
)

// ValidateAction checks a remote action against the allowed sets. noop is
// always valid regardless of target and value.
func ValidateAction(action, target, value string) error {
	if !allowedActions[action] {
		return fmt.Errorf("action %q not allowed", action)
	}
	if action == "noop" {
		return nil
	}
	if target == "" {
		return fmt.Errorf("action %q requires a target", action)
	}
	if !allowedValues[value] {
		return fmt.Errorf("value %q not allowed", value)
	}
	return nil
}

// LogActuator is an Actuator that only records transitions. It stands in
// for the GPIO layer on hosts without the hardware and tracks levels so
// "toggle" can resolve.
type LogActuator struct {
	logger *slog.Logger
	levels map[string]bool
}

// NewLogActuator creates a logging actuator.
func NewLogActuator(logger *slog.Logger) *LogActuator {
	return &LogActuator{
		logger: logger,
		levels: make(map[string]bool),
	}
}

// Set records and logs the target's new level.
func (a *LogActuator) Set(target string, on bool) error {
	a.levels[target] = on
	a.logger.Info("Actuation",
		slog.String("target", target),
		slog.Bool("on", on),
	)
	return nil
}

// Level returns the last level set for the target.
func (a *LogActuator) Level(target string) bool {
	return a.levels[target]
}

// StatusPulser produces the fixed alert pulse sequence on the status
// target: count repetitions of on for onDuration, off for offDuration.
// Purely observational; failures are logged and ignored.
type StatusPulser struct {
	actuator    Actuator
	target      string
	count       int
	onDuration  time.Duration
	offDuration time.Duration
	logger      *slog.Logger
}

// NewStatusPulser creates a pulser for the given status target.
func NewStatusPulser(actuator Actuator, target string, count int, onDuration, offDuration time.Duration, logger *slog.Logger) *StatusPulser {
	return &StatusPulser{
		actuator:    actuator,
		target:      target,
		count:       count,
		onDuration:  onDuration,
		offDuration: offDuration,
		logger:      logger,
	}
}

// Pulse runs the full blocking pulse sequence.
func (p *StatusPulser) Pulse() {
	for i := 0; i < p.count; i++ {
		if err := p.actuator.Set(p.target, true); err != nil {
			p.logger.Warn("Status pulse failed", slog.String("error", err.Error()))
		}
		time.Sleep(p.onDuration)

		if err := p.actuator.Set(p.target, false); err != nil {
			p.logger.Warn("Status pulse failed", slog.String("error", err.Error()))
		}
		time.Sleep(p.offDuration)
	}
}

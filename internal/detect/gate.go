package detect

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/skypro1111/wake-edge-agent/internal/classifier"
)

// Default thresholds from the deployed model profile. Confidence is
// compared inclusively, energy strictly; the asymmetry is part of the
// detection contract.
const (
	DefaultConfidenceThreshold = 0.60
	DefaultEnergyThreshold     = 2000.0
)

// probableHitThreshold only drives a debug log line; it never alters
// control flow.
const probableHitThreshold = 0.5

// WakeEvent is the ephemeral joint condition of confidence and energy
// both passing on the same cycle. At most one is in flight; the loop
// consumes it synchronously.
type WakeEvent struct {
	Confidence float32
	RMS        float64
	Ticks      int64
}

// Gate evaluates classification results against the confidence and energy
// thresholds. It is stateless between cycles apart from retaining the most
// recent target confidence for the stream start payload.
type Gate struct {
	targetLabel         string
	confidenceThreshold float32
	energyThreshold     float64
	logger              *slog.Logger

	// Float32 bits, read concurrently by the admin endpoint.
	lastConfidence atomic.Uint32

	evaluations uint64
	wakeEvents  uint64
}

// NewGate creates a gate for the given target label.
func NewGate(targetLabel string, confidenceThreshold float32, energyThreshold float64, logger *slog.Logger) (*Gate, error) {
	if targetLabel == "" {
		return nil, fmt.Errorf("target label cannot be empty")
	}
	if confidenceThreshold < 0 || confidenceThreshold > 1 {
		return nil, fmt.Errorf("confidence threshold must be between 0 and 1, got %f", confidenceThreshold)
	}
	if energyThreshold < 0 {
		return nil, fmt.Errorf("energy threshold cannot be negative, got %f", energyThreshold)
	}

	return &Gate{
		targetLabel:         targetLabel,
		confidenceThreshold: confidenceThreshold,
		energyThreshold:     energyThreshold,
		logger:              logger,
	}, nil
}

// Evaluate checks one cycle's classification result against the same
// cycle's RMS. It fires iff confidence >= threshold (inclusive) and
// rms > threshold (strict). A result without the target label never fires.
func (g *Gate) Evaluate(result classifier.Result, rms float64, ticks int64) (*WakeEvent, bool) {
	g.evaluations++

	confidence, found := g.targetConfidence(result)
	if !found {
		g.logger.Warn("Target label missing from classification result",
			slog.String("label", g.targetLabel),
		)
		return nil, false
	}

	g.lastConfidence.Store(math.Float32bits(confidence))

	if confidence > probableHitThreshold {
		g.logger.Debug("Probable hit",
			slog.Float64("confidence", float64(confidence)),
			slog.Float64("rms", rms),
		)
	}

	if confidence >= g.confidenceThreshold && rms > g.energyThreshold {
		g.wakeEvents++
		return &WakeEvent{
			Confidence: confidence,
			RMS:        rms,
			Ticks:      ticks,
		}, true
	}

	return nil, false
}

// targetConfidence locates the target label's score by exact string match.
func (g *Gate) targetConfidence(result classifier.Result) (float32, bool) {
	return result.Confidence(g.targetLabel)
}

// LastConfidence returns the target confidence from the most recently
// evaluated result.
func (g *Gate) LastConfidence() float32 {
	return math.Float32frombits(g.lastConfidence.Load())
}

// TargetLabel returns the wake label this gate watches.
func (g *Gate) TargetLabel() string {
	return g.targetLabel
}

// Stats returns evaluation counters for observability.
func (g *Gate) Stats() (evaluations, wakeEvents uint64) {
	return g.evaluations, g.wakeEvents
}

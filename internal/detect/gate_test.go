package detect

import (
	"io"
	"log/slog"
	"testing"

	"github.com/skypro1111/wake-edge-agent/internal/classifier"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resultWith(confidence float32) classifier.Result {
	return classifier.Result{
		{Label: "heymiaomiao", Value: confidence},
		{Label: "noise", Value: 1 - confidence},
		{Label: "unknown", Value: 0},
	}
}

func TestGateFiresWhenBothThresholdsPass(t *testing.T) {
	gate, err := NewGate("heymiaomiao", 0.6, 2000.0, testLogger())
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	event, fired := gate.Evaluate(resultWith(0.65), 2500.0, 111)
	if !fired {
		t.Fatal("Expected gate to fire at confidence 0.65, rms 2500")
	}
	if event.Confidence != 0.65 {
		t.Errorf("Expected event confidence 0.65, got %f", event.Confidence)
	}
	if event.RMS != 2500.0 {
		t.Errorf("Expected event rms 2500, got %f", event.RMS)
	}
	if event.Ticks != 111 {
		t.Errorf("Expected event ticks 111, got %d", event.Ticks)
	}
}

func TestGateBoundaryAsymmetry(t *testing.T) {
	tests := []struct {
		name       string
		confidence float32
		rms        float64
		wantFire   bool
	}{
		{"confidence exactly at threshold fires", 0.6, 2000.1, true},
		{"rms exactly at threshold does not fire", 0.65, 2000.0, false},
		{"both exactly at thresholds does not fire", 0.6, 2000.0, false},
		{"confidence just below threshold does not fire", 0.5999, 2500.0, false},
		{"rms just above threshold fires", 0.6, 2000.0001, true},
		{"both below thresholds does not fire", 0.3, 100.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, err := NewGate("heymiaomiao", 0.6, 2000.0, testLogger())
			if err != nil {
				t.Fatalf("NewGate failed: %v", err)
			}

			_, fired := gate.Evaluate(resultWith(tt.confidence), tt.rms, 0)
			if fired != tt.wantFire {
				t.Errorf("Evaluate(conf=%f, rms=%f): fired=%v, want %v",
					tt.confidence, tt.rms, fired, tt.wantFire)
			}
		})
	}
}

func TestGateEnergyGateBlocksLoudConfidence(t *testing.T) {
	gate, err := NewGate("heymiaomiao", 0.6, 2000.0, testLogger())
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	// Same scenario as the firing case but RMS below the noise floor gate.
	if _, fired := gate.Evaluate(resultWith(0.65), 1500.0, 0); fired {
		t.Error("Gate must not fire when RMS is below the energy threshold")
	}
}

func TestGateMissingTargetLabel(t *testing.T) {
	gate, err := NewGate("heymiaomiao", 0.6, 2000.0, testLogger())
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	result := classifier.Result{
		{Label: "noise", Value: 0.9},
	}
	if _, fired := gate.Evaluate(result, 5000.0, 0); fired {
		t.Error("Gate must not fire when the target label is absent")
	}
}

func TestGateLastConfidence(t *testing.T) {
	gate, err := NewGate("heymiaomiao", 0.6, 2000.0, testLogger())
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	gate.Evaluate(resultWith(0.42), 100.0, 0)
	if gate.LastConfidence() != 0.42 {
		t.Errorf("Expected last confidence 0.42, got %f", gate.LastConfidence())
	}

	gate.Evaluate(resultWith(0.77), 2500.0, 0)
	if gate.LastConfidence() != 0.77 {
		t.Errorf("Expected last confidence 0.77, got %f", gate.LastConfidence())
	}
}

func TestGateStats(t *testing.T) {
	gate, err := NewGate("heymiaomiao", 0.6, 2000.0, testLogger())
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	gate.Evaluate(resultWith(0.3), 100.0, 0)
	gate.Evaluate(resultWith(0.9), 2500.0, 0)
	gate.Evaluate(resultWith(0.9), 1500.0, 0)

	evaluations, wakeEvents := gate.Stats()
	if evaluations != 3 {
		t.Errorf("Expected 3 evaluations, got %d", evaluations)
	}
	if wakeEvents != 1 {
		t.Errorf("Expected 1 wake event, got %d", wakeEvents)
	}
}

func TestNewGateValidation(t *testing.T) {
	if _, err := NewGate("", 0.6, 2000.0, testLogger()); err == nil {
		t.Error("Expected error for empty target label")
	}
	if _, err := NewGate("x", 1.5, 2000.0, testLogger()); err == nil {
		t.Error("Expected error for confidence threshold above 1")
	}
	if _, err := NewGate("x", 0.6, -1.0, testLogger()); err == nil {
		t.Error("Expected error for negative energy threshold")
	}
}

package classifier

import (
	"testing"
)

func TestSliceSignalFullRead(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5}
	sig := NewSliceSignal(data)

	if sig.TotalLength() != 5 {
		t.Errorf("Expected total length 5, got %d", sig.TotalLength())
	}

	out := make([]float32, 5)
	if err := sig.GetData(0, 5, out); err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	for i := range data {
		if out[i] != data[i] {
			t.Errorf("Sample %d: expected %f, got %f", i, data[i], out[i])
		}
	}
}

func TestSliceSignalPartialReads(t *testing.T) {
	data := make([]float32, 100)
	for i := range data {
		data[i] = float32(i)
	}
	sig := NewSliceSignal(data)

	tests := []struct {
		offset, length int
	}{
		{0, 10},
		{50, 50},
		{99, 1},
		{25, 0},
	}

	for _, tt := range tests {
		out := make([]float32, tt.length)
		if err := sig.GetData(tt.offset, tt.length, out); err != nil {
			t.Fatalf("GetData(%d, %d) failed: %v", tt.offset, tt.length, err)
		}
		for i := 0; i < tt.length; i++ {
			if out[i] != float32(tt.offset+i) {
				t.Errorf("GetData(%d, %d): sample %d expected %d, got %f",
					tt.offset, tt.length, i, tt.offset+i, out[i])
			}
		}
	}
}

func TestSliceSignalOutOfRange(t *testing.T) {
	sig := NewSliceSignal(make([]float32, 10))
	out := make([]float32, 10)

	if err := sig.GetData(5, 6, out); err == nil {
		t.Error("Expected error for range past end of slice")
	}
	if err := sig.GetData(-1, 2, out); err == nil {
		t.Error("Expected error for negative offset")
	}
	if err := sig.GetData(0, 5, make([]float32, 2)); err == nil {
		t.Error("Expected error for undersized output buffer")
	}
}

func TestResultConfidenceLookup(t *testing.T) {
	result := Result{
		{Label: "heymiaomiao", Value: 0.72},
		{Label: "noise", Value: 0.2},
		{Label: "unknown", Value: 0.08},
	}

	conf, ok := result.Confidence("heymiaomiao")
	if !ok {
		t.Fatal("Expected target label to be found")
	}
	if conf != 0.72 {
		t.Errorf("Expected confidence 0.72, got %f", conf)
	}

	if _, ok := result.Confidence("heymiao"); ok {
		t.Error("Lookup must be an exact string match")
	}
}

func TestEnergyClassifierScoresLoudness(t *testing.T) {
	cls, err := NewEnergyClassifier("heymiaomiao", 4000)
	if err != nil {
		t.Fatalf("NewEnergyClassifier failed: %v", err)
	}

	loud := make([]float32, 4000)
	for i := range loud {
		loud[i] = 6000
	}
	quiet := make([]float32, 4000)

	loudResult, err := cls.Classify(NewSliceSignal(loud))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	quietResult, err := cls.Classify(NewSliceSignal(quiet))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	loudConf, _ := loudResult.Confidence("heymiaomiao")
	quietConf, _ := quietResult.Confidence("heymiaomiao")
	if loudConf <= quietConf {
		t.Errorf("Expected loud slice to outscore quiet slice, got %f <= %f", loudConf, quietConf)
	}
	if quietConf != 0 {
		t.Errorf("Expected silent slice to score 0, got %f", quietConf)
	}
	if cls.Stats() != 2 {
		t.Errorf("Expected 2 slices classified, got %d", cls.Stats())
	}
}

func TestEnergyClassifierRejectsWrongSliceSize(t *testing.T) {
	cls, err := NewEnergyClassifier("heymiaomiao", 4000)
	if err != nil {
		t.Fatalf("NewEnergyClassifier failed: %v", err)
	}

	if _, err := cls.Classify(NewSliceSignal(make([]float32, 100))); err == nil {
		t.Error("Expected error for mismatched slice size")
	}
}

package classifier

import (
	"fmt"
	"math"
)

// EnergyClassifier is a development stand-in for the vendor model. It
// scores the wake label from slice energy alone so the full pipeline can
// run without the real inference engine linked in.
type EnergyClassifier struct {
	targetLabel string
	sliceSize   int
	scratch     []float32

	// Normalization ceiling for the energy score.
	fullScale float64

	slices uint64
}

// NewEnergyClassifier creates a placeholder classifier for the given
// target label and slice size.
func NewEnergyClassifier(targetLabel string, sliceSize int) (*EnergyClassifier, error) {
	if targetLabel == "" {
		return nil, fmt.Errorf("target label cannot be empty")
	}
	if sliceSize <= 0 {
		return nil, fmt.Errorf("slice size must be positive, got %d", sliceSize)
	}

	// TODO: replace with the generated model bindings once the vendor SDK
	// export lands; this scorer exists only to exercise the pipeline.
	return &EnergyClassifier{
		targetLabel: targetLabel,
		sliceSize:   sliceSize,
		scratch:     make([]float32, sliceSize),
		fullScale:   8000.0,
	}, nil
}

// Labels returns the placeholder's three-class label set.
func (c *EnergyClassifier) Labels() []string {
	return []string{c.targetLabel, "noise", "unknown"}
}

// Classify scores the slice by RMS energy: louder slices score higher on
// the target label, quieter ones on noise.
func (c *EnergyClassifier) Classify(sig Signal) (Result, error) {
	if sig.TotalLength() != c.sliceSize {
		return nil, fmt.Errorf("%w: expected %d samples, got %d",
			ErrClassify, c.sliceSize, sig.TotalLength())
	}

	if err := sig.GetData(0, c.sliceSize, c.scratch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassify, err)
	}

	var sumSq float64
	for _, s := range c.scratch {
		sumSq += float64(s) * float64(s)
	}
	rms := math.Sqrt(sumSq / float64(c.sliceSize))

	score := rms / c.fullScale
	if score > 1.0 {
		score = 1.0
	}

	c.slices++

	return Result{
		{Label: c.targetLabel, Value: float32(score)},
		{Label: "noise", Value: float32(1.0 - score)},
		{Label: "unknown", Value: 0},
	}, nil
}

// Stats returns the number of slices classified.
func (c *EnergyClassifier) Stats() (slices uint64) {
	return c.slices
}

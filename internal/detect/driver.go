package detect

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/skypro1111/wake-edge-agent/internal/audio"
	"github.com/skypro1111/wake-edge-agent/internal/classifier"
)

// Driver owns the slice buffer and feeds the streaming classifier one
// slice per cycle. The buffer is overwritten in place every cycle and is
// never handed to the classifier partially filled: a failed acquisition
// skips the cycle entirely.
type Driver struct {
	reader *audio.FrameReader
	cls    classifier.Classifier
	slice  []float32
	signal *classifier.SliceSignal
	logger *slog.Logger

	// Counters are read concurrently by the admin endpoint.
	cycles           atomic.Uint64
	readFailures     atomic.Uint64
	classifyFailures atomic.Uint64
}

// NewDriver creates a driver with a slice buffer of sliceSize samples.
func NewDriver(reader *audio.FrameReader, cls classifier.Classifier, sliceSize int, logger *slog.Logger) (*Driver, error) {
	if sliceSize <= 0 {
		return nil, fmt.Errorf("slice size must be positive, got %d", sliceSize)
	}

	slice := make([]float32, sliceSize)
	return &Driver{
		reader: reader,
		cls:    cls,
		slice:  slice,
		signal: classifier.NewSliceSignal(slice),
		logger: logger,
	}, nil
}

// Cycle performs one acquisition-and-inference step: fully refill the
// slice buffer (with RMS), then invoke the classifier exactly once over
// it. Errors carry audio.ErrBusRead or classifier.ErrClassify so the loop
// can distinguish a skipped acquisition from a discarded result.
func (d *Driver) Cycle() (classifier.Result, float64, error) {
	cycle := d.cycles.Add(1)

	rms, err := d.reader.ReadSlice(d.slice)
	if err != nil {
		d.readFailures.Add(1)
		return nil, 0, fmt.Errorf("slice acquisition failed: %w", err)
	}

	result, err := d.cls.Classify(d.signal)
	if err != nil {
		d.classifyFailures.Add(1)
		d.logger.Warn("Classifier failure, cycle discarded",
			slog.Uint64("cycle", cycle),
			slog.String("error", err.Error()),
		)
		return nil, 0, fmt.Errorf("%w: %v", classifier.ErrClassify, err)
	}

	return result, rms, nil
}

// Warmup acquires and discards one slice without classification, letting
// the microphone and bus settle after startup.
func (d *Driver) Warmup() error {
	if _, err := d.reader.ReadSlice(d.slice); err != nil {
		return fmt.Errorf("warmup read failed: %w", err)
	}
	return nil
}

// SliceSize returns the slice buffer length in samples.
func (d *Driver) SliceSize() int {
	return len(d.slice)
}

// Stats returns cycle counters for observability.
func (d *Driver) Stats() (cycles, readFailures, classifyFailures uint64) {
	return d.cycles.Load(), d.readFailures.Load(), d.classifyFailures.Load()
}

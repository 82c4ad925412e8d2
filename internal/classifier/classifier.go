package classifier

import (
	"errors"
	"fmt"
)

// ErrClassify marks a failed classifier invocation. The cycle's result is
// discarded and the slice buffer is overwritten on the next cycle, so no
// state is corrupted.
var ErrClassify = errors.New("classifier invocation failed")

// Signal is the read-only accessor the classifier pulls samples through.
// GetData must support arbitrary sub-range reads within the current slice,
// copying directly out of the underlying buffer.
type Signal interface {
	TotalLength() int
	GetData(offset, length int, out []float32) error
}

// Classification is one label/score pair of a classifier result.
type Classification struct {
	Label string
	Value float32
}

// Result is the per-slice classification output: one confidence score in
// [0,1] per label, in the classifier's label order. It is transient and
// consumed immediately by the detection gate.
type Result []Classification

// Confidence returns the score for the given label by exact string match.
func (r Result) Confidence(label string) (float32, bool) {
	for _, c := range r {
		if c.Label == label {
			return c.Value, true
		}
	}
	return 0, false
}

// Classifier is the opaque streaming model capability. Classify must be
// called exactly once per fully acquired slice, in order; the classifier
// is stateful across calls and accumulates slices into its larger window
// internally.
type Classifier interface {
	// Labels returns the model's label set in output order.
	Labels() []string

	// Classify runs one streaming inference step over the signal bound to
	// the freshly filled slice buffer.
	Classify(sig Signal) (Result, error)
}

// SliceSignal is a Signal bound to a slice buffer owned by the caller.
// Rebinding is cheap; the signal never copies or retains the buffer beyond
// the current classify call.
type SliceSignal struct {
	data []float32
}

// NewSliceSignal binds a signal to the given slice buffer.
func NewSliceSignal(data []float32) *SliceSignal {
	return &SliceSignal{data: data}
}

// TotalLength returns the bound slice length in samples.
func (s *SliceSignal) TotalLength() int {
	return len(s.data)
}

// GetData copies length samples starting at offset into out.
func (s *SliceSignal) GetData(offset, length int, out []float32) error {
	if offset < 0 || length < 0 || offset+length > len(s.data) {
		return fmt.Errorf("signal range [%d:%d) outside slice of %d samples",
			offset, offset+length, len(s.data))
	}
	if len(out) < length {
		return fmt.Errorf("output buffer too small: %d < %d", len(out), length)
	}

	copy(out, s.data[offset:offset+length])
	return nil
}

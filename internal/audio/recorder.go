package audio

import (
	"fmt"
	"log/slog"
)

// Recorder performs the fixed-duration capture that follows a wake event.
// It borrows the same FrameReader as sliding-window acquisition, which is
// paused for the capture's duration (single shared bus resource), and
// writes 16-bit samples directly without float conversion.
type Recorder struct {
	reader   *FrameReader
	buf      []int16
	complete bool
	logger   *slog.Logger

	captures uint64
	failures uint64
}

// NewRecorder creates a recorder with a buffer of sampleCount samples.
func NewRecorder(reader *FrameReader, sampleCount int, logger *slog.Logger) (*Recorder, error) {
	if sampleCount <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", sampleCount)
	}

	return &Recorder{
		reader: reader,
		buf:    make([]int16, sampleCount),
		logger: logger,
	}, nil
}

// Capture blocks until the buffer is completely filled or a read fails.
// On failure the buffer is marked incomplete and must not be streamed.
func (r *Recorder) Capture() error {
	r.complete = false
	r.captures++

	if err := r.reader.ReadPCM(r.buf); err != nil {
		r.failures++
		return fmt.Errorf("capture aborted after bus failure: %w", err)
	}

	r.complete = true
	r.logger.Info("Capture complete", slog.Int("samples", len(r.buf)))
	return nil
}

// Complete reports whether the last capture filled the whole buffer.
func (r *Recorder) Complete() bool {
	return r.complete
}

// Samples returns the recording buffer. Valid only while Complete is true;
// the buffer is overwritten in place by the next capture.
func (r *Recorder) Samples() []int16 {
	return r.buf
}

// SampleCount returns the fixed size of the recording buffer.
func (r *Recorder) SampleCount() int {
	return len(r.buf)
}

// Stats returns capture counters for observability.
func (r *Recorder) Stats() (captures, failures uint64) {
	return r.captures, r.failures
}

package audio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Bus framing constants. The capture path delivers 32-bit stereo frames;
// the usable microphone signal sits in the upper bits of the left slot,
// so every sample is right-shifted and clamped into the 16-bit range.
const (
	// ChunkFrames is the number of stereo frames transferred per bus read.
	ChunkFrames = 256

	// BytesPerRawSample is the width of one channel sample on the bus.
	BytesPerRawSample = 4

	// SampleShift is the fixed right-shift applied to each raw left sample.
	SampleShift = 11

	frameBytes = 2 * BytesPerRawSample
)

// FrameReader pulls mono audio out of the stereo-framed bus. It is the
// single owner of the bus handle: slice acquisition and trigger capture
// both go through the same reader and never run concurrently.
type FrameReader struct {
	bus     Bus
	timeout time.Duration
	scratch []byte
	logger  *slog.Logger
}

// NewFrameReader creates a reader over the given bus with a bounded
// per-chunk read timeout.
func NewFrameReader(bus Bus, timeout time.Duration, logger *slog.Logger) *FrameReader {
	return &FrameReader{
		bus:     bus,
		timeout: timeout,
		scratch: make([]byte, ChunkFrames*frameBytes),
		logger:  logger,
	}
}

// scaleSample converts one raw 32-bit left-channel sample to the 16-bit
// capture range. The shift amount and clamp bounds are fixed and must be
// identical on every frame.
func scaleSample(raw int32) int16 {
	s := raw >> SampleShift
	if s > math.MaxInt16 {
		s = math.MaxInt16
	}
	if s < math.MinInt16 {
		s = math.MinInt16
	}
	return int16(s)
}

// ReadSlice fills out with mono float samples and returns the RMS energy
// over the whole span. The call either fully refills out or fails; a bus
// error mid-acquisition discards the cycle and no partial content of out
// may be relied upon.
func (r *FrameReader) ReadSlice(out []float32) (float64, error) {
	var sumSq float64

	err := r.readFrames(len(out), func(i int, s int16) {
		out[i] = float32(s)
		sumSq += float64(s) * float64(s)
	})
	if err != nil {
		return 0, err
	}

	return math.Sqrt(sumSq / float64(len(out))), nil
}

// ReadPCM fills out with mono 16-bit samples without RMS accounting.
// Same full-or-fail contract as ReadSlice.
func (r *FrameReader) ReadPCM(out []int16) error {
	return r.readFrames(len(out), func(i int, s int16) {
		out[i] = s
	})
}

// readFrames collects monoSamples left-channel samples in bounded chunks,
// invoking store for each extracted sample in order.
func (r *FrameReader) readFrames(monoSamples int, store func(i int, s int16)) error {
	collected := 0

	for collected < monoSamples {
		frames := monoSamples - collected
		if frames > ChunkFrames {
			frames = ChunkFrames
		}

		want := frames * frameBytes
		n, err := r.bus.Read(r.scratch[:want], r.timeout)
		if err != nil {
			r.logger.Warn("Bus read failed",
				slog.Int("requested_bytes", want),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("%w: %v", ErrBusRead, err)
		}

		gotFrames := n / frameBytes
		if gotFrames == 0 {
			return fmt.Errorf("%w: empty transfer (%d bytes)", ErrBusRead, n)
		}

		for i := 0; i < gotFrames; i++ {
			raw := int32(binary.LittleEndian.Uint32(r.scratch[i*frameBytes:]))
			store(collected+i, scaleSample(raw))
		}
		collected += gotFrames
	}

	return nil
}

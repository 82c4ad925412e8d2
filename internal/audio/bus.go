package audio

import (
	"errors"
	"time"
)

// Bus is the capture bus capability. Read blocks until up to len(p) bytes
// are available or the timeout expires, returning the number of bytes
// read. Data is framed as interleaved two-channel samples of 32-bit
// little-endian width (one frame = left sample + right sample, 8 bytes).
type Bus interface {
	Read(p []byte, timeout time.Duration) (int, error)
}

// ErrBusRead marks a failed or timed-out bus transfer. A failed transfer
// invalidates the whole acquisition call; partial output is never valid.
var ErrBusRead = errors.New("bus read failed")

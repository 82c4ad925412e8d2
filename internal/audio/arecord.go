package audio

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"time"
)

// ArecordBus adapts an ALSA capture device to the Bus interface by running
// arecord with S32_LE stereo framing, matching the digital bus layout the
// FrameReader expects. A background goroutine drains the pipe so that Read
// can honor a bounded per-chunk timeout.
type ArecordBus struct {
	device     string
	sampleRate int

	cmd    *exec.Cmd
	stdout io.ReadCloser
	blocks chan []byte
	errs   chan error
	rest   []byte
	logger *slog.Logger
}

// NewArecordBus creates a bus over the named ALSA device (e.g. "default").
func NewArecordBus(device string, sampleRate int, logger *slog.Logger) *ArecordBus {
	return &ArecordBus{
		device:     device,
		sampleRate: sampleRate,
		blocks:     make(chan []byte, 8),
		errs:       make(chan error, 1),
		logger:     logger,
	}
}

// Start launches the arecord process and the drain goroutine.
func (b *ArecordBus) Start() error {
	b.cmd = exec.Command("arecord",
		"-D", b.device,
		"-c", "2",
		"-r", strconv.Itoa(b.sampleRate),
		"-f", "S32_LE",
		"-t", "raw",
		"-q",
	)

	stdout, err := b.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open arecord pipe: %w", err)
	}
	b.stdout = stdout

	if err := b.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start arecord: %w", err)
	}

	b.logger.Info("Capture bus started",
		slog.String("device", b.device),
		slog.Int("sample_rate", b.sampleRate),
	)

	go b.drain()
	return nil
}

// drain reads fixed-size blocks off the pipe and hands them to Read.
func (b *ArecordBus) drain() {
	for {
		block := make([]byte, ChunkFrames*2*BytesPerRawSample)
		if _, err := io.ReadFull(b.stdout, block); err != nil {
			select {
			case b.errs <- err:
			default:
			}
			close(b.blocks)
			return
		}
		b.blocks <- block
	}
}

// Read copies up to len(p) bytes of captured data into p, blocking until
// data is available or the timeout expires. A timeout is a hard failure
// for the transfer, not a partial success.
func (b *ArecordBus) Read(p []byte, timeout time.Duration) (int, error) {
	if len(b.rest) == 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case block, ok := <-b.blocks:
			if !ok {
				select {
				case err := <-b.errs:
					return 0, fmt.Errorf("capture pipe closed: %w", err)
				default:
					return 0, fmt.Errorf("capture pipe closed")
				}
			}
			b.rest = block
		case <-timer.C:
			return 0, fmt.Errorf("bus read timed out after %s", timeout)
		}
	}

	n := copy(p, b.rest)
	b.rest = b.rest[n:]
	return n, nil
}

// Stop terminates the arecord process.
func (b *ArecordBus) Stop() error {
	if b.cmd == nil || b.cmd.Process == nil {
		return nil
	}
	if err := b.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to stop arecord: %w", err)
	}
	b.cmd.Wait()
	return nil
}

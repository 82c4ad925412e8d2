package transport

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/skypro1111/wake-edge-agent/internal/protocol"
)

// Conn is the message-capable connection capability: send one text payload
// over a long-lived, previously established connection.
type Conn interface {
	SendText(payload []byte) error
}

// Streamer serializes a recording into one audio_start envelope followed
// by fixed-size audio_chunk envelopes, sent strictly in index order. The
// fixed pacing delay is a rate-limiting heuristic toward the peer, not a
// correctness mechanism.
type Streamer struct {
	conn         Conn
	deviceID     string
	chunkSamples int
	pacing       time.Duration
	ticks        func() int64
	logger       *slog.Logger

	streamsStarted   uint64
	streamsCompleted uint64
	chunksSent       uint64
}

// NewStreamer creates a streamer over the given connection. ticks supplies
// the monotonic millisecond counter stamped on every envelope.
func NewStreamer(conn Conn, deviceID string, chunkSamples int, pacing time.Duration, ticks func() int64, logger *slog.Logger) (*Streamer, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id cannot be empty")
	}
	if chunkSamples <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSamples)
	}

	return &Streamer{
		conn:         conn,
		deviceID:     deviceID,
		chunkSamples: chunkSamples,
		pacing:       pacing,
		ticks:        ticks,
		logger:       logger,
	}, nil
}

// Stream sends the full recording. On success every sample was transmitted
// exactly once, in order, split only at chunk boundaries. The first send
// failure aborts the stream with no retry and no abort signal; the peer
// detects the incomplete stream by the missing is_last chunk.
func (s *Streamer) Stream(samples []int16, confidence float32) error {
	if len(samples) == 0 {
		return fmt.Errorf("refusing to stream empty recording")
	}

	s.streamsStarted++

	start := protocol.NewAudioStart(s.deviceID, s.ticks(), len(samples), float64(confidence))
	if err := s.send(start); err != nil {
		return fmt.Errorf("failed to send audio_start: %w", err)
	}

	chunks := (len(samples) + s.chunkSamples - 1) / s.chunkSamples

	for index := 0; index < chunks; index++ {
		lo := index * s.chunkSamples
		hi := lo + s.chunkSamples
		if hi > len(samples) {
			hi = len(samples)
		}

		time.Sleep(s.pacing)

		encoded := encodePCM(samples[lo:hi])
		env := protocol.NewAudioChunk(s.deviceID, s.ticks(), index, index == chunks-1, encoded)
		if err := s.send(env); err != nil {
			return fmt.Errorf("failed to send chunk %d/%d: %w", index, chunks, err)
		}
		s.chunksSent++
	}

	s.streamsCompleted++
	s.logger.Info("Stream complete",
		slog.Int("total_samples", len(samples)),
		slog.Int("chunks", chunks),
	)
	return nil
}

// Chunks returns the number of chunk envelopes a recording of sampleCount
// samples produces.
func (s *Streamer) Chunks(sampleCount int) int {
	return (sampleCount + s.chunkSamples - 1) / s.chunkSamples
}

// Stats returns stream counters for observability.
func (s *Streamer) Stats() (started, completed, chunksSent uint64) {
	return s.streamsStarted, s.streamsCompleted, s.chunksSent
}

// send marshals and pushes one envelope over the connection.
func (s *Streamer) send(env *protocol.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	return s.conn.SendText(data)
}

// encodePCM encodes samples as standard padded base64 over their
// little-endian byte layout (RFC 4648, no line wrapping).
func encodePCM(samples []int16) string {
	raw := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(sample))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

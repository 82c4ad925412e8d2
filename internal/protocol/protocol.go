package protocol

import (
	"encoding/json"
	"fmt"
)

// Message type constants shared with the server
const (
	// Outbound (device -> server)
	TypeAudioStart   = "audio_start"
	TypeAudioChunk   = "audio_chunk"
	TypeActionResult = "action_result"

	// Inbound (server -> device)
	TypeAction = "action"
	TypePlay   = "play"

	// FormatPCM16k16 identifies raw little-endian 16-bit mono PCM at 16 kHz
	FormatPCM16k16 = "pcm_16k_16bit"
)

// Action result statuses. The server blocks on this ack after sending an
// action, so every executed action gets exactly one result message.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Envelope is the common wrapper for all outbound messages.
// Timestamp is a monotonic millisecond tick count since agent start,
// not wall-clock time.
type Envelope struct {
	Type      string      `json:"type"`
	DeviceID  string      `json:"device_id"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AudioStartPayload announces a chunked audio stream before the first chunk.
type AudioStartPayload struct {
	AudioFormat  string  `json:"audio_format"`
	TotalSamples int     `json:"total_samples"`
	Confidence   float64 `json:"confidence"`
}

// AudioChunkPayload carries one base64-encoded PCM chunk of a stream.
// ChunkIndex is zero-based and strictly incrementing; IsLast is true only
// on the final chunk of the stream.
type AudioChunkPayload struct {
	ChunkIndex int    `json:"chunk_index"`
	IsLast     bool   `json:"is_last"`
	DataBase64 string `json:"data_base64"`
}

// NewAudioStart builds the start-of-stream envelope.
func NewAudioStart(deviceID string, timestamp int64, totalSamples int, confidence float64) *Envelope {
	return &Envelope{
		Type:      TypeAudioStart,
		DeviceID:  deviceID,
		Timestamp: timestamp,
		Payload: AudioStartPayload{
			AudioFormat:  FormatPCM16k16,
			TotalSamples: totalSamples,
			Confidence:   confidence,
		},
	}
}

// NewAudioChunk builds a chunk envelope.
func NewAudioChunk(deviceID string, timestamp int64, index int, isLast bool, dataBase64 string) *Envelope {
	return &Envelope{
		Type:      TypeAudioChunk,
		DeviceID:  deviceID,
		Timestamp: timestamp,
		Payload: AudioChunkPayload{
			ChunkIndex: index,
			IsLast:     isLast,
			DataBase64: dataBase64,
		},
	}
}

// ActionResultPayload acknowledges one executed action command. Error is
// present only on failure.
type ActionResultPayload struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewActionResult builds the ack envelope for an executed action.
func NewActionResult(deviceID string, timestamp int64, success bool, errMsg string) *Envelope {
	payload := ActionResultPayload{Status: StatusSuccess}
	if !success {
		payload.Status = StatusFailure
		payload.Error = errMsg
	}
	return &Envelope{
		Type:      TypeActionResult,
		DeviceID:  deviceID,
		Timestamp: timestamp,
		Payload:   payload,
	}
}

// Marshal serializes the envelope to its JSON wire form.
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", e.Type, err)
	}
	return data, nil
}

// ActionPayload is the payload of an inbound "action" command.
// Sound, when present, names a feedback sound to play after actuation.
type ActionPayload struct {
	Action string `json:"action"`
	Target string `json:"target"`
	Value  string `json:"value"`
	Sound  string `json:"sound,omitempty"`
}

// PlayPayload is the payload of an inbound "play" command.
type PlayPayload struct {
	Audio string `json:"audio"`
}

// InboundMessage is a parsed server-to-device message. Only the payload
// matching Type is populated; the other payload is left zero-valued.
type InboundMessage struct {
	Type      string
	DeviceID  string
	Timestamp int64
	Action    ActionPayload
	Play      PlayPayload
}

// inboundWire mirrors the inbound JSON shape with the payload kept raw so
// that a malformed payload never fails the envelope parse.
type inboundWire struct {
	Type      string          `json:"type"`
	DeviceID  string          `json:"device_id"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// ParseInbound parses a server-to-device message. Missing fields are left
// at their zero values rather than treated as errors; only JSON that does
// not decode at all is rejected. Unknown types are returned as-is so the
// caller can ignore them.
func ParseInbound(data []byte) (*InboundMessage, error) {
	var wire inboundWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse inbound message: %w", err)
	}

	msg := &InboundMessage{
		Type:      wire.Type,
		DeviceID:  wire.DeviceID,
		Timestamp: wire.Timestamp,
	}

	if len(wire.Payload) == 0 {
		return msg, nil
	}

	switch wire.Type {
	case TypeAction:
		if err := json.Unmarshal(wire.Payload, &msg.Action); err != nil {
			return nil, fmt.Errorf("failed to parse action payload: %w", err)
		}
	case TypePlay:
		if err := json.Unmarshal(wire.Payload, &msg.Play); err != nil {
			return nil, fmt.Errorf("failed to parse play payload: %w", err)
		}
	}

	return msg, nil
}

// String returns a human-readable representation of the inbound message.
func (m *InboundMessage) String() string {
	switch m.Type {
	case TypeAction:
		return fmt.Sprintf("InboundMessage{Type:action, Action:%s, Target:%s, Value:%s}",
			m.Action.Action, m.Action.Target, m.Action.Value)
	case TypePlay:
		return fmt.Sprintf("InboundMessage{Type:play, Audio:%s}", m.Play.Audio)
	default:
		return fmt.Sprintf("InboundMessage{Type:%q}", m.Type)
	}
}

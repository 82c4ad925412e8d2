package protocol

import (
	"encoding/json"
	"testing"
)

func TestAudioStartEnvelope(t *testing.T) {
	env := NewAudioStart("esp32_01", 12345, 48000, 0.83)

	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("envelope is not valid JSON: %v", err)
	}

	if decoded["type"] != "audio_start" {
		t.Errorf("Expected type 'audio_start', got %v", decoded["type"])
	}
	if decoded["device_id"] != "esp32_01" {
		t.Errorf("Expected device_id 'esp32_01', got %v", decoded["device_id"])
	}
	if decoded["timestamp"] != float64(12345) {
		t.Errorf("Expected timestamp 12345, got %v", decoded["timestamp"])
	}

	payload, ok := decoded["payload"].(map[string]interface{})
	if !ok {
		t.Fatal("Envelope payload is not an object")
	}
	if payload["audio_format"] != FormatPCM16k16 {
		t.Errorf("Expected audio_format %q, got %v", FormatPCM16k16, payload["audio_format"])
	}
	if payload["total_samples"] != float64(48000) {
		t.Errorf("Expected total_samples 48000, got %v", payload["total_samples"])
	}
	if payload["confidence"] != 0.83 {
		t.Errorf("Expected confidence 0.83, got %v", payload["confidence"])
	}
}

func TestAudioChunkEnvelope(t *testing.T) {
	env := NewAudioChunk("esp32_01", 777, 4, true, "AAAA")

	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded struct {
		Type    string `json:"type"`
		Payload struct {
			ChunkIndex int    `json:"chunk_index"`
			IsLast     bool   `json:"is_last"`
			DataBase64 string `json:"data_base64"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("envelope is not valid JSON: %v", err)
	}

	if decoded.Type != "audio_chunk" {
		t.Errorf("Expected type 'audio_chunk', got %q", decoded.Type)
	}
	if decoded.Payload.ChunkIndex != 4 {
		t.Errorf("Expected chunk_index 4, got %d", decoded.Payload.ChunkIndex)
	}
	if !decoded.Payload.IsLast {
		t.Error("Expected is_last to be true")
	}
	if decoded.Payload.DataBase64 != "AAAA" {
		t.Errorf("Expected data_base64 'AAAA', got %q", decoded.Payload.DataBase64)
	}
}

func TestActionResultEnvelope(t *testing.T) {
	env := NewActionResult("esp32_01", 555, true, "")

	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("envelope is not valid JSON: %v", err)
	}

	if decoded["type"] != "action_result" {
		t.Errorf("Expected type 'action_result', got %v", decoded["type"])
	}
	if decoded["device_id"] != "esp32_01" {
		t.Errorf("Expected device_id 'esp32_01', got %v", decoded["device_id"])
	}

	payload, ok := decoded["payload"].(map[string]interface{})
	if !ok {
		t.Fatal("Envelope payload is not an object")
	}
	if payload["status"] != StatusSuccess {
		t.Errorf("Expected status %q, got %v", StatusSuccess, payload["status"])
	}
	if _, present := payload["error"]; present {
		t.Error("Success result must not carry an error field")
	}
}

func TestActionResultFailureCarriesError(t *testing.T) {
	env := NewActionResult("esp32_01", 556, false, "target unreachable")

	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded struct {
		Payload ActionResultPayload `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("envelope is not valid JSON: %v", err)
	}

	if decoded.Payload.Status != StatusFailure {
		t.Errorf("Expected status %q, got %q", StatusFailure, decoded.Payload.Status)
	}
	if decoded.Payload.Error != "target unreachable" {
		t.Errorf("Expected error message, got %q", decoded.Payload.Error)
	}
}

func TestParseInboundAction(t *testing.T) {
	raw := `{"type":"action","device_id":"srv","timestamp":99,
		"payload":{"action":"relay_set","target":"light","value":"on","sound":"ok.wav"}}`

	msg, err := ParseInbound([]byte(raw))
	if err != nil {
		t.Fatalf("ParseInbound failed: %v", err)
	}

	if msg.Type != TypeAction {
		t.Errorf("Expected type 'action', got %q", msg.Type)
	}
	if msg.Action.Action != "relay_set" {
		t.Errorf("Expected action 'relay_set', got %q", msg.Action.Action)
	}
	if msg.Action.Target != "light" {
		t.Errorf("Expected target 'light', got %q", msg.Action.Target)
	}
	if msg.Action.Value != "on" {
		t.Errorf("Expected value 'on', got %q", msg.Action.Value)
	}
	if msg.Action.Sound != "ok.wav" {
		t.Errorf("Expected sound 'ok.wav', got %q", msg.Action.Sound)
	}
}

func TestParseInboundPlay(t *testing.T) {
	raw := `{"type":"play","payload":{"audio":"welcome.wav"}}`

	msg, err := ParseInbound([]byte(raw))
	if err != nil {
		t.Fatalf("ParseInbound failed: %v", err)
	}

	if msg.Type != TypePlay {
		t.Errorf("Expected type 'play', got %q", msg.Type)
	}
	if msg.Play.Audio != "welcome.wav" {
		t.Errorf("Expected audio 'welcome.wav', got %q", msg.Play.Audio)
	}
}

func TestParseInboundMissingFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty payload", `{"type":"action"}`},
		{"partial action payload", `{"type":"action","payload":{"action":"relay_set"}}`},
		{"no type", `{"payload":{"audio":"x.wav"}}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseInbound([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseInbound should tolerate missing fields, got error: %v", err)
			}
			if msg == nil {
				t.Fatal("ParseInbound returned nil message")
			}
		})
	}
}

func TestParseInboundUnknownType(t *testing.T) {
	raw := `{"type":"reboot","device_id":"srv","payload":{"delay":5}}`

	msg, err := ParseInbound([]byte(raw))
	if err != nil {
		t.Fatalf("ParseInbound failed on unknown type: %v", err)
	}
	if msg.Type != "reboot" {
		t.Errorf("Expected type 'reboot' passed through, got %q", msg.Type)
	}
}

func TestParseInboundInvalidJSON(t *testing.T) {
	if _, err := ParseInbound([]byte("not json at all")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

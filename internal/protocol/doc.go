// Package protocol defines the JSON message envelopes exchanged with the
// remote service: outbound audio stream framing (audio_start/audio_chunk)
// and inbound device commands (action/play), parsed defensively.
package protocol

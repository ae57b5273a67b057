// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tts implements the text-to-speech gateway: the WebSocket endpoint
// dashboard clients connect to, and the upstream bridge to the speech
// provider. This file defines the wire messages both sides exchange.
package tts

// Server message types sent to connected clients.
const (
	// MessageTypeAudioChunk carries one base64 audio chunk.
	MessageTypeAudioChunk = "audio_chunk"
	// MessageTypeFinal marks the end of a synthesis stream.
	MessageTypeFinal = "final"
	// MessageTypeError reports a synthesis failure.
	MessageTypeError = "error"
	// MessageTypePong answers a client keep-alive ping.
	MessageTypePong = "pong"
)

// Client message types received on the socket.
const (
	// MessageTypePing is a client keep-alive; it carries no payload.
	MessageTypePing = "ping"
)

// ClientFrame is one inbound message. Frames with Type "ping" are
// keep-alives; every other frame is treated as a synthesis request with the
// embedded fields.
type ClientFrame struct {
	Type string `json:"type,omitempty"`
	SynthesisRequest
}

// VoiceSettings tune the synthesized voice. Zero values mean provider
// defaults.
type VoiceSettings struct {
	Stability       float64 `json:"stability,omitempty"`
	SimilarityBoost float64 `json:"similarity_boost,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}

// SynthesisRequest is what a client sends to start one synthesis. Only Text
// is required; everything else falls back to configured defaults.
type SynthesisRequest struct {
	Text                string         `json:"text"`
	VoiceId             string         `json:"voice_id,omitempty"`
	ModelId             string         `json:"model_id,omitempty"`
	VoiceSettings       *VoiceSettings `json:"voice_settings,omitempty"`
	ChunkLengthSchedule []int          `json:"chunk_length_schedule,omitempty"`
}

// ServerMessage is one message sent back to the client. AudioBase64 is set
// on audio chunks; Message is set on errors. TotalSize is the running byte
// total of decoded audio so far, repeated on the final message as the
// authoritative clip size, so clients can size their buffers without
// counting themselves.
type ServerMessage struct {
	Type        string `json:"type"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	TotalSize   int    `json:"total_size,omitempty"`
	Message     string `json:"message,omitempty"`
}

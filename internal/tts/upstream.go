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

// Package tts implements the text-to-speech gateway. This file holds the
// upstream client for the speech provider's streaming synthesis WebSocket.
//
// Protocol: connect to /v1/text-to-speech/{voice_id}/stream-input, send an
// initialization message carrying the API key, voice settings and chunk
// length schedule, then the text, then an empty text message as the end of
// input. The provider streams back JSON frames with base64 audio; a frame
// with isFinal set closes the stream.
package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
)

// upstreamHandshakeTimeout bounds the provider connection dial.
const upstreamHandshakeTimeout = 15 * time.Second

// Upstream synthesizes speech by bridging one request to the provider's
// streaming WebSocket.
type Upstream struct {
	config *cloud.ElevenLabs
}

// NewUpstream creates the provider client from configuration.
func NewUpstream(config *cloud.ElevenLabs) *Upstream {
	return &Upstream{config: config}
}

// initMessage is the first frame of a provider session.
type initMessage struct {
	Text             string            `json:"text"`
	VoiceSettings    *VoiceSettings    `json:"voice_settings,omitempty"`
	GenerationConfig *generationConfig `json:"generation_config,omitempty"`
	ApiKey           string            `json:"xi_api_key"`
}

type generationConfig struct {
	ChunkLengthSchedule []int `json:"chunk_length_schedule,omitempty"`
}

// textMessage carries the text to synthesize; an empty Text closes input.
type textMessage struct {
	Text                 string `json:"text"`
	TryTriggerGeneration bool   `json:"try_trigger_generation,omitempty"`
}

// providerFrame is one response frame from the provider.
type providerFrame struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Synthesize streams one request through the provider. Each decoded audio
// chunk is handed to emit in arrival order; emit returning an error aborts
// the stream.
//
// Inputs:
//   - ctx: The context bounding the whole synthesis.
//   - req: The synthesis request, already defaulted by the caller.
//   - emit: Callback receiving each raw (decoded) audio chunk.
//
// Outputs:
//   - error: A connection, protocol or emit error. A completed stream
//     returns nil.
func (u *Upstream) Synthesize(ctx context.Context, req *SynthesisRequest, emit func(chunk []byte) error) error {
	endpoint, err := u.streamUrl(req)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: upstreamHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to speech provider: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// The provider wants a leading space in the priming message and a
	// trailing space on the text so its chunker has a word boundary.
	init := &initMessage{
		Text:          " ",
		VoiceSettings: req.VoiceSettings,
		ApiKey:        u.config.ApiKey,
	}
	if len(req.ChunkLengthSchedule) > 0 {
		init.GenerationConfig = &generationConfig{ChunkLengthSchedule: req.ChunkLengthSchedule}
	}
	if err := conn.WriteJSON(init); err != nil {
		return fmt.Errorf("failed to initialize provider session: %w", err)
	}
	if err := conn.WriteJSON(&textMessage{Text: strings.TrimRight(req.Text, " ") + " ", TryTriggerGeneration: true}); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	if err := conn.WriteJSON(&textMessage{Text: ""}); err != nil {
		return fmt.Errorf("failed to close provider input: %w", err)
	}

	for {
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetReadDeadline(deadline)
		}
		frame := &providerFrame{}
		if err := conn.ReadJSON(frame); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("provider stream failed: %w", err)
		}
		if frame.Error != "" {
			return fmt.Errorf("provider error: %s %s", frame.Error, frame.Message)
		}
		if frame.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(frame.Audio)
			if err != nil {
				return fmt.Errorf("provider sent undecodable audio: %w", err)
			}
			if err := emit(chunk); err != nil {
				return err
			}
		}
		if frame.IsFinal {
			return nil
		}
	}
}

// streamUrl builds the provider endpoint for one request, applying the
// configured voice and model defaults.
func (u *Upstream) streamUrl(req *SynthesisRequest) (string, error) {
	voiceId := req.VoiceId
	if voiceId == "" {
		voiceId = u.config.DefaultVoiceId
	}
	modelId := req.ModelId
	if modelId == "" {
		modelId = u.config.DefaultModelId
	}
	if voiceId == "" {
		return "", fmt.Errorf("no voice selected and no default configured")
	}

	base, err := url.Parse(u.config.BaseUrl)
	if err != nil {
		return "", fmt.Errorf("invalid provider base url: %w", err)
	}
	base.Path = fmt.Sprintf("/v1/text-to-speech/%s/stream-input", voiceId)
	q := base.Query()
	if modelId != "" {
		q.Set("model_id", modelId)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

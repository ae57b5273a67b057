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

package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
)

func TestStreamUrl(t *testing.T) {
	upstream := NewUpstream(&cloud.ElevenLabs{
		BaseUrl:        "wss://api.example.com",
		DefaultVoiceId: "voice-default",
		DefaultModelId: "model-default",
	})

	// Request values win over the configured defaults.
	endpoint, err := upstream.streamUrl(&SynthesisRequest{VoiceId: "voice-a", ModelId: "model-b"})
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/v1/text-to-speech/voice-a/stream-input?model_id=model-b", endpoint)

	// Defaults fill in when the request leaves them out.
	endpoint, err = upstream.streamUrl(&SynthesisRequest{})
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/v1/text-to-speech/voice-default/stream-input?model_id=model-default", endpoint)

	// No voice anywhere is an error.
	upstream = NewUpstream(&cloud.ElevenLabs{BaseUrl: "wss://api.example.com"})
	_, err = upstream.streamUrl(&SynthesisRequest{})
	assert.Error(t, err)
}

// TestSynthesize runs a full session against a stub provider: it checks the
// initialization frame carries the API key, the text frame gets the trailing
// word-boundary space, and the decoded chunks come back in order.
func TestSynthesize(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	chunkA := []byte("first-audio-chunk")
	chunkB := []byte("second-audio-chunk")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-a/stream-input", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()

		var init map[string]any
		require.NoError(t, conn.ReadJSON(&init))
		assert.Equal(t, "secret-key", init["xi_api_key"])

		var text map[string]any
		require.NoError(t, conn.ReadJSON(&text))
		assert.True(t, strings.HasSuffix(text["text"].(string), " "))

		var closer map[string]any
		require.NoError(t, conn.ReadJSON(&closer))
		assert.Equal(t, "", closer["text"])

		for _, chunk := range [][]byte{chunkA, chunkB} {
			frame, _ := json.Marshal(map[string]any{"audio": base64.StdEncoding.EncodeToString(chunk)})
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
		}
		final, _ := json.Marshal(map[string]any{"isFinal": true})
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, final))
	}))
	defer srv.Close()

	upstream := NewUpstream(&cloud.ElevenLabs{
		ApiKey:  "secret-key",
		BaseUrl: "ws" + strings.TrimPrefix(srv.URL, "http"),
	})

	var got [][]byte
	err := upstream.Synthesize(context.Background(), &SynthesisRequest{VoiceId: "voice-a", Text: "Hello there."}, func(chunk []byte) error {
		got = append(got, chunk)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, chunkA, got[0])
	assert.Equal(t, chunkB, got[1])
}

func TestVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/voices", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("xi-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"voices": [{"voice_id": "voice-a", "name": "Rachel", "category": "premade"}]}`))
	}))
	defer srv.Close()

	// The configured base URL is the WebSocket one; the catalog call must
	// rewrite it to HTTP.
	upstream := NewUpstream(&cloud.ElevenLabs{
		ApiKey:  "secret-key",
		BaseUrl: "ws" + strings.TrimPrefix(srv.URL, "http"),
	})

	voices, err := upstream.Voices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "voice-a", voices[0].VoiceId)
	assert.Equal(t, "Rachel", voices[0].Name)
}

func TestSynthesizeProviderError(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()
		for i := 0; i < 3; i++ {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
		}
		frame, _ := json.Marshal(map[string]any{"error": "invalid_voice", "message": "voice not found"})
		_ = conn.WriteMessage(websocket.TextMessage, frame)
	}))
	defer srv.Close()

	upstream := NewUpstream(&cloud.ElevenLabs{
		ApiKey:  "secret-key",
		BaseUrl: "ws" + strings.TrimPrefix(srv.URL, "http"),
	})

	err := upstream.Synthesize(context.Background(), &SynthesisRequest{VoiceId: "voice-a", Text: "Hello."}, func(chunk []byte) error {
		t.Fatal("no audio expected")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voice not found")
}

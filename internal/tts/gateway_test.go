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
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
)

// newGatewayConn stands up a stub speech provider and a gateway fronting
// it, then dials the gateway the way a dashboard client would. The returned
// connection is ready for client frames.
func newGatewayConn(t *testing.T, chunks [][]byte) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()

		// Drain the init, text and closer frames before streaming audio.
		for i := 0; i < 3; i++ {
			var frame map[string]any
			require.NoError(t, conn.ReadJSON(&frame))
		}
		for _, chunk := range chunks {
			payload, _ := json.Marshal(map[string]any{"audio": base64.StdEncoding.EncodeToString(chunk)})
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
		}
		final, _ := json.Marshal(map[string]any{"isFinal": true})
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, final))
	}))
	t.Cleanup(provider.Close)

	gateway := NewGateway(NewUpstream(&cloud.ElevenLabs{
		ApiKey:         "secret-key",
		BaseUrl:        "ws" + strings.TrimPrefix(provider.URL, "http"),
		DefaultVoiceId: "voice-default",
	}), nil, "")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws/text-to-speech", gateway.Handle)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/text-to-speech", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// TestGatewayKeepAlive checks that a ping frame is answered with a pong
// instead of tripping the synthesis request validation.
func TestGatewayKeepAlive(t *testing.T) {
	conn := newGatewayConn(t, nil)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	reply := &ServerMessage{}
	require.NoError(t, conn.ReadJSON(reply))
	assert.Equal(t, MessageTypePong, reply.Type)
	assert.Empty(t, reply.Message)
}

// TestGatewaySynthesisStream runs one synthesis through the gateway and
// checks the chunk framing: running totals on each audio message and the
// authoritative clip size on the final one.
func TestGatewaySynthesisStream(t *testing.T) {
	chunkA := []byte("alpha-audio")
	chunkB := []byte("beta-audio-bytes")
	conn := newGatewayConn(t, [][]byte{chunkA, chunkB})

	require.NoError(t, conn.WriteJSON(&SynthesisRequest{Text: "Hello there."}))

	first := &ServerMessage{}
	require.NoError(t, conn.ReadJSON(first))
	require.Equal(t, MessageTypeAudioChunk, first.Type)
	decoded, err := base64.StdEncoding.DecodeString(first.AudioBase64)
	require.NoError(t, err)
	assert.Equal(t, chunkA, decoded)
	assert.Equal(t, len(chunkA), first.TotalSize)

	second := &ServerMessage{}
	require.NoError(t, conn.ReadJSON(second))
	require.Equal(t, MessageTypeAudioChunk, second.Type)
	assert.Equal(t, len(chunkA)+len(chunkB), second.TotalSize)

	final := &ServerMessage{}
	require.NoError(t, conn.ReadJSON(final))
	assert.Equal(t, MessageTypeFinal, final.Type)
	assert.Equal(t, len(chunkA)+len(chunkB), final.TotalSize)
}

// TestGatewayRejectsEmptyText checks the request validation still fires for
// frames that are neither pings nor usable synthesis requests.
func TestGatewayRejectsEmptyText(t *testing.T) {
	conn := newGatewayConn(t, nil)

	require.NoError(t, conn.WriteJSON(&SynthesisRequest{}))

	reply := &ServerMessage{}
	require.NoError(t, conn.ReadJSON(reply))
	assert.Equal(t, MessageTypeError, reply.Type)
	assert.Contains(t, reply.Message, "text is required")
}

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

package stream

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// synthesisEcho is a WebSocket handler that answers every synthesis request
// with two audio chunks and a final message, mimicking the gateway protocol.
func synthesisEcho(w http.ResponseWriter, r *http.Request) {
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	for {
		var req tts.SynthesisRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		chunkA := []byte(strings.Repeat("a", 100))
		chunkB := []byte(strings.Repeat("b", 200))
		_ = conn.WriteJSON(&tts.ServerMessage{
			Type:        tts.MessageTypeAudioChunk,
			AudioBase64: base64.StdEncoding.EncodeToString(chunkA),
			TotalSize:   len(chunkA),
		})
		_ = conn.WriteJSON(&tts.ServerMessage{
			Type:        tts.MessageTypeAudioChunk,
			AudioBase64: base64.StdEncoding.EncodeToString(chunkB),
			TotalSize:   len(chunkA) + len(chunkB),
		})
		_ = conn.WriteJSON(&tts.ServerMessage{
			Type:      tts.MessageTypeFinal,
			TotalSize: len(chunkA) + len(chunkB),
		})
	}
}

// wsUrl converts an httptest server URL to its WebSocket form.
func wsUrl(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// waitForState polls until the client reaches the wanted state or the
// deadline passes.
func waitForState(t *testing.T, client *Client, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if client.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client never reached state %s (currently %s)", want, client.State())
}

func TestStreamTextToSpeech(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(synthesisEcho))
	defer server.Close()

	client := NewClient(wsUrl(server), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()
	defer client.Close()

	waitForState(t, client, StateConnected)

	err := client.StreamTextToSpeech(ctx, &tts.SynthesisRequest{Text: "hello world"})
	require.NoError(t, err)

	// Both chunks accumulate and the total matches the server's count.
	assert.Equal(t, 300, len(client.Audio()))
	assert.Equal(t, 300, client.TotalSize())

	// A second request starts a fresh clip; the first one's audio does not
	// leak into it.
	err = client.StreamTextToSpeech(ctx, &tts.SynthesisRequest{Text: "again"})
	require.NoError(t, err)
	assert.Equal(t, 300, len(client.Audio()))
	assert.Equal(t, 300, client.TotalSize())

	client.Reset()
	assert.Equal(t, 0, len(client.Audio()))
	assert.Equal(t, 0, client.TotalSize())
}

func TestStreamRejectsWhenDisconnected(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1/ws", nil)
	err := client.StreamTextToSpeech(context.Background(), &tts.SynthesisRequest{Text: "hello"})
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestStreamServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		var req tts.SynthesisRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		_ = conn.WriteJSON(&tts.ServerMessage{Type: tts.MessageTypeError, Message: "voice not found"})
		// Keep the connection open so the client stays connected.
		for {
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client := NewClient(wsUrl(server), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()
	defer client.Close()

	waitForState(t, client, StateConnected)

	err := client.StreamTextToSpeech(ctx, &tts.SynthesisRequest{Text: "hello"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "voice not found")
}

func TestRunGivesUpAfterMaxFailures(t *testing.T) {
	// Nothing listens on this port, so every connection attempt fails.
	client := NewClient("ws://127.0.0.1:1/ws", nil)

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Minute):
		t.Fatal("Run did not give up after repeated connection failures")
	}
	assert.Equal(t, StateClosed, client.State())
}

// TestRunRetriesAfterDrop drops an established connection and checks the
// client spends its full reconnect budget: five dials with doubling delays
// before Run gives up.
func TestRunRetriesAfterDrop(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the full reconnect backoff")
	}

	var dials atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dials.Add(1) > 1 {
			// Refuse every reconnect so each attempt counts as a failure.
			http.Error(w, "gone", http.StatusForbidden)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// One message marks the connection as established, then drop it.
		_ = conn.WriteJSON(&tts.ServerMessage{Type: tts.MessageTypePong})
		_ = conn.Close()
	}))
	defer server.Close()

	client := NewClient(wsUrl(server), nil)
	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "giving up after 5 connection attempts")
	case <-time.After(2 * time.Minute):
		t.Fatal("Run did not give up after the reconnect budget was spent")
	}

	// The first dial succeeded; the five that follow are the reconnects.
	assert.Equal(t, int32(6), dials.Load())
	assert.Equal(t, StateClosed, client.State())
}

func TestHandleMessageIgnoresUnknownTypes(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1/ws", nil)
	client.handleMessage(&tts.ServerMessage{
		Type:        tts.MessageTypeAudioChunk,
		AudioBase64: base64.StdEncoding.EncodeToString([]byte("abc")),
		TotalSize:   3,
	})
	// A message with a type this client does not know leaves the buffer and
	// the counters untouched.
	client.handleMessage(&tts.ServerMessage{Type: "subtitle_chunk", Message: "??"})
	assert.Equal(t, []byte("abc"), client.Audio())
	assert.Equal(t, 3, client.TotalSize())
}

func TestBackoffDelayDoubles(t *testing.T) {
	assert.Equal(t, 1*time.Second, backoffDelay(1))
	assert.Equal(t, 2*time.Second, backoffDelay(2))
	assert.Equal(t, 4*time.Second, backoffDelay(3))
	assert.Equal(t, 8*time.Second, backoffDelay(4))
	assert.Equal(t, 16*time.Second, backoffDelay(5))
	// The delay caps instead of growing unbounded.
	assert.Equal(t, 30*time.Second, backoffDelay(10))
}

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
// WebSocket endpoint itself: it upgrades the client connection, reads
// synthesis requests, bridges them through the upstream provider and
// streams audio chunks back. Completed clips are archived to Cloud Storage
// so replays don't cost another synthesis.
package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
)

const (
	// gatewayPingInterval keeps idle client connections alive through
	// intermediaries.
	gatewayPingInterval = 25 * time.Second
	// gatewayPongWait is how long a client may go silent before the
	// connection is considered dead.
	gatewayPongWait = 70 * time.Second
	// gatewayWriteWait bounds each outbound write.
	gatewayWriteWait = 10 * time.Second
	// maxRequestBytes caps inbound request frames.
	maxRequestBytes = 64 * 1024
	// synthesisTimeout bounds one end-to-end synthesis.
	synthesisTimeout = 2 * time.Minute
)

// Gateway serves the text-to-speech WebSocket endpoint.
type Gateway struct {
	upstream      *Upstream
	storageClient *storage.Client
	audioBucket   string
	upgrader      websocket.Upgrader
}

// NewGateway creates the gateway.
//
// Inputs:
//   - upstream: The speech provider client.
//   - storageClient: GCS client used for clip archival; nil disables it.
//   - audioBucket: Bucket clips are archived to; empty disables archival.
//
// Outputs:
//   - *Gateway: The configured gateway.
func NewGateway(upstream *Upstream, storageClient *storage.Client, audioBucket string) *Gateway {
	return &Gateway{
		upstream:      upstream,
		storageClient: storageClient,
		audioBucket:   audioBucket,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Auth happens via the bearer token before the upgrade, so
			// cross-origin dashboard clients are fine here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle is the gin handler for the WebSocket endpoint. One connection
// serves any number of sequential synthesis requests.
func (g *Gateway) Handle(c *gin.Context) {
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Printf("text-to-speech upgrade failed: %v\n", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxRequestBytes)
	_ = conn.SetReadDeadline(time.Now().Add(gatewayPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(gatewayPongWait))
	})

	// Writes come from both the synthesis loop and the ping ticker, so
	// they are funneled through one channel.
	outbound := make(chan *ServerMessage, 64)
	done := make(chan struct{})
	go g.writePump(conn, outbound, done)
	defer close(outbound)

	for {
		frame := &ClientFrame{}
		if err := conn.ReadJSON(frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("text-to-speech connection dropped: %v\n", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(gatewayPongWait))

		if frame.Type == MessageTypePing {
			outbound <- &ServerMessage{Type: MessageTypePong}
			continue
		}
		if frame.Text == "" {
			outbound <- &ServerMessage{Type: MessageTypeError, Message: "text is required"}
			continue
		}
		g.synthesize(c, &frame.SynthesisRequest, outbound)

		select {
		case <-done:
			return
		default:
		}
	}
}

// synthesize runs one request through the upstream and forwards its chunks.
func (g *Gateway) synthesize(c *gin.Context, request *SynthesisRequest, outbound chan<- *ServerMessage) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), synthesisTimeout)
	defer cancel()

	clip := make([]byte, 0)
	totalSize := 0
	err := g.upstream.Synthesize(ctx, request, func(chunk []byte) error {
		totalSize += len(chunk)
		clip = append(clip, chunk...)
		outbound <- &ServerMessage{
			Type:        MessageTypeAudioChunk,
			AudioBase64: base64.StdEncoding.EncodeToString(chunk),
			TotalSize:   totalSize,
		}
		return nil
	})
	if err != nil {
		log.Printf("synthesis failed: %v\n", err)
		outbound <- &ServerMessage{Type: MessageTypeError, Message: err.Error()}
		return
	}

	outbound <- &ServerMessage{Type: MessageTypeFinal, TotalSize: totalSize}
	g.archive(clip)
}

// archive stores a completed clip in the audio bucket. Failures are logged
// and swallowed: archival is an optimization, not part of the stream.
func (g *Gateway) archive(clip []byte) {
	if g.storageClient == nil || g.audioBucket == "" || len(clip) == 0 {
		return
	}
	name := fmt.Sprintf("clips/%s.mp3", uuid.NewString())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := cloud.ArchiveObject(ctx, g.storageClient, g.audioBucket, name, "audio/mpeg", clip); err != nil {
		log.Printf("failed to archive clip %s: %v\n", name, err)
	}
}

// writePump serializes all writes to the client connection and keeps the
// ping cadence. On a write failure it closes done but keeps draining the
// outbound channel so producers never block on a dead connection; it
// returns once the channel is closed.
func (g *Gateway) writePump(conn *websocket.Conn, outbound <-chan *ServerMessage, done chan<- struct{}) {
	ticker := time.NewTicker(gatewayPingInterval)
	defer ticker.Stop()

	failed := false
	fail := func() {
		if !failed {
			failed = true
			close(done)
		}
	}

	for {
		select {
		case message, ok := <-outbound:
			if !ok {
				if !failed {
					_ = conn.SetWriteDeadline(time.Now().Add(gatewayWriteWait))
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				}
				return
			}
			if failed {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(gatewayWriteWait))
			if err := conn.WriteJSON(message); err != nil {
				fail()
			}
		case <-ticker.C:
			if failed {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(gatewayWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				fail()
			}
		}
	}
}

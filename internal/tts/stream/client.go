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

// Package stream implements the playback client for the text-to-speech
// WebSocket endpoint. It maintains the connection with exponential-backoff
// reconnects, buffers the audio chunks of the current synthesis and tracks
// the server-reported byte total.
package stream

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/tts"
)

// ErrNotConnected is returned when a synthesis is requested while the
// client has no usable connection. Requests never queue behind a reconnect.
var ErrNotConnected = errors.New("stream client not connected")

// ErrClosed is returned once the client has given up reconnecting or was
// closed explicitly.
var ErrClosed = errors.New("stream client closed")

const (
	// baseReconnectDelay is the wait before the first reconnect attempt;
	// each consecutive failure doubles it.
	baseReconnectDelay = 1 * time.Second
	// maxReconnectDelay caps the doubling.
	maxReconnectDelay = 30 * time.Second
	// maxReconnectAttempts is how many consecutive failures the client
	// tolerates before it stops trying.
	maxReconnectAttempts = 5
	// handshakeTimeout bounds each dial.
	handshakeTimeout = 15 * time.Second
	// writeWait bounds outbound writes.
	writeWait = 10 * time.Second
)

// State is the client's connection state.
type State int

const (
	// StateDisconnected means no connection and no reconnect in progress.
	StateDisconnected State = iota
	// StateConnecting means a dial or reconnect is in progress.
	StateConnecting
	// StateConnected means requests can be streamed.
	StateConnected
	// StateClosed means the client gave up or was closed; it will not
	// reconnect.
	StateClosed
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Client is the playback client. One synthesis runs at a time; the buffer
// holds the current request's clip and is cleared when the next one starts.
type Client struct {
	url    string
	header http.Header
	dialer *websocket.Dialer

	mu        sync.RWMutex
	conn      *websocket.Conn
	state     State
	audio     []byte
	totalSize int
	lastError string

	// pending is non-nil while a synthesis is in flight; the read loop
	// resolves it on a final or error message.
	pending chan error

	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient creates a client for the given WebSocket URL. The header
// carries the bearer token the endpoint requires.
func NewClient(url string, header http.Header) *Client {
	return &Client{
		url:    url,
		header: header,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		state:  StateDisconnected,
		audio:  make([]byte, 0),
		done:   make(chan struct{}),
	}
}

// Run connects and keeps the connection alive, reconnecting with doubling
// delays on failure. It blocks until the context is cancelled, Close is
// called, or the reconnect budget is exhausted.
//
// Outputs:
//   - error: The final connection error once the client stops, or the
//     context error on cancellation.
func (c *Client) Run(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	defer close(c.done)
	defer c.setState(StateClosed)

	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c.setState(StateConnecting)
		established, err := c.connectAndHandle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if established {
			// A connection that carried traffic resets the budget; only
			// back-to-back failures count against it.
			consecutiveFailures = 0
		} else {
			consecutiveFailures++
		}

		c.mu.Lock()
		c.lastError = err.Error()
		c.conn = nil
		c.state = StateDisconnected
		c.failPendingLocked(ErrNotConnected)
		c.mu.Unlock()

		if consecutiveFailures >= maxReconnectAttempts {
			return fmt.Errorf("giving up after %d connection attempts: %w", consecutiveFailures, err)
		}

		delay := backoffDelay(consecutiveFailures + 1)
		log.Printf("stream connection lost (%v), reconnecting in %s\n", err, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// connectAndHandle dials once and runs the read loop until the connection
// fails. The first return value reports whether the dial succeeded and at
// least one message was read, which is what resets the reconnect budget.
func (c *Client) connectAndHandle(ctx context.Context) (bool, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return false, fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.lastError = ""
	c.mu.Unlock()

	// Close the socket when the context ends so the blocked read returns.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	established := false
	for {
		message := &tts.ServerMessage{}
		if err := conn.ReadJSON(message); err != nil {
			_ = conn.Close()
			return established, fmt.Errorf("read failed: %w", err)
		}
		established = true
		c.handleMessage(message)
	}
}

// handleMessage applies one server message to the buffer and the pending
// synthesis.
func (c *Client) handleMessage(message *tts.ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch message.Type {
	case tts.MessageTypeAudioChunk:
		chunk, err := base64.StdEncoding.DecodeString(message.AudioBase64)
		if err != nil {
			log.Printf("dropping undecodable audio chunk: %v\n", err)
			return
		}
		c.audio = append(c.audio, chunk...)
		// The server's running total is authoritative, not our own
		// count, so partial drops are detectable by comparing the two.
		c.totalSize = message.TotalSize
	case tts.MessageTypeFinal:
		// The final message repeats the clip size; adopt it as the
		// authoritative total.
		if message.TotalSize > 0 {
			c.totalSize = message.TotalSize
		}
		c.resolvePendingLocked(nil)
	case tts.MessageTypeError:
		c.resolvePendingLocked(fmt.Errorf("synthesis failed: %s", message.Message))
	case tts.MessageTypePong:
		// Keep-alive answer, nothing to apply.
	default:
		log.Printf("ignoring unrecognized stream message type %q\n", message.Type)
	}
}

// StreamTextToSpeech sends one synthesis request and waits for it to
// complete. The buffer is cleared first, so each request yields a fresh
// clip; the audio accumulates in it as the chunks stream in. The call
// fails immediately when the client is not connected.
//
// Inputs:
//   - ctx: Bounds the wait for completion.
//   - request: The synthesis request.
//
// Outputs:
//   - error: ErrNotConnected, ErrClosed, a context error, or the error the
//     server reported.
func (c *Client) StreamTextToSpeech(ctx context.Context, request *tts.SynthesisRequest) error {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ErrClosed
	case StateConnected:
	default:
		c.mu.Unlock()
		return ErrNotConnected
	}
	if c.pending != nil {
		c.mu.Unlock()
		return errors.New("a synthesis is already in flight")
	}
	c.audio = c.audio[:0]
	c.totalSize = 0
	pending := make(chan error, 1)
	c.pending = pending
	conn := c.conn
	c.mu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(request); err != nil {
		c.mu.Lock()
		c.failPendingLocked(fmt.Errorf("failed to send request: %w", err))
		c.mu.Unlock()
		return fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		c.failPendingLocked(ctx.Err())
		c.mu.Unlock()
		return ctx.Err()
	case err := <-pending:
		return err
	}
}

// Audio returns a copy of the buffered audio so far.
func (c *Client) Audio() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]byte, len(c.audio))
	copy(out, c.audio)
	return out
}

// TotalSize returns the latest server-reported byte total.
func (c *Client) TotalSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalSize
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Reset clears the audio buffer and the size counter between syntheses.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audio = c.audio[:0]
	c.totalSize = 0
}

// Close stops the client and waits for Run to return.
func (c *Client) Close() {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	c.state = StateClosed
	c.failPendingLocked(ErrClosed)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if cancel != nil {
		cancel()
		<-c.done
	}
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	// Closed is terminal.
	if c.state != StateClosed {
		c.state = state
	}
	c.mu.Unlock()
}

// resolvePendingLocked completes the in-flight synthesis. Callers hold mu.
func (c *Client) resolvePendingLocked(err error) {
	if c.pending == nil {
		return
	}
	c.pending <- err
	c.pending = nil
}

// failPendingLocked aborts the in-flight synthesis, if any. Callers hold mu.
func (c *Client) failPendingLocked(err error) {
	c.resolvePendingLocked(err)
}

// backoffDelay doubles with each reconnect attempt, capped. Attempt one
// waits the base delay.
func backoffDelay(attempt int) time.Duration {
	delay := baseReconnectDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > maxReconnectDelay {
		delay = maxReconnectDelay
	}
	return delay
}

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

package transcript

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/stretchr/testify/assert"
)

func newTestClient(baseUrl string) *Client {
	return NewClient(&cloud.Supadata{
		BaseUrl:             baseUrl,
		ApiKey:              "test-key",
		PollIntervalSeconds: 1,
		PollTimeoutSeconds:  10,
	})
}

func TestGetTranscriptSynchronous(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "/transcript", r.URL.Path)
		assert.Equal(t, "es", r.URL.Query().Get("lang"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"lang": "es",
			"content": [
				{"text": "Hola.", "offset": 0, "duration": 1000},
				{"text": "Bienvenidos.", "offset": 1000, "duration": 1500}
			]
		}`))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).GetTranscript(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "es")
	assert.NoError(t, err)
	assert.Equal(t, "es", out.Language)
	assert.Equal(t, 2, len(out.Chunks))
	assert.Equal(t, "Hola.", out.Chunks[0].Text)
}

func TestGetTranscriptAsyncJob(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/transcript":
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"jobId": "job-123"}`))
		case "/transcript/job-123":
			// First poll reports the job as still running, second completes.
			if atomic.AddInt32(&polls, 1) == 1 {
				_, _ = w.Write([]byte(`{"status": "active"}`))
				return
			}
			_, _ = w.Write([]byte(`{
				"status": "completed",
				"lang": "en",
				"content": [{"text": "Done.", "offset": 0, "duration": 900}]
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).GetTranscript(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "")
	assert.NoError(t, err)
	assert.Equal(t, "en", out.Language)
	assert.Equal(t, "Done.", out.Chunks[0].Text)
	assert.True(t, atomic.LoadInt32(&polls) >= 2)
}

func TestGetTranscriptNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "no captions"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetTranscript(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "en")
	assert.True(t, errors.Is(err, ErrNoTranscript))
}

func TestGetTranscriptEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"lang": "en", "content": []}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetTranscript(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "en")
	assert.True(t, errors.Is(err, ErrNoTranscript))
}

func TestGetTranscriptProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "quota exceeded"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetTranscript(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "en")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

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

// Package transcript implements the client for the Supadata transcript API,
// which extracts timestamped captions from YouTube videos. The provider
// answers small videos synchronously (HTTP 200 with the transcript body) and
// long ones asynchronously (HTTP 202 with a job ID the client must poll).
// The client throttles itself with a rate limiter sized from the provider
// quota in the configuration.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// ErrNoTranscript is returned when the provider has no captions for the
// requested video in any language.
var ErrNoTranscript = errors.New("no transcript available for video")

// apiResponse covers both response shapes of the transcript endpoint: a
// finished transcript (Content set) or an async job handle (JobId set).
type apiResponse struct {
	Content        []*model.TranscriptChunk `json:"content"`
	Lang           string                   `json:"lang"`
	AvailableLangs []string                 `json:"availableLangs"`
	JobId          string                   `json:"jobId"`
	Status         string                   `json:"status"`
	Message        string                   `json:"message"`
}

// Client calls the Supadata transcript API.
type Client struct {
	baseUrl      string
	apiKey       string
	httpClient   *http.Client
	limiter      *rate.Limiter
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewClient builds a Client from the provider section of the application
// configuration.
func NewClient(cfg *cloud.Supadata) *Client {
	rpm := cfg.MaxRequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	pollInterval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	pollTimeout := time.Duration(cfg.PollTimeoutSeconds) * time.Second
	if pollTimeout <= 0 {
		pollTimeout = 2 * time.Minute
	}
	return &Client{
		baseUrl:      cfg.BaseUrl,
		apiKey:       cfg.ApiKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// GetTranscript fetches the timestamped transcript for a video URL. When the
// provider answers with an async job the call blocks, polling until the job
// completes or the poll timeout elapses.
func (c *Client) GetTranscript(ctx context.Context, videoUrl string, lang string) (*model.Transcript, error) {
	if lang == "" {
		lang = "en"
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("url", videoUrl)
	params.Set("lang", lang)
	params.Set("text", "false") // Timestamped chunks, not plain text.
	params.Set("mode", "auto")

	resp, err := c.get(ctx, fmt.Sprintf("%s/transcript?%s", c.baseUrl, params.Encode()))
	if err != nil {
		return nil, err
	}

	switch resp.status {
	case http.StatusOK:
		return decodeTranscript(resp.body)
	case http.StatusAccepted:
		var job apiResponse
		if err := json.Unmarshal(resp.body, &job); err != nil {
			return nil, fmt.Errorf("failed to decode transcript job handle: %w", err)
		}
		return c.pollJob(ctx, job.JobId)
	case http.StatusNotFound:
		return nil, ErrNoTranscript
	default:
		return nil, providerError(resp.status, resp.body)
	}
}

// pollJob polls an async transcript job until it completes.
func (c *Client) pollJob(ctx context.Context, jobId string) (*model.Transcript, error) {
	if jobId == "" {
		return nil, errors.New("transcript provider returned an empty job id")
	}

	deadline := time.Now().Add(c.pollTimeout)
	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("transcript job %s did not complete within %s", jobId, c.pollTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		resp, err := c.get(ctx, fmt.Sprintf("%s/transcript/%s", c.baseUrl, jobId))
		if err != nil {
			return nil, err
		}
		if resp.status != http.StatusOK {
			return nil, providerError(resp.status, resp.body)
		}

		var job apiResponse
		if err := json.Unmarshal(resp.body, &job); err != nil {
			return nil, fmt.Errorf("failed to decode transcript job %s: %w", jobId, err)
		}
		switch job.Status {
		case "completed", "":
			return decodeTranscript(resp.body)
		case "failed":
			return nil, fmt.Errorf("transcript job %s failed: %s", jobId, job.Message)
		default:
			// "queued" or "active": keep polling.
		}
	}
}

type rawResponse struct {
	status int
	body   []byte
}

func (c *Client) get(ctx context.Context, fullUrl string) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullUrl, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcript provider request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &rawResponse{status: resp.StatusCode, body: body}, nil
}

func decodeTranscript(body []byte) (*model.Transcript, error) {
	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode transcript response: %w", err)
	}
	if len(out.Content) == 0 {
		return nil, ErrNoTranscript
	}
	lang := out.Lang
	if lang == "" {
		lang = "en"
	}
	return &model.Transcript{Language: lang, Chunks: out.Content}, nil
}

func providerError(status int, body []byte) error {
	var out apiResponse
	if err := json.Unmarshal(body, &out); err == nil && out.Message != "" {
		return fmt.Errorf("transcript provider error (status %d): %s", status, out.Message)
	}
	return fmt.Errorf("transcript provider error (status %d)", status)
}

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
// voice catalog lookup, a plain REST call against the provider: the same
// host the streaming endpoint lives on, reached over HTTPS instead of a
// WebSocket.
package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Voice is one entry in the provider's voice catalog.
type Voice struct {
	VoiceId  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// voicesResponse is the provider's catalog envelope.
type voicesResponse struct {
	Voices []*Voice `json:"voices"`
}

// Voices lists the voices available to the configured API key.
//
// Outputs:
//   - []*Voice: The catalog entries.
//   - error: A connection or provider error.
func (u *Upstream) Voices(ctx context.Context) ([]*Voice, error) {
	endpoint, err := u.restUrl("/v1/voices")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", u.config.ApiKey)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach speech provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech provider returned status %d", resp.StatusCode)
	}
	out := &voicesResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("failed to decode voice catalog: %w", err)
	}
	return out.Voices, nil
}

// restUrl rewrites the configured WebSocket base URL into its HTTPS
// counterpart for the provider's REST endpoints.
func (u *Upstream) restUrl(path string) (string, error) {
	base, err := url.Parse(u.config.BaseUrl)
	if err != nil {
		return "", fmt.Errorf("invalid provider base url: %w", err)
	}
	switch strings.ToLower(base.Scheme) {
	case "wss":
		base.Scheme = "https"
	case "ws":
		base.Scheme = "http"
	}
	base.Path = path
	base.RawQuery = ""
	return base.String(), nil
}

// Voices exposes the catalog through the gateway so the API layer has one
// entry point for the speech provider.
func (g *Gateway) Voices(ctx context.Context) ([]*Voice, error) {
	return g.upstream.Voices(ctx)
}

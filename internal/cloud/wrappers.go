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

// Package cloud provides components for interacting with Google Cloud services.
// This file implements a decorator around the Generative AI client that adds
// rate limiting and retries. Vertex AI enforces per-minute quotas, and every
// pipeline stage in this application funnels through these models, so
// throttling here keeps a burst of video processing jobs from tripping quota
// errors mid-chain.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Wraps a model handle plus its generation
//     config with a rate limiter.
//
// Functions:
//   - NewQuotaAwareModel: Constructor for the wrapped model.
//   - GenerateContent: Rate-limited, retrying content generation.
package cloud

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel decorates a generative model with a rate
// limiter. Callers use it exactly like the underlying model; throttling and
// retries happen transparently inside GenerateContent.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // Generation parameters applied to every request.
	ModelName               string                       // The Vertex AI model identifier.
	ModelHandle             *genai.Models                // The underlying model service handle.
	RateLimit               rate.Limiter                 // Token bucket controlling request frequency.
}

// NewQuotaAwareModel creates a QuotaAwareGenerativeAIModel from a generation
// config, a model name and a rate limit in requests per second.
//
// Inputs:
//   - wrapped: The generation config applied to every request.
//   - name: The Vertex AI model identifier.
//   - modelHandle: The model service handle from the GenAI client.
//   - requestsPerSecond: The maximum number of API calls allowed per second.
//
// Outputs:
//   - *QuotaAwareGenerativeAIModel: A pointer to the newly created wrapper.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		// Allows a burst of requestsPerSecond events, replenished at one
		// token per second.
		RateLimit: *rate.NewLimiter(rate.Every(time.Second/1), requestsPerSecond),
	}
}

// GenerateContent submits a generation request through the rate limiter.
// When the limiter has no tokens the request waits and re-queues. Failed
// requests are retried with a cooldown, carrying the attempt count in the
// context, and give up after the retry budget is spent.
//
// Inputs:
//   - ctx: The context for the request; also carries retry state.
//   - content: The content values forming the prompt.
//
// Outputs:
//   - *genai.GenerateContentResponse: The response from the AI model.
//   - error: An error if the request fails after all retries.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (resp *genai.GenerateContentResponse, err error) {
	if q.RateLimit.Allow() {
		resp, err = q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
		if err != nil {
			retryCount, ok := ctx.Value("retry").(int)
			if !ok {
				retryCount = 0
			}
			if retryCount > MaxRetries {
				return nil, errors.New("failed generation on max retries")
			}
			errCtx := context.WithValue(ctx, "retry", retryCount+1)
			// Give the service time to recover before the next attempt.
			time.Sleep(time.Minute * 1)
			return q.ModelHandle.GenerateContent(errCtx, q.ModelName, content, q.GenerativeContentConfig)
		}
		return resp, err
	} else {
		// Rate limited: pause this request, then try for a token again.
		time.Sleep(time.Second * 5)
		return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
	}
}

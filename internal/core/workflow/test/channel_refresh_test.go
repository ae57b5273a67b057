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

// Package workflow_test contains integration tests for the core application workflows.
// This file, `channel_refresh_test.go`, tests the `ChannelRefreshWorkflow` fan-out:
// handling a refresh trigger for a single followed channel, listing its recent
// uploads via the YouTube Data API, and publishing a processing trigger for each
// upload that has not been processed yet.
package workflow_test

import (
	"fmt"
	"testing"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-whisper-dashboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/codes"
)

// TestChannelRefreshChain is an integration test for the channel refresh
// fan-out. It simulates a refresh trigger for one channel and asserts the
// workflow completes without errors, which confirms the YouTube uploads
// lookup, the BigQuery dedup check, and the Pub/Sub publish all work.
//
// Inputs:
//   - t: A pointer to the testing.T object, provided by the Go testing framework,
//     used for logging, error reporting, and assertions.
func TestChannelRefreshChain(t *testing.T) {
	traceCtx, span := tracer.Start(ctx, "channel-refresh-test")
	defer span.End()

	// Resolve the topic handles the fan-out publishes to.
	processTopic := cloudClients.PubsubClient.Topic(config.TopicSubscriptions["ProcessTopic"].Topic)
	refreshTopic := cloudClients.PubsubClient.Topic(config.TopicSubscriptions["RefreshTopic"].Topic)

	refreshWorkflow := workflow.NewChannelRefreshWorkflow(config, cloudClients, youtubeService, processTopic, refreshTopic)

	// Seed the chain with a refresh trigger naming one followed channel.
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(traceCtx)
	chainCtx.Add(cor.CtxIn, test.GetTestRefreshTriggerText())

	refreshWorkflow.Execute(chainCtx)

	for k, err := range chainCtx.GetErrors() {
		fmt.Printf("Error: (%s): %v\n", k, err)
	}

	if chainCtx.HasErrors() {
		span.SetStatus(codes.Error, "failed to execute channel refresh test")
	}
	assert.False(t, chainCtx.HasErrors())
	span.SetStatus(codes.Ok, "passed - channel refresh test")
}

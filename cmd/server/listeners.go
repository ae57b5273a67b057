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

// Package main contains the logic for setting up and starting the Pub/Sub message listeners.
// These listeners drive the asynchronous processing paths: video processing triggers
// published by the channel refresh sweep, and the per-channel refresh triggers
// themselves.
//
// Functions:
//   - SetupListeners: Attaches the processing and refresh workflows to their
//     topic listeners and starts them.
package main

import (
	"context"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/workflow"
)

// SetupListeners configures and starts the background Pub/Sub listeners.
// It attaches the already-built workflows to the appropriate topic listeners.
//
// Inputs:
//   - cloudClients: A struct containing all the initialized Google Cloud service clients.
//   - processor: The video processing workflow, shared with the REST endpoint.
//   - channelRefresh: The per-channel refresh fan-out workflow.
//   - ctx: The application's root context, used to manage the lifecycle of the listeners.
//
// Outputs:
//   - This function does not return any value. It starts the listeners as background goroutines.
func SetupListeners(cloudClients *cloud.ServiceClients, processor *workflow.VideoReaderWorkflow, channelRefresh *workflow.ChannelRefreshWorkflow, ctx context.Context) {
	// Processing triggers carry a video URL and the owning user. They are
	// published by the channel refresh sweep; the interactive path runs the
	// same workflow synchronously inside the request instead.
	cloudClients.PubSubListeners["ProcessTopic"].SetCommand(processor)
	cloudClients.PubSubListeners["ProcessTopic"].Listen(ctx)

	// Refresh triggers name one followed channel each. The fan-out workflow
	// looks up new uploads and publishes a processing trigger per video.
	cloudClients.PubSubListeners["RefreshTopic"].SetCommand(channelRefresh)
	cloudClients.PubSubListeners["RefreshTopic"].Listen(ctx)
}

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
// This file, `video_processing_test.go`, tests the complete `VideoReaderWorkflow`:
// parsing a processing trigger, fetching video metadata and the transcript,
// generating the analysis and chart data with Vertex AI, assembling the final
// video object, and persisting it to BigQuery.
package workflow_test

import (
	"fmt"
	"log"
	"testing"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-whisper-dashboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/codes"
)

// TestVideoProcessingChain performs an end-to-end integration test of the video
// processing workflow. It simulates a processing trigger and runs the entire
// chain of commands. The test's success is determined by whether the workflow
// completes without any errors being added to its context.
//
// Inputs:
//   - t: A pointer to the testing.T object, provided by the Go testing framework,
//     used for logging, error reporting, and assertions.
func TestVideoProcessingChain(t *testing.T) {
	// Start a new OpenTelemetry trace span so this test run is visible in the
	// tracing backend.
	traceCtx, span := tracer.Start(ctx, "video-processing-test")
	defer span.End()

	// Initialize the primary workflow under test with the shared config and
	// clients from base_test.go.
	processor, err := workflow.NewVideoReaderWorkflow(config, cloudClients, youtubeService, transcriptClient)
	assert.NoError(t, err)

	// Create a new chain of responsibility (cor) context to manage state
	// throughout the workflow execution.
	chainCtx := cor.NewBaseContext()
	// Pass the Go context (which includes our tracing information) into the chain context.
	chainCtx.SetContext(traceCtx)
	// Set the initial input for the workflow: a JSON string that mimics a
	// real processing trigger message.
	chainCtx.Add(cor.CtxIn, test.GetTestProcessTriggerText())

	// Execute the entire processing workflow.
	processor.Execute(chainCtx)

	// After execution, loop through any errors that were recorded in the context
	// by the workflow's commands and print them for debugging.
	for k, err := range chainCtx.GetErrors() {
		fmt.Printf("Error: (%s): %v\n", k, err)
	}

	// If the context contains any errors, we mark the trace span with an error status.
	if chainCtx.HasErrors() {
		span.SetStatus(codes.Error, "failed to execute video processing test")
	}

	// The primary assertion of the test: verify that the workflow's context has no errors.
	// If this passes, it means every command in the chain executed successfully.
	assert.False(t, chainCtx.HasErrors())

	// Mark the trace span as "Ok" to signify a successful test run.
	span.SetStatus(codes.Ok, "passed - video processing test")

	// For debugging purposes, log the final video object that was assembled
	// by the workflow. This can be useful for manually verifying the output.
	log.Println(chainCtx.Get(workflow.VideoOutputParamName))
}

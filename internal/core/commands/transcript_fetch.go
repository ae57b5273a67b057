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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that pulls the video's transcript from the transcript provider.
//
// The provider call may block for a while: long videos are processed
// asynchronously on the provider side and the client polls the job until it
// completes. A video with no captions at all is a hard workflow failure,
// since every downstream AI step works off the transcript text.
package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/transcript"
)

// GetTranscriptParamName returns the well-known context key under which the
// fetched transcript is stored for the rest of the chain.
//
// Outputs:
//   - string: A constant placeholder string "__TRANSCRIPT__".
func GetTranscriptParamName() string {
	return "__TRANSCRIPT__"
}

// TranscriptFetch is a command that retrieves the timestamped transcript for
// the video being processed.
type TranscriptFetch struct {
	cor.BaseCommand
	client *transcript.Client
}

// NewTranscriptFetch is the constructor for the TranscriptFetch command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - client: The transcript provider client.
//
// Outputs:
//   - *TranscriptFetch: A pointer to the newly instantiated command.
func NewTranscriptFetch(name string, client *transcript.Client) *TranscriptFetch {
	return &TranscriptFetch{BaseCommand: *cor.NewBaseCommand(name), client: client}
}

// Execute contains the core logic for the transcript fetch.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *TranscriptFetch) Execute(context cor.Context) {
	trigger := context.Get(GetTriggerParamName()).(*model.ProcessingTrigger)

	out, err := c.client.GetTranscript(context.GetContext(), trigger.Url, trigger.Language)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("transcript fetch failed for %s: %w", trigger.Url, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetTranscriptParamName(), out)
	context.Add(c.GetOutputParam(), out)
}

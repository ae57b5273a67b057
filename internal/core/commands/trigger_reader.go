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
// initial command of the video processing workflow.
//
// Logic Flow:
// Every processing run starts from a trigger message, either the body of a
// process request from the API or a Pub/Sub message published by the channel
// refresh sweep. This command parses that message.
//
//  1. The raw JSON trigger string is read from the context input.
//  2. It is unmarshaled into a `model.ProcessingTrigger`.
//  3. The YouTube video ID is extracted from the URL; a URL that doesn't
//     contain one fails the workflow immediately, before any provider quota
//     is spent.
//  4. The validated trigger is stored under a well-known key so later
//     commands (assembly in particular) can reach it, and in the output slot
//     so it pipes to the metadata lookup.
package commands

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// videoIdPatterns match the YouTube URL shapes users paste: full watch URLs,
// short youtu.be links, embeds, shorts and live links.
var videoIdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/v/|youtu\.be/|/embed/|/shorts/|/live/)([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`^([A-Za-z0-9_-]{11})$`),
}

// GetTriggerParamName returns the well-known context key under which the
// parsed processing trigger is stored for the rest of the chain.
//
// Outputs:
//   - string: A constant placeholder string "__TRIGGER__".
func GetTriggerParamName() string {
	return "__TRIGGER__"
}

// ExtractVideoId pulls the 11-character YouTube video ID out of a URL.
// It returns an empty string when the URL contains no recognizable ID.
func ExtractVideoId(url string) string {
	for _, p := range videoIdPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// TriggerReader is a command that parses a processing trigger message and
// validates the video URL it carries.
type TriggerReader struct {
	cor.BaseCommand
}

// NewTriggerReader is the constructor for the TriggerReader command.
//
// Inputs:
//   - name: A string name for this command instance.
//
// Outputs:
//   - *TriggerReader: A pointer to the newly instantiated command.
func NewTriggerReader(name string) *TriggerReader {
	return &TriggerReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute contains the core logic for parsing the trigger message.
//
// Inputs:
//   - context: The shared `cor.Context` holding the raw trigger JSON.
func (c *TriggerReader) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var out model.ProcessingTrigger
	err := json.Unmarshal([]byte(in), &out)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal processing trigger: %w", err))
		return
	}

	if ExtractVideoId(out.Url) == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("no video id found in url %q", out.Url))
		return
	}
	if out.Language == "" {
		out.Language = "en"
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)

	context.Add(GetTriggerParamName(), &out)
	context.Add(c.GetOutputParam(), &out)
}

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
// command that generates the full AI analysis of a video.
//
// Logic Flow:
// This is the centerpiece of the processing pipeline. It takes the fetched
// transcript and asks a generative model for the complete analysis: the
// executive summary, key insights, topics, metrics, quotes, takeaways,
// content-type specific sections and named entities.
//
//  1. The transcript arrives as the command's input; the video metadata is
//     read from its well-known key for prompt context.
//  2. A prompt is built from a Go template, populated with the video title,
//     channel, transcript text and a complete example of the desired JSON
//     output (few-shot prompting).
//  3. The prompt is sent to the quota-aware generative model.
//  4. The raw JSON string response is piped to the next command
//     (`AnalysisJsonToStruct`) for parsing.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/transcript"
)

// AnalysisCreator is a command that uses a generative model to produce the
// full analysis of a video transcript.
type AnalysisCreator struct {
	cor.BaseCommand
	config                   *cloud.Config                      // Application configuration, used for prompt templating.
	generativeAIModel        *cloud.QuotaAwareGenerativeAIModel // The rate-limited generative model client.
	template                 *template.Template                 // The Go template for building the prompt.
	geminiInputTokenCounter  metric.Int64Counter                // OTel counter for input tokens.
	geminiOutputTokenCounter metric.Int64Counter                // OTel counter for output tokens.
	geminiRetryCounter       metric.Int64Counter                // OTel counter for retries.
}

// NewAnalysisCreator is the constructor for the AnalysisCreator command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - config: The application's configuration object.
//   - generativeAIModel: The rate-limited wrapper for the generative model client.
//   - template: A parsed Go template for the prompt.
//
// Outputs:
//   - *AnalysisCreator: A pointer to the newly instantiated command with
//     initialized telemetry counters.
func NewAnalysisCreator(
	name string,
	config *cloud.Config,
	generativeAIModel *cloud.QuotaAwareGenerativeAIModel,
	template *template.Template) *AnalysisCreator {

	out := &AnalysisCreator{
		BaseCommand:       *cor.NewBaseCommand(name),
		config:            config,
		generativeAIModel: generativeAIModel,
		template:          template}

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))

	return out
}

// GenerateParams creates the map of dynamic data injected into the prompt
// template.
//
// Inputs:
//   - context: The shared `cor.Context`, read for the transcript and metadata.
//
// Outputs:
//   - map[string]interface{}: A map of keys and values for template substitution.
func (t *AnalysisCreator) GenerateParams(context cor.Context) map[string]interface{} {
	params := make(map[string]interface{})

	meta := context.Get(GetMetadataParamName()).(*model.VideoMetadata)
	tx := context.Get(GetTranscriptParamName()).(*model.Transcript)

	params["TITLE"] = meta.Title
	params["CHANNEL"] = meta.ChannelName
	params["DURATION"] = meta.Duration
	params["TRANSCRIPT"] = transcript.FormatTimestamped(tx.Chunks)

	// A complete, well-formed JSON example keeps the model's output
	// structure stable (few-shot prompting).
	exampleAnalysis, _ := json.Marshal(model.GetExampleAnalysis())
	params["EXAMPLE_JSON"] = string(exampleAnalysis)
	return params
}

// Execute contains the core logic for prompting the generative model.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (t *AnalysisCreator) Execute(context cor.Context) {
	var buffer bytes.Buffer
	err := t.template.Execute(&buffer, t.GenerateParams(context))
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("failed to execute prompt template: %w", err))
		return
	}

	out, err := cloud.GenerateMultiModalResponse(
		context.GetContext(),
		t.geminiInputTokenCounter,
		t.geminiOutputTokenCounter,
		t.geminiRetryCounter,
		0,
		t.generativeAIModel,
		cloud.NewTextPart(buffer.String()))
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("gemini request failed: %w", err))
		return
	}

	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), out)
}

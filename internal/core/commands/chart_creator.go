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
// command that derives the dashboard chart data from a finished analysis.
//
// The chart step runs after the analysis parse so it can prompt with the
// structured analysis rather than the full transcript, which keeps the
// prompt small and the chart labels consistent with the analysis topics.
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
)

// ChartCreator is a command that uses a generative model to derive chart
// data from a video analysis.
type ChartCreator struct {
	cor.BaseCommand
	generativeAIModel        *cloud.QuotaAwareGenerativeAIModel
	template                 *template.Template
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewChartCreator is the constructor for the ChartCreator command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - generativeAIModel: The rate-limited wrapper for the generative model client.
//   - template: A parsed Go template for the prompt.
//
// Outputs:
//   - *ChartCreator: A pointer to the newly instantiated command.
func NewChartCreator(
	name string,
	generativeAIModel *cloud.QuotaAwareGenerativeAIModel,
	template *template.Template) *ChartCreator {

	out := &ChartCreator{
		BaseCommand:       *cor.NewBaseCommand(name),
		generativeAIModel: generativeAIModel,
		template:          template}

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))

	return out
}

// Execute contains the core logic for prompting the generative model.
//
// Inputs:
//   - context: The shared `cor.Context`, carrying the parsed analysis as input.
func (t *ChartCreator) Execute(context cor.Context) {
	analysis := context.Get(t.GetInputParam()).(*model.VideoAnalysis)

	analysisJson, _ := json.Marshal(analysis)
	exampleChart, _ := json.Marshal(model.GetExampleChartData())

	params := map[string]interface{}{
		"ANALYSIS_JSON": string(analysisJson),
		"EXAMPLE_JSON":  string(exampleChart),
	}

	var buffer bytes.Buffer
	err := t.template.Execute(&buffer, params)
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

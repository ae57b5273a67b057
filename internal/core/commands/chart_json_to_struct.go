// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// transformation step that parses the chart JSON from the generative model.
// Charts are decoration on top of the analysis, so a bad model response
// degrades to topic-strength charts derived from the analysis itself rather
// than failing the workflow.
package commands

import (
	"encoding/json"
	"log"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// ChartJsonToStruct is a command that parses the chart JSON string into a
// ChartData struct, deriving a fallback from the analysis when the model
// output doesn't parse.
type ChartJsonToStruct struct {
	cor.BaseCommand
	analysisParam string // Context key holding the parsed VideoAnalysis for the fallback path.
}

// NewChartJsonToStruct is the constructor for the ChartJsonToStruct command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - analysisParam: The context key holding the parsed analysis.
//   - outputParamName: The context key where the resulting struct is stored.
//
// Outputs:
//   - *ChartJsonToStruct: A pointer to the newly instantiated command.
func NewChartJsonToStruct(name string, analysisParam string, outputParamName string) *ChartJsonToStruct {
	out := ChartJsonToStruct{BaseCommand: *cor.NewBaseCommand(name), analysisParam: analysisParam}
	out.OutputParamName = outputParamName
	return &out
}

// Execute contains the core logic for parsing the chart JSON.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *ChartJsonToStruct) Execute(context cor.Context) {
	in := context.Get(s.GetInputParam()).(string)

	doc := &model.ChartData{}
	err := json.Unmarshal([]byte(in), &doc)
	if err != nil {
		log.Printf("chart response did not parse, deriving fallback: %v", err)
		s.GetErrorCounter().Add(context.GetContext(), 1)
		analysis := context.Get(s.analysisParam).(*model.VideoAnalysis)
		doc = FallbackChartData(analysis)
	}
	if doc.ContentType == "" {
		doc.ContentType = "general"
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(s.GetOutputParam(), doc)
	context.Add(cor.CtxOut, doc)
}

// FallbackChartData derives minimal chart data from the analysis when the
// generative model's chart response is unusable. Topic strengths are spread
// on a descending scale so the dashboard still has something to render.
func FallbackChartData(analysis *model.VideoAnalysis) *model.ChartData {
	out := &model.ChartData{
		KeyPoints:      []model.ChartPoint{},
		Timeline:       []model.TimelinePoint{},
		Charts:         []model.CustomChart{},
		TopicStrengths: []model.ChartPoint{},
		ContentType:    analysis.ContentType,
	}
	score := 90
	for _, topic := range analysis.Topics {
		if score < 40 {
			break
		}
		out.TopicStrengths = append(out.TopicStrengths, model.ChartPoint{Label: topic, Score: score})
		score -= 10
	}
	for i, insight := range analysis.KeyInsights {
		if i >= 5 {
			break
		}
		label := insight
		if len(label) > 40 {
			label = label[:40]
		}
		out.KeyPoints = append(out.KeyPoints, model.ChartPoint{Label: label, Score: 80 - i*10})
	}
	return out
}

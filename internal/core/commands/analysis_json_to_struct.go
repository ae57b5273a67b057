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
// transformation step that turns the raw analysis JSON from the generative
// model into a strongly-typed `model.VideoAnalysis`.
//
// A malformed model response does not kill the workflow: the user still gets
// their transcript and metadata, so this command degrades to a minimal
// fallback analysis built from the transcript text instead of failing. The
// fallback is marked with a low confidence score.
package commands

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/transcript"
)

// AnalysisJsonToStruct is a command that parses the analysis JSON string
// into a VideoAnalysis struct, falling back to a degraded analysis when the
// model output doesn't parse.
type AnalysisJsonToStruct struct {
	cor.BaseCommand
}

// NewAnalysisJsonToStruct is the constructor for the AnalysisJsonToStruct
// command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - outputParamName: The context key where the resulting struct is stored.
//
// Outputs:
//   - *AnalysisJsonToStruct: A pointer to the newly instantiated command.
func NewAnalysisJsonToStruct(name string, outputParamName string) *AnalysisJsonToStruct {
	out := AnalysisJsonToStruct{BaseCommand: *cor.NewBaseCommand(name)}
	out.OutputParamName = outputParamName
	return &out
}

// Execute contains the core logic for parsing the analysis JSON.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *AnalysisJsonToStruct) Execute(context cor.Context) {
	in := context.Get(s.GetInputParam()).(string)

	doc := &model.VideoAnalysis{}
	err := json.Unmarshal([]byte(in), &doc)
	if err != nil || doc.ExecutiveSummary == "" {
		log.Printf("analysis response did not parse, using fallback: %v", err)
		s.GetErrorCounter().Add(context.GetContext(), 1)
		doc = FallbackAnalysis(context)
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(s.GetOutputParam(), doc)
	context.Add(cor.CtxOut, doc)
}

// FallbackAnalysis builds a minimal analysis directly from the transcript
// when the generative model's response is unusable.
func FallbackAnalysis(context cor.Context) *model.VideoAnalysis {
	meta := context.Get(GetMetadataParamName()).(*model.VideoMetadata)
	tx := context.Get(GetTranscriptParamName()).(*model.Transcript)

	raw := transcript.RawText(tx.Chunks)
	summary := raw
	if len(summary) > 500 {
		summary = summary[:500] + "..."
	}

	words := len(strings.Fields(raw))
	readMinutes := words / 200
	if readMinutes < 1 {
		readMinutes = 1
	}

	return &model.VideoAnalysis{
		ExecutiveSummary:    fmt.Sprintf("Transcript of \"%s\" by %s. %s", meta.Title, meta.ChannelName, summary),
		KeyInsights:         []string{"Automatic analysis was unavailable for this video."},
		Topics:              []string{},
		Metrics:             []model.VideoMetric{},
		KeyQuotes:           []string{},
		ActionableTakeaways: []string{},
		ContentType:         "general",
		EstimatedReadTime:   fmt.Sprintf("%d min read", readMinutes),
		DynamicSections:     []model.DynamicSection{},
		Entities:            model.EntityData{People: []string{}, Companies: []string{}, Products: []string{}, Locations: []string{}},
		ConfidenceScore:     0.1,
	}
}

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
// assembly step that gathers everything the pipeline produced into the final
// `model.ProcessedVideo` record.
//
// The assembly reads from the well-known context keys populated earlier in
// the chain (trigger, metadata, transcript) plus the named analysis and
// chart outputs, stamps the record with a fresh UUID and the completion
// time, and serializes the structured payloads into their JSON columns for
// persistence.
package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/transcript"
)

// VideoAssembly is a command that combines the outputs of the pipeline into
// a single ProcessedVideo ready for persistence.
type VideoAssembly struct {
	cor.BaseCommand
	analysisParam string // Context key holding the parsed VideoAnalysis.
	chartParam    string // Context key holding the parsed ChartData.
}

// NewVideoAssembly is the constructor for the VideoAssembly command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - analysisParam: The context key holding the parsed analysis.
//   - chartParam: The context key holding the parsed chart data.
//   - outputParamName: The context key where the assembled video is stored.
//
// Outputs:
//   - *VideoAssembly: A pointer to the newly instantiated command.
func NewVideoAssembly(name string, analysisParam string, chartParam string, outputParamName string) *VideoAssembly {
	out := VideoAssembly{BaseCommand: *cor.NewBaseCommand(name), analysisParam: analysisParam, chartParam: chartParam}
	out.OutputParamName = outputParamName
	return &out
}

// IsExecutable verifies every piece the assembly needs is present.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
//
// Outputs:
//   - bool: True when the trigger, metadata, transcript, analysis and chart
//     data are all in the context.
func (s *VideoAssembly) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(GetTriggerParamName()) != nil &&
		context.Get(GetMetadataParamName()) != nil &&
		context.Get(GetTranscriptParamName()) != nil &&
		context.Get(s.analysisParam) != nil &&
		context.Get(s.chartParam) != nil
}

// Execute contains the core logic for building the final record.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *VideoAssembly) Execute(context cor.Context) {
	trigger := context.Get(GetTriggerParamName()).(*model.ProcessingTrigger)
	meta := context.Get(GetMetadataParamName()).(*model.VideoMetadata)
	tx := context.Get(GetTranscriptParamName()).(*model.Transcript)
	analysis := context.Get(s.analysisParam).(*model.VideoAnalysis)
	chart := context.Get(s.chartParam).(*model.ChartData)

	analysisJson, err := json.Marshal(analysis)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("failed to serialize analysis: %w", err))
		return
	}
	chartJson, err := json.Marshal(chart)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("failed to serialize chart data: %w", err))
		return
	}

	video := &model.ProcessedVideo{
		Id:            uuid.NewString(),
		Url:           trigger.Url,
		VideoId:       meta.VideoId,
		UserId:        trigger.UserId,
		Title:         meta.Title,
		ChannelName:   meta.ChannelName,
		ChannelAvatar: meta.ChannelAvatar,
		Thumbnail:     meta.Thumbnail,
		PublishedAt:   meta.PublishedAt,
		Duration:      meta.Duration,
		Transcript:    transcript.FormatTimestamped(tx.Chunks),
		RawTranscript: transcript.RawText(tx.Chunks),
		Language:      tx.Language,
		Status:        "completed",
		ProcessedAt:   time.Now().UTC(),
		AnalysisJson:  string(analysisJson),
		ChartJson:     string(chartJson),
		Analysis:      analysis,
		ChartData:     chart,
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(s.GetOutputParam(), video)
	context.Add(cor.CtxOut, video)
}

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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the primary video processing workflow.
package workflow

import (
	"text/template"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"google.golang.org/api/youtube/v3"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/commands"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/transcript"
)

// Context keys for the named outputs the assembly step collects.
const (
	AnalysisOutputParamName = "__analysis_output__"
	ChartOutputParamName    = "__chart_output__"
	VideoOutputParamName    = "__video_output__"
)

// VideoReaderWorkflow orchestrates the processing of one video: trigger
// parsing, metadata lookup, transcript retrieval, AI analysis, chart
// derivation, assembly, persistence and transcript archival. It is a
// cor.Chain under the hood and runs both synchronously (behind the process
// endpoint) and asynchronously (behind the processing Pub/Sub listener).
type VideoReaderWorkflow struct {
	cor.BaseCommand
	config           *cloud.Config
	bigqueryClient   *bigquery.Client
	storageClient    *storage.Client
	genaiModel       *cloud.QuotaAwareGenerativeAIModel
	youtubeService   *youtube.Service
	transcriptClient *transcript.Client
	analysisTemplate *template.Template
	chartTemplate    *template.Template
	chain            cor.Chain // The underlying chain of commands to be executed.
}

// NewVideoReaderWorkflow builds the processing workflow from the application
// configuration and service clients. The prompt templates are parsed here,
// at startup, so a malformed template fails fast instead of on the first
// video.
//
// Inputs:
//   - config: The application's configuration object.
//   - serviceClients: The initialized Google Cloud service clients.
//   - youtubeService: An initialized YouTube Data API service.
//   - transcriptClient: The transcript provider client.
//
// Outputs:
//   - *VideoReaderWorkflow: The assembled workflow.
//   - error: An error when a prompt template does not parse.
func NewVideoReaderWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	youtubeService *youtube.Service,
	transcriptClient *transcript.Client,
) (*VideoReaderWorkflow, error) {
	analysisTemplate, err := template.New("analysis").Parse(config.PromptTemplates.AnalysisPrompt)
	if err != nil {
		return nil, err
	}
	chartTemplate, err := template.New("chart").Parse(config.PromptTemplates.ChartPrompt)
	if err != nil {
		return nil, err
	}

	out := &VideoReaderWorkflow{
		BaseCommand:      *cor.NewBaseCommand("video-reader-workflow"),
		config:           config,
		bigqueryClient:   serviceClients.BigQueryClient,
		storageClient:    serviceClients.StorageClient,
		genaiModel:       serviceClients.AgentModels["analysis"],
		youtubeService:   youtubeService,
		transcriptClient: transcriptClient,
		analysisTemplate: analysisTemplate,
		chartTemplate:    chartTemplate,
	}
	out.initializeChain()
	return out, nil
}

// Execute runs the entire workflow by invoking the underlying chain.
//
// Inputs:
//   - context: The chain of responsibility context for this execution,
//     carrying the raw trigger JSON as its initial input.
func (m *VideoReaderWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

// IsExecutable delegates to the underlying chain.
func (m *VideoReaderWorkflow) IsExecutable(context cor.Context) bool {
	return m.chain.IsExecutable(context)
}

// initializeChain builds the sequence of commands that make up this
// workflow. The output of each command pipes into the next; the named
// outputs collected along the way feed the assembly step.
func (m *VideoReaderWorkflow) initializeChain() {
	out := cor.NewBaseChain(m.GetName())

	// Step 1: Parse and validate the trigger message.
	out.AddCommand(commands.NewTriggerReader("read-processing-trigger"))

	// Step 2: Resolve the video ID into title, channel, thumbnails and
	// duration via the YouTube Data API.
	out.AddCommand(commands.NewYouTubeMetadataFetch("fetch-video-metadata", m.youtubeService))

	// Step 3: Pull the timestamped transcript from the transcript provider.
	// Long videos block here while the provider's async job completes.
	out.AddCommand(commands.NewTranscriptFetch("fetch-transcript", m.transcriptClient))

	// Step 4: Generate the full AI analysis of the transcript.
	out.AddCommand(commands.NewAnalysisCreator("generate-analysis", m.config, m.genaiModel, m.analysisTemplate))

	// Step 5: Parse the analysis JSON into a struct, degrading to a
	// transcript-derived fallback when the model response is unusable.
	out.AddCommand(commands.NewAnalysisJsonToStruct("convert-analysis", AnalysisOutputParamName))

	// Step 6: Derive the dashboard chart data from the parsed analysis.
	out.AddCommand(commands.NewChartCreator("generate-chart-data", m.genaiModel, m.chartTemplate))

	// Step 7: Parse the chart JSON, again with a derived fallback.
	out.AddCommand(commands.NewChartJsonToStruct("convert-chart-data", AnalysisOutputParamName, ChartOutputParamName))

	// Step 8: Assemble the final ProcessedVideo record.
	out.AddCommand(commands.NewVideoAssembly("assemble-video", AnalysisOutputParamName, ChartOutputParamName, VideoOutputParamName))

	// Step 9: Persist the record to the video table.
	out.AddCommand(commands.NewVideoPersistToBigQuery(
		"write-to-bigquery",
		m.bigqueryClient,
		m.config.BigQueryDataSource.DatasetName,
		m.config.BigQueryDataSource.VideoTable,
		VideoOutputParamName))

	// Step 10: Archive the raw transcript for future reprocessing.
	out.AddCommand(commands.NewTranscriptArchive(
		"archive-transcript",
		m.storageClient,
		m.config.Storage.TranscriptBucket,
		VideoOutputParamName))

	m.chain = out
}

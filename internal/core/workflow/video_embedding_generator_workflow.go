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
// the background process for generating vector embeddings for processed
// videos, which back the semantic search endpoint.
package workflow

import (
	goctx "context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// VideoEmbeddingGeneratorWorkflow is a background job that periodically scans
// the video table for rows with no entry in the embedding table, generates an
// embedding vector for each from the video's title, executive summary and
// topics, and inserts the vectors back into BigQuery. It implements the
// cor.Command interface so it can run inside a chain, but it is designed to
// run on its own timer.
type VideoEmbeddingGeneratorWorkflow struct {
	cor.BaseCommand
	genaiEmbedding          *genai.Models
	bigqueryClient          *bigquery.Client
	modelName               string
	dataset                 string
	embeddingTable          string
	findEligibleVideosQuery string
}

// NewVideoEmbeddingGeneratorWorkflow is the constructor for the embedding
// workflow. It builds the BigQuery query that finds processed videos missing
// an embedding row.
//
// Inputs:
//   - config: The application's overall configuration object.
//   - serviceClients: A struct containing the initialized Google Cloud service clients.
//
// Outputs:
//   - *VideoEmbeddingGeneratorWorkflow: A pointer to the configured workflow.
func NewVideoEmbeddingGeneratorWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients) *VideoEmbeddingGeneratorWorkflow {
	// Fully qualified table names keep the query unambiguous regardless of
	// the client's default project.
	fqVideoTableName := strings.Replace(serviceClients.BigQueryClient.Dataset(config.BigQueryDataSource.DatasetName).Table(config.BigQueryDataSource.VideoTable).FullyQualifiedName(), ":", ".", -1)
	fqEmbeddingTable := strings.Replace(serviceClients.BigQueryClient.Dataset(config.BigQueryDataSource.DatasetName).Table(config.BigQueryDataSource.EmbeddingTable).FullyQualifiedName(), ":", ".", -1)

	// Completed videos with no embedding row are the eligible set.
	query := fmt.Sprintf("SELECT * FROM `%s` WHERE status = 'completed' AND id NOT IN (SELECT id FROM `%s`)", fqVideoTableName, fqEmbeddingTable)

	return &VideoEmbeddingGeneratorWorkflow{
		BaseCommand:             *cor.NewBaseCommand("video-embedding-generator"),
		genaiEmbedding:          serviceClients.EmbeddingModels["multi-lingual"],
		bigqueryClient:          serviceClients.BigQueryClient,
		modelName:               config.EmbeddingModels["multi-lingual"].Model,
		dataset:                 config.BigQueryDataSource.DatasetName,
		embeddingTable:          config.BigQueryDataSource.EmbeddingTable,
		findEligibleVideosQuery: query,
	}
}

// StartTimer kicks off the background sweep. A time.Ticker fires once a
// minute, and each tick runs the embedding generation inside its own trace
// span. The goroutine runs until the application shuts down.
func (m *VideoEmbeddingGeneratorWorkflow) StartTimer() {
	tracer := otel.Tracer("embedding-batch")
	ticker := time.NewTicker(60 * time.Second)
	closeTicker := make(chan struct{})

	go func(m *VideoEmbeddingGeneratorWorkflow) {
		for {
			select {
			case <-ticker.C:
				traceCtx, span := tracer.Start(goctx.Background(), "video-embeddings")
				chainCtx := cor.NewBaseContext()
				chainCtx.SetContext(traceCtx)

				m.Execute(chainCtx)

				if chainCtx.HasErrors() {
					span.SetStatus(codes.Error, "failed to execute embedding sweep")
				} else {
					span.SetStatus(codes.Ok, "executed embeddings")
				}
				span.End()
			case <-closeTicker:
				ticker.Stop()
				return
			}
		}
	}(m)
}

// IsExecutable always returns true: the workflow is a self-contained
// background job with no dependency on prior chain outputs.
func (m *VideoEmbeddingGeneratorWorkflow) IsExecutable(_ cor.Context) bool {
	return true
}

// Execute queries BigQuery for videos without embeddings, builds one
// embedding document per video from its title, executive summary and topic
// labels, and inserts the resulting vectors into the embedding table.
//
// Inputs:
//   - context: The chain of responsibility context, used for errors and the Go context.
func (m *VideoEmbeddingGeneratorWorkflow) Execute(context cor.Context) {
	q := m.bigqueryClient.Query(m.findEligibleVideosQuery)
	it, err := q.Read(context.GetContext())
	if err != nil {
		context.AddError(m.GetName(), err)
		return
	}

	toInsert := make([]*model.VideoEmbedding, 0)

	for {
		var value model.ProcessedVideo
		err := it.Next(&value)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			context.AddError(m.GetName(), err)
			return
		}

		contents := []*genai.Content{
			genai.NewContentFromText(m.embeddingDocument(&value), genai.RoleUser),
		}

		result, err := m.genaiEmbedding.EmbedContent(context.GetContext(), m.modelName, contents, nil)
		if err != nil {
			context.AddError(m.GetName(), err)
			return
		}

		in := &model.VideoEmbedding{
			Id:        value.Id,
			ModelName: m.modelName,
			CreatedAt: time.Now().UTC(),
		}
		for _, e := range result.Embeddings {
			for _, v := range e.Values {
				in.Embedding = append(in.Embedding, float64(v))
			}
		}
		toInsert = append(toInsert, in)
	}

	if len(toInsert) == 0 {
		return
	}

	inserter := m.bigqueryClient.Dataset(m.dataset).Table(m.embeddingTable).Inserter()
	if err := inserter.Put(context.GetContext(), toInsert); err != nil {
		context.AddError(m.GetName(), err)
	}
}

// embeddingDocument flattens the searchable text of one video into a single
// string. The analysis payload travels as a JSON column, so the summary and
// topics are pulled out of it here rather than from dedicated columns.
func (m *VideoEmbeddingGeneratorWorkflow) embeddingDocument(video *model.ProcessedVideo) string {
	var sb strings.Builder
	sb.WriteString(video.Title)

	var analysis model.VideoAnalysis
	if err := json.Unmarshal([]byte(video.AnalysisJson), &analysis); err == nil {
		if analysis.ExecutiveSummary != "" {
			sb.WriteString("\n")
			sb.WriteString(analysis.ExecutiveSummary)
		}
		if len(analysis.Topics) > 0 {
			sb.WriteString("\nTopics: ")
			sb.WriteString(strings.Join(analysis.Topics, ", "))
		}
	}
	return sb.String()
}

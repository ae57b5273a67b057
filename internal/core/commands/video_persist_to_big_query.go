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
// persistence step that writes the assembled video record to BigQuery.
//
// The streaming Inserter maps the struct's bigquery-tagged fields onto the
// table columns; the structured analysis and chart payloads ride along in
// their pre-serialized JSON columns. Once the row lands, the video becomes
// visible to the list, search and stats queries and eligible for the
// background embedding sweep.
package commands

import (
	"fmt"
	"log"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// VideoPersistToBigQuery is a command that saves a ProcessedVideo to a
// BigQuery table.
type VideoPersistToBigQuery struct {
	cor.BaseCommand
	client     *bigquery.Client // The client for interacting with the BigQuery service.
	dataset    string           // The name of the BigQuery dataset.
	table      string           // The name of the target table within the dataset.
	videoParam string           // The context key for the input ProcessedVideo object.
}

// NewVideoPersistToBigQuery is the constructor for the VideoPersistToBigQuery
// command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - client: An initialized *bigquery.Client.
//   - dataset: The name of the BigQuery dataset.
//   - table: The name of the target table.
//   - videoParam: The context key holding the ProcessedVideo to save.
//
// Outputs:
//   - *VideoPersistToBigQuery: A pointer to the newly instantiated command.
func NewVideoPersistToBigQuery(name string, client *bigquery.Client, dataset string, table string, videoParam string) *VideoPersistToBigQuery {
	return &VideoPersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), client: client, dataset: dataset, table: table, videoParam: videoParam}
}

// IsExecutable ensures the assembled video exists in the context before
// execution.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
//
// Outputs:
//   - bool: True if the ProcessedVideo exists in the context.
func (s *VideoPersistToBigQuery) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(s.videoParam) != nil
}

// Execute contains the core logic for writing the row to BigQuery.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *VideoPersistToBigQuery) Execute(context cor.Context) {
	log.Println("Persisting processed video to BigQuery...")

	video := context.Get(s.videoParam).(*model.ProcessedVideo)

	i := s.client.Dataset(s.dataset).Table(s.table).Inserter()

	if err := i.Put(context.GetContext(), video); err != nil {
		log.Printf("failed to write video to database. title %s error %s\n", video.Title, err)
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("bigquery insert failed for title '%s': %w", video.Title, err))
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, video)
	log.Printf("Successfully persisted video '%s' (ID: %s)", video.Title, video.Id)
}

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

// Package services_test contains the test suite for the services package.
// This file specifically tests the functionality of the SearchService.
package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/services"
	test "github.com/jaycherian/gcp-go-whisper-dashboard/internal/testutil"
	"github.com/zeebo/assert"
)

// TestSearchService is an integration test for the FindVideos method of the
// SearchService. It initializes a full application stack (configuration, cloud clients),
// then creates an instance of the SearchService. It executes a sample search query
// against a live BigQuery backend and asserts that the operation completes
// without errors. This test validates the end-to-end flow of generating an
// embedding for a query and performing a vector search in BigQuery.
//
// Inputs:
//   - t: The testing framework's test handler.
func TestSearchService(t *testing.T) {
	// Create a new context with a cancel function. This allows us to gracefully
	// manage the lifecycle of the cloud clients and any background operations.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the application configuration from .toml files using a test helper.
	// This helper sets the necessary environment variables to load test-specific configs.
	config := test.GetConfig()

	// Initialize all necessary Google Cloud service clients (Storage, Pub/Sub, GenAI, BigQuery)
	// based on the loaded configuration. This creates the 'live' environment for the test.
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	test.HandleErr(err, t)
	// Ensure that all client connections are closed when the test function completes.
	defer cloudClients.Close()

	// Retrieve the analysis model from the initialized clients. While not
	// directly used in this test, this confirms that the agent models were
	// loaded correctly from the configuration.
	genModel := cloudClients.AgentModels["analysis"]
	assert.NotNil(t, genModel)

	// Retrieve the multi-lingual embedding model, which is a required dependency
	// for the SearchService to convert text queries into vector embeddings.
	embeddingModel := cloudClients.EmbeddingModels["multi-lingual"]

	// Instantiate the SearchService with its dependencies: the BigQuery client,
	// the embedding model, and the names of the dataset and tables to query.
	searchService := &services.SearchService{
		BigqueryClient: cloudClients.BigQueryClient,
		EmbeddingModel: embeddingModel,
		ModelName:      config.EmbeddingModels["multi-lingual"].Model,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		EmbeddingTable: config.BigQueryDataSource.EmbeddingTable,
	}

	// Execute the method under test: FindVideos.
	// The service will generate an embedding for the query text and then perform
	// a k-nearest neighbor (KNN) vector search in BigQuery to find the top 5
	// most similar videos.
	out, err := searchService.FindVideos(ctx, "videos about vector embeddings", 5)
	if err != nil {
		t.Error(err)
	}
	assert.Nil(t, err)

	// If the search is successful, iterate through the results and print them.
	// This is useful for debugging and manually verifying the search results
	// during development.
	for _, o := range out {
		fmt.Printf("%s - %f\n", o.VideoId, o.Distance)
	}
}

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

// Package cloud provides components for interacting with Google Cloud services.
// This file initializes and holds all the client objects needed to talk to
// external services. It acts as a dependency injection container: a single
// shared `ServiceClients` struct is created at startup and passed to the
// workflows, services and API handlers that need it.
//
// Logic Flow:
//  1. `NewCloudServiceClients` is called at application startup with the
//     loaded configuration.
//  2. Clients for Storage, Pub/Sub, GenAI, BigQuery and IAM are created.
//  3. The configuration is read to build the Pub/Sub listeners and the
//     quota-aware AI model wrappers, stored in maps by logical name.
//  4. Everything is bundled into a single `ServiceClients` struct.
//
// Structs:
//   - ServiceClients: Container for all initialized service clients.
//
// Functions:
//   - Close: Gracefully shuts down all client connections.
//   - NewCloudServiceClients: Factory that builds the container from config.
package cloud

import (
	"context"
	"log"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ServiceClients is the central container for all clients that talk to
// external Google Cloud services. Passing this one struct around keeps
// connection management in a single place.
type ServiceClients struct {
	StorageClient   *storage.Client                         // Client for Google Cloud Storage.
	PubsubClient    *pubsub.Client                          // Client for Google Cloud Pub/Sub.
	GenAIClient     *genai.Client                           // Client for Vertex AI generative models.
	BigQueryClient  *bigquery.Client                        // Client for Google Cloud BigQuery.
	IAMClient       *credentials.IamCredentialsClient       // Client for IAM, used to sign GCS URLs.
	PubSubListeners map[string]*PubSubListener              // Active Pub/Sub listeners, keyed by logical name from the config.
	EmbeddingModels map[string]*genai.Models                // Configured embedding models, keyed by logical name.
	AgentModels     map[string]*QuotaAwareGenerativeAIModel // Configured quota-aware LLMs, keyed by logical name.
}

// Close releases all the active client connections. Client lifecycles are
// normally tied to the root context, but tests and controlled shutdowns use
// this for an explicit teardown.
func (c *ServiceClients) Close() {
	_ = c.StorageClient.Close()
	_ = c.PubsubClient.Close()
	_ = c.BigQueryClient.Close()
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
}

// NewCloudServiceClients initializes all required Google Cloud service
// clients based on the provided configuration.
//
// Inputs:
//   - ctx: The root context for the application, managing client lifecycles.
//   - config: A pointer to the loaded application configuration.
//
// Outputs:
//   - *ServiceClients: A pointer to the fully initialized container.
//   - error: An error if any of the clients fail to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		log.Printf("error creating genai client: %v", err)
		return nil, err
	}

	bc, err := bigquery.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	ic, err := credentials.NewIamCredentialsClient(ctx)
	if err != nil {
		return nil, err
	}

	// Create a listener per configured subscription. The command is attached
	// later, once the workflow chains have been assembled.
	subscriptions := make(map[string]*PubSubListener)
	for subKey := range config.TopicSubscriptions {
		values := config.TopicSubscriptions[subKey]
		actual, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, err
		}
		subscriptions[subKey] = actual
	}

	embeddingModels := make(map[string]*genai.Models)
	for embKey := range config.EmbeddingModels {
		embeddingModels[embKey] = gc.Models
	}

	// Build each agent model's generation config and wrap it with the rate
	// limiter before handing it out.
	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey := range config.AgentModels {
		values := config.AgentModels[amKey]

		model := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
			Tools:             []*genai.Tool{},
		}
		agentModels[amKey] = NewQuotaAwareModel(model, values.Model, gc.Models, values.RateLimit)
	}

	cloud = &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		GenAIClient:     gc,
		BigQueryClient:  bc,
		IAMClient:       ic,
		PubSubListeners: subscriptions,
		EmbeddingModels: embeddingModels,
		AgentModels:     agentModels,
	}

	return cloud, err
}

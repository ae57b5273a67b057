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

// Package main contains the setup and initialization logic for the application's state.
// This file is responsible for creating and managing a centralized state manager
// that holds all shared dependencies: configuration, Google Cloud service clients,
// the account store, and the application-level services and workflows.
//
// It ensures that the application is configured correctly based on the environment,
// initializes all necessary clients (Storage, BigQuery, Pub/Sub, YouTube, etc.),
// and starts background processes like the Pub/Sub listeners, the embedding
// generator and the channel refresh scheduler.
//
// Functions:
//   - SetupOS: Configures necessary environment variables for the application,
//     pointing to the correct configuration files.
//   - GetConfig: A singleton function that loads the application's configuration
//     from TOML files. It ensures the configuration is loaded only once.
//   - InitState: The core initialization function that creates all service clients,
//     configures application services, and starts background workflows and
//     Pub/Sub listeners.
package main

import (
	"context"
	"log"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/api"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/auth"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/services"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/workflow"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/subscription"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/transcript"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/tts"
)

// StateManager holds all the shared dependencies for the application, acting as a
// centralized container for service clients and configurations. This avoids the
// need for global variables and makes dependency management cleaner.
type StateManager struct {
	config         *cloud.Config
	cloud          *cloud.ServiceClients
	youtubeService *youtube.Service
	authStore      *auth.Store
	handlers       *api.Handlers
}

// state is a package-level variable that holds the single instance of StateManager.
var state = &StateManager{}

// SetupOS sets the necessary environment variables that the configuration loader
// uses to find the correct TOML files.
//
// This function sets the prefix for the configuration directory and specifies
// the runtime environment (e.g., "local", "test", "prod"), allowing for
// environment-specific overrides of the base configuration.
//
// Outputs:
//   - error: An error if setting any of the environment variables fails.
func SetupOS() (err error) {
	// Set the directory where configuration files are located.
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	// Set the current runtime environment to "local". The config loader will
	// look for a ".env.local.toml" file to override base settings.
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig provides a singleton instance of the application configuration.
// It ensures that the configuration is loaded from the file system only once.
// On the first call, it sets up the OS environment and loads the configuration
// from the TOML files. Subsequent calls return the cached configuration.
//
// Outputs:
//   - *cloud.Config: A pointer to the loaded application configuration struct.
func GetConfig() *cloud.Config {
	// If the config has not been loaded yet...
	if state.config == nil {
		// Set up the environment variables required for config loading.
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		// Create a new, empty config struct.
		config := cloud.NewConfig()
		// Load the configuration from the .toml files into the struct.
		cloud.LoadConfig(&config)
		// Store the loaded config in the state manager.
		state.config = config
	}
	// Return the cached config.
	return state.config
}

// InitState initializes the entire application state.
// It orchestrates the creation of all necessary services and clients based on the
// application configuration and wires them together.
//
// Inputs:
//   - ctx: The root context.Context for the application, used for managing
//     the lifecycle of client connections and background processes.
//
// This function performs the following steps:
//  1. Loads the application configuration.
//  2. Initializes all Google Cloud service clients (Storage, Pub/Sub, GenAI,
//     BigQuery, IAM) plus the YouTube Data API client.
//  3. Opens the SQLite account store and builds the auth and subscription services.
//  4. Instantiates the application services (video, channel, search, stats, clips).
//  5. Builds the processing workflow and the text-to-speech gateway.
//  6. Starts background workflows and the Pub/Sub listeners.
func InitState(ctx context.Context) {
	// Get the application configuration.
	config := GetConfig()

	// Initialize all the base Google Cloud service clients.
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	// Initialize the YouTube Data API client used for metadata lookups and
	// channel resolution.
	youtubeService, err := youtube.NewService(ctx, option.WithAPIKey(config.YouTube.ApiKey))
	if err != nil {
		panic(err)
	}
	state.youtubeService = youtubeService

	// The transcript provider client is shared by the processing workflow.
	transcriptClient := transcript.NewClient(&config.Supadata)

	// Open the account store and build the auth service on top of it.
	authStore, err := auth.NewStore(config.Auth.DatabaseFile)
	if err != nil {
		panic(err)
	}
	state.authStore = authStore
	authService := &auth.Service{
		Store:  authStore,
		Tokens: auth.NewTokenIssuer(config.Auth.JwtSecret, config.Auth.TokenTtlHours),
	}

	subscriptionService := subscription.NewService(authStore, &config.Stripe)

	// Get Pub/Sub topic handles for the processing and refresh paths.
	processTopic := cloudClients.PubsubClient.Topic(config.TopicSubscriptions["ProcessTopic"].Topic)
	refreshTopic := cloudClients.PubsubClient.Topic(config.TopicSubscriptions["RefreshTopic"].Topic)

	// Initialize the application services with their dependencies.
	videoService, err := services.NewVideoService(config, cloudClients)
	if err != nil {
		panic(err)
	}

	channelService := &services.ChannelService{
		BigqueryClient: cloudClients.BigQueryClient,
		YouTubeService: youtubeService,
		RefreshTopic:   refreshTopic,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		ChannelTable:   config.BigQueryDataSource.ChannelTable,
		MaxVideos:      config.Scheduler.MaxVideosPerChannel,
	}

	searchService := &services.SearchService{
		BigqueryClient: cloudClients.BigQueryClient,
		EmbeddingModel: cloudClients.EmbeddingModels["multi-lingual"],
		YouTubeService: youtubeService,
		ModelName:      config.EmbeddingModels["multi-lingual"].Model,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		EmbeddingTable: config.BigQueryDataSource.EmbeddingTable,
		MaxResults:     int(config.YouTube.MaxResults),
	}

	statsService := &services.StatsService{
		Videos:   videoService,
		Channels: channelService,
	}

	clipService := &services.ClipService{
		StorageClient: cloudClients.StorageClient,
		IAMClient:     cloudClients.IAMClient,
		SignerEmail:   config.Application.SignerServiceAccountEmail,
		AudioBucket:   config.Storage.AudioBucket,
	}

	// Build the processing workflow once; it serves both the synchronous
	// /videos/process endpoint and the Pub/Sub listener.
	processor, err := workflow.NewVideoReaderWorkflow(config, cloudClients, youtubeService, transcriptClient)
	if err != nil {
		panic(err)
	}

	// The gateway bridges client WebSocket connections to the speech provider.
	ttsGateway := tts.NewGateway(
		tts.NewUpstream(&config.ElevenLabs),
		cloudClients.StorageClient,
		config.Storage.AudioBucket)

	state.handlers = &api.Handlers{
		Config:        config,
		Auth:          authService,
		Subscriptions: subscriptionService,
		Videos:        videoService,
		Channels:      channelService,
		Search:        searchService,
		Stats:         statsService,
		Clips:         clipService,
		Processor:     processor,
		TTSGateway:    ttsGateway,
	}

	// Create and start the background workflow for generating embeddings for
	// newly processed videos.
	embeddingGenerator := workflow.NewVideoEmbeddingGeneratorWorkflow(config, cloudClients)
	embeddingGenerator.StartTimer()

	// Create and start the scheduled sweep that looks for new uploads on
	// followed channels.
	channelRefresh := workflow.NewChannelRefreshWorkflow(config, cloudClients, youtubeService, processTopic, refreshTopic)
	channelRefresh.StartTimer()

	// Configure and start the Pub/Sub listeners for the processing and
	// refresh topics.
	SetupListeners(cloudClients, processor, channelRefresh, ctx)
}

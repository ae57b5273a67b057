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

// Package test provides utility functions and mock data to support the application's
// test suite. It helps in setting up a consistent test environment, loading
// test-specific configurations, and providing sample data for workflows and services.
package test

import (
	"log"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
)

// StateManager acts as a simple in-memory cache for the application configuration
// during test runs. This prevents the need to reload configuration files for every
// test, speeding up the test suite.
type StateManager struct {
	config *cloud.Config
}

// state is a package-level variable that holds the singleton instance of StateManager,
// ensuring that the configuration is loaded only once per test run.
var state = &StateManager{}

// HandleErr is a simple test helper function that checks if an error is not nil.
// If an error exists, it fails the test immediately by calling t.Errorf.
// This is a convenience function to reduce boilerplate error-checking code in tests.
//
// Inputs:
//   - err: The error to check.
//   - t: The *testing.T object from the current test.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("Error reading config file: %v", err)
	}
}

// GetTestProcessTriggerText returns a hardcoded JSON string that simulates a
// processing trigger message, as published to the process topic or posted to
// the process endpoint. This mock data is used to test the video processing
// workflow trigger.
//
// Returns:
//   - A string containing the JSON payload of a processing trigger.
func GetTestProcessTriggerText() string {
	return `{
  "url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
  "language": "en",
  "user_id": "5b7f9a64-6255-4a77-9d4e-6c6b2f6f7a10"
}`
}

// GetTestRefreshTriggerText returns a hardcoded JSON string that simulates a
// channel refresh trigger message, as published by the scheduled sweep. This
// mock data is used to test the channel refresh fan-out workflow.
//
// Returns:
//   - A string containing the JSON payload of a refresh trigger.
func GetTestRefreshTriggerText() string {
	return `{
  "user_id": "5b7f9a64-6255-4a77-9d4e-6c6b2f6f7a10",
  "channel_id": "UC_x5XG1OV2P6uZZ5FSM9Ttw",
  "channel_name": "Google for Developers",
  "max_videos": 3
}`
}

// GetTestTranscriptText returns a small transcript in the provider's chunked
// JSON form, used to test the transcript formatting and slicing helpers and
// the analysis prompt assembly.
//
// Returns:
//   - A string containing the JSON payload of a transcript.
func GetTestTranscriptText() string {
	return `{
  "lang": "en",
  "content": [
    { "text": "Welcome back to the channel.", "offset": 0, "duration": 3200 },
    { "text": "Today we are looking at vector search.", "offset": 3200, "duration": 4100 },
    { "text": "First, a quick recap of embeddings.", "offset": 7300, "duration": 3900 },
    { "text": "An embedding maps text into a vector space.", "offset": 11200, "duration": 4800 },
    { "text": "Similar meanings land close together.", "offset": 16000, "duration": 3600 }
  ]
}`
}

// SetupOS configures the necessary environment variables that the configuration
// loader (`cloud.LoadConfig`) depends on. By setting these variables, we can
// direct the loader to use the test-specific configuration files (e.g.,
// `configs/.env.test.toml`) instead of production or development ones.
//
// Returns:
//   - An error if setting any environment variable fails.
func SetupOS() (err error) {
	// Set the directory where the configuration files are located.
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	// Set the runtime environment identifier to "test". This causes the loader
	// to look for a file named ".env.test.toml" for overrides.
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration.
// It ensures that the configuration is loaded from TOML files only once and
// is cached in the package-level `state` variable for subsequent calls.
// This is the primary way tests should retrieve their configuration.
//
// Returns:
//   - A pointer to the loaded and cached cloud.Config struct.
func GetConfig() *cloud.Config {
	// Check if the config is already cached.
	if state.config == nil {
		// If not cached, set up the OS environment for the test configuration.
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		// Create a new, empty config struct.
		config := cloud.NewConfig()
		// Load the configuration from the TOML files into the struct.
		// `LoadConfig` handles the hierarchical loading (base file + test override).
		cloud.LoadConfig(&config)
		// Cache the loaded config in our state manager.
		state.config = config
	}
	// Return the cached configuration.
	return state.config
}

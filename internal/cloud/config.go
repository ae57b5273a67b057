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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. It provides a structured way to manage settings
// for Google Cloud services, AI models, Pub/Sub topics, the external
// transcript and speech providers, and prompt templates.
//
// Structs:
//   - BigQueryDataSource: Configuration for the BigQuery dataset and tables.
//   - PromptTemplates: Text templates for the prompts sent to GenAI models.
//   - VertexAiEmbeddingModel: Configuration for a Vertex AI embedding model.
//   - VertexAiLLMModel: Configuration for a Vertex AI Large Language Model.
//   - TopicSubscription: Configuration for a single Pub/Sub subscription.
//   - Storage: Configuration for Google Cloud Storage buckets.
//   - Supadata: Configuration for the transcript provider API.
//   - ElevenLabs: Configuration for the text-to-speech provider.
//   - Auth: Configuration for the account store and token signing.
//   - Stripe: Configuration for the billing integration.
//   - Config: The top-level struct aggregating all of the above.
//
// Functions:
//   - NewConfig: A constructor that initializes a Config with empty maps.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the default content safety thresholds for
// GenAI models. The thresholds are non-restrictive because the inputs are
// transcripts of videos the user already chose to watch; blocking categories
// here would silently drop analyses.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// BigQueryDataSource represents the configuration for the BigQuery dataset
// that holds processed videos, followed channels and embedding vectors.
type BigQueryDataSource struct {
	DatasetName    string `toml:"dataset"`         // The name of the BigQuery dataset.
	VideoTable     string `toml:"video_table"`     // The table containing processed video rows.
	ChannelTable   string `toml:"channel_table"`   // The table containing followed channel rows.
	EmbeddingTable string `toml:"embedding_table"` // The table containing embedding vectors.
}

// PromptTemplates holds the templates for the different generative tasks.
// Each template is a Go text/template whose parameters are filled in by the
// command that uses it.
type PromptTemplates struct {
	AnalysisPrompt           string `toml:"analysis"`            // Full video analysis generation.
	ChartPrompt              string `toml:"chart"`               // Chart data derivation from an analysis.
	QaPrompt                 string `toml:"qa"`                  // Question answering over a transcript.
	SuggestedQuestionsPrompt string `toml:"suggested_questions"` // Suggested question generation.
	TimeRangePrompt          string `toml:"time_range"`          // Summary of a transcript slice.
	ComparePrompt            string `toml:"compare"`             // Comparison of two transcript slices.
	TranslatePrompt          string `toml:"translate"`           // Analysis translation.
}

// VertexAiEmbeddingModel represents the configuration for a Vertex AI
// embedding model.
type VertexAiEmbeddingModel struct {
	Model                string `toml:"model"`                   // The name of the Vertex AI embedding model.
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"` // The maximum number of requests allowed per minute.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large
// language model.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of output tokens.
	OutputFormat       string  `toml:"output_format"`       // The desired response MIME type, e.g. "application/json".
	RateLimit          int     `toml:"rate_limit"`          // Requests per second allowed for this model.
}

// TopicSubscription represents the configuration for a Pub/Sub topic
// subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	Topic            string `toml:"topic"`              // The topic messages are published to.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The processing timeout in seconds.
}

// Storage represents the configuration for Google Cloud Storage buckets.
type Storage struct {
	TranscriptBucket string `toml:"transcript_bucket"` // Bucket for raw transcript archives.
	AudioBucket      string `toml:"audio_bucket"`      // Bucket for synthesized speech clips.
}

// Supadata holds the settings for the transcript provider API.
type Supadata struct {
	BaseUrl              string `toml:"base_url"` // e.g. "https://api.supadata.ai/v1".
	ApiKey               string `toml:"api_key"`
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"` // Client-side throttle for the provider quota.
	PollIntervalSeconds  int    `toml:"poll_interval_seconds"`   // Poll cadence for async transcript jobs.
	PollTimeoutSeconds   int    `toml:"poll_timeout_seconds"`    // Give up on an async job after this long.
}

// ElevenLabs holds the settings for the text-to-speech provider.
type ElevenLabs struct {
	BaseUrl        string `toml:"base_url"` // e.g. "wss://api.elevenlabs.io".
	ApiKey         string `toml:"api_key"`
	DefaultVoiceId string `toml:"default_voice_id"`
	DefaultModelId string `toml:"default_model_id"` // e.g. "eleven_turbo_v2".
}

// YouTube holds the settings for the YouTube Data API.
type YouTube struct {
	ApiKey     string `toml:"api_key"`
	MaxResults int64  `toml:"max_results"` // Cap on search and upload listing results.
}

// Auth holds the settings for the account store and token signing.
type Auth struct {
	DatabaseFile  string `toml:"database_file"`   // Path to the SQLite account database.
	JwtSecret     string `toml:"jwt_secret"`      // HMAC secret for access tokens.
	TokenTtlHours int    `toml:"token_ttl_hours"` // Access token lifetime, defaults to one week.
}

// Stripe holds the settings for the billing integration.
type Stripe struct {
	ApiKey         string `toml:"api_key"`
	BasicPriceId   string `toml:"basic_price_id"`   // Price ID for the basic plan.
	PremiumPriceId string `toml:"premium_price_id"` // Price ID for the premium plan.
	SuccessUrl     string `toml:"success_url"`      // Checkout redirect on success.
	CancelUrl      string `toml:"cancel_url"`       // Checkout redirect on cancellation.
}

// Scheduler holds the settings for the background channel refresh sweep.
type Scheduler struct {
	RefreshIntervalMinutes int `toml:"refresh_interval_minutes"` // How often to look for new uploads.
	MaxVideosPerChannel    int `toml:"max_videos_per_channel"`   // Cap on new uploads picked up per sweep.
}

// Config represents the overall configuration for the application, loaded
// from TOML files. It acts as the root container for all other configuration
// structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		Port                      int    `toml:"port"`                         // HTTP listen port.
		ThreadPoolSize            int    `toml:"thread_pool_size"`             // Worker pool size for parallel processing.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // Service account used for signing GCS URLs.
	} `toml:"application"`
	Storage            Storage                           `toml:"storage"`
	BigQueryDataSource BigQueryDataSource                `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates                   `toml:"prompt_templates"`
	Supadata           Supadata                          `toml:"supadata"`
	ElevenLabs         ElevenLabs                        `toml:"elevenlabs"`
	YouTube            YouTube                           `toml:"youtube"`
	Auth               Auth                              `toml:"auth"`
	Stripe             Stripe                            `toml:"stripe"`
	Scheduler          Scheduler                         `toml:"scheduler"`
	TopicSubscriptions map[string]TopicSubscription      `toml:"topic_subscriptions"` // Keyed by a logical name, e.g. "ProcessTopic".
	EmbeddingModels    map[string]VertexAiEmbeddingModel `toml:"embedding_models"`    // Keyed by a logical name, e.g. "multi-lingual".
	AgentModels        map[string]VertexAiLLMModel       `toml:"agent_models"`        // Keyed by a logical name, e.g. "analysis-pro".
}

// NewConfig creates a new, initialized Config instance. The maps must be
// initialized up front so the TOML decoder can populate them without nil
// pointer panics.
//
// Outputs:
//   - *Config: A pointer to a new Config struct with its map fields initialized.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		EmbeddingModels:    make(map[string]VertexAiEmbeddingModel),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
}

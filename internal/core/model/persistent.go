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

// Package model defines the core data structures for the application.
// This file, `persistent.go`, contains the structs that are written to
// long-term storage: processed videos and followed channels live in BigQuery
// (the analysis and chart payloads are stored as JSON columns so the row
// schema stays stable as the AI output evolves), while accounts, settings
// and subscriptions live in the relational account store.
package model

import "time"

// VideoMetric is a single labeled statistic the AI pulled out of a video,
// e.g. {"label": "Revenue", "value": "$4.2B", "context": "Q3 earnings"}.
type VideoMetric struct {
	Label   string `json:"label"`
	Value   string `json:"value"`
	Context string `json:"context"`
}

// EntityData groups the named entities mentioned in a video.
type EntityData struct {
	People    []string `json:"people"`
	Companies []string `json:"companies"`
	Products  []string `json:"products"`
	Locations []string `json:"locations"`
}

// DynamicSection is a content-type specific block of the analysis. The Type
// field drives client rendering (e.g. "stock_analysis", "product_review",
// "concept_explanation") and Data carries the section's free-form payload.
type DynamicSection struct {
	Type    string                 `json:"type"`
	Title   string                 `json:"title"`
	Content string                 `json:"content"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// VideoAnalysis is the full AI-generated analysis of one video. It is the
// primary output of the analysis pipeline and is persisted as a JSON column
// on the video row.
type VideoAnalysis struct {
	ExecutiveSummary    string           `json:"executive_summary"`    // Two to three paragraph prose summary.
	KeyInsights         []string         `json:"key_insights"`         // The most important takeaways, one sentence each.
	Topics              []string         `json:"topics"`               // Topic labels for search and the topics dashboard.
	Metrics             []VideoMetric    `json:"metrics"`              // Concrete numbers mentioned in the video.
	KeyQuotes           []string         `json:"key_quotes"`           // Verbatim quotes worth surfacing.
	ActionableTakeaways []string         `json:"actionable_takeaways"` // Things a viewer could act on.
	ContentType         string           `json:"content_type"`         // e.g. "financial_analysis", "tutorial", "interview".
	EstimatedReadTime   string           `json:"estimated_read_time"`  // e.g. "4 min read".
	DynamicSections     []DynamicSection `json:"dynamic_sections"`     // Content-type specific blocks.
	Entities            EntityData       `json:"entities"`             // Named entities mentioned.
	ConfidenceScore     float64          `json:"confidence_score"`     // Model self-assessed confidence, 0.0 to 1.0.
}

// ChartPoint is a single labeled score used by the dashboard charts.
type ChartPoint struct {
	Label string `json:"label"`
	Score int    `json:"score"`
}

// TimelinePoint is one step of the narrative-arc timeline chart, tracking
// how many themes the video has opened versus resolved at that point.
type TimelinePoint struct {
	Step   string `json:"step"`
	Open   int    `json:"open"`
	Closed int    `json:"closed"`
}

// CustomChart is a content-type specific chart derived from the analysis,
// such as stock price levels for a market commentary video.
type CustomChart struct {
	Type      string                   `json:"type"`      // e.g. "stock_prices", "price_comparison".
	Title     string                   `json:"title"`     // Display title.
	Data      []map[string]interface{} `json:"data"`      // Row-oriented chart data.
	ChartType string                   `json:"chartType"` // Render hint: "bar", "line" or "area".
}

// ChartData holds everything the dashboard needs to render visualizations
// for one video. Like VideoAnalysis it is stored as a JSON column.
type ChartData struct {
	KeyPoints      []ChartPoint    `json:"keyPoints"`
	Timeline       []TimelinePoint `json:"timeline"`
	Charts         []CustomChart   `json:"charts"`
	TopicStrengths []ChartPoint    `json:"topicStrengths"`
	ContentType    string          `json:"contentType"`
}

// ProcessedVideo is the canonical record of one analyzed video. Scalar
// columns carry the values the list and search queries need directly; the
// structured analysis and chart payloads travel in JSON columns and are
// hydrated into the Analysis and ChartData fields on read.
type ProcessedVideo struct {
	Id            string         `json:"id" bigquery:"id"`                         // Internal UUID, the primary key.
	Url           string         `json:"url" bigquery:"url"`                       // The URL the user submitted.
	VideoId       string         `json:"video_id" bigquery:"video_id"`             // The 11-character YouTube video ID.
	UserId        string         `json:"-" bigquery:"user_id"`                     // Owning account; never exposed over the wire.
	Title         string         `json:"title" bigquery:"title"`                   // Video title from the YouTube API.
	ChannelName   string         `json:"channel_name" bigquery:"channel_name"`     // Publishing channel's display name.
	ChannelAvatar string         `json:"channel_avatar" bigquery:"channel_avatar"` // Channel thumbnail URL.
	Thumbnail     string         `json:"thumbnail" bigquery:"thumbnail"`           // Best-quality video thumbnail URL.
	PublishedAt   string         `json:"published_at" bigquery:"published_at"`     // RFC 3339 publish time as reported by YouTube.
	Duration      string         `json:"duration" bigquery:"duration"`             // Human readable duration, e.g. "12:34".
	Transcript    string         `json:"transcript" bigquery:"transcript"`         // Formatted transcript with [MM:SS] paragraph markers.
	RawTranscript string         `json:"raw_transcript" bigquery:"raw_transcript"` // Unformatted transcript text.
	Language      string         `json:"language" bigquery:"language"`             // BCP-47 transcript language code.
	Status        string         `json:"status" bigquery:"status"`                 // "completed" or "failed".
	ProcessedAt   time.Time      `json:"processed_at" bigquery:"processed_at"`     // When the pipeline finished.
	AnalysisJson  string         `json:"-" bigquery:"analysis_json"`               // Serialized VideoAnalysis column.
	ChartJson     string         `json:"-" bigquery:"chart_json"`                  // Serialized ChartData column.
	Analysis      *VideoAnalysis `json:"analysis" bigquery:"-"`                    // Hydrated from AnalysisJson on read.
	ChartData     *ChartData     `json:"chart_data" bigquery:"-"`                  // Hydrated from ChartJson on read.
}

// FollowedChannel is one channel a user follows. New uploads to followed
// channels are picked up by the background refresh workflow.
type FollowedChannel struct {
	Id              string    `json:"id" bigquery:"id"`                             // Internal UUID.
	UserId          string    `json:"-" bigquery:"user_id"`                         // Owning account.
	ChannelName     string    `json:"channel_name" bigquery:"channel_name"`         // Display name.
	ChannelUrl      string    `json:"channel_url" bigquery:"channel_url"`           // The URL the user submitted.
	ChannelId       string    `json:"channel_id" bigquery:"channel_id"`             // YouTube channel ID (UC...).
	AvatarUrl       string    `json:"avatar_url" bigquery:"avatar_url"`             // Channel thumbnail URL.
	SubscriberCount string    `json:"subscriber_count" bigquery:"subscriber_count"` // Display string, e.g. "1.2M".
	FollowedAt      time.Time `json:"followed_at" bigquery:"followed_at"`
	LastChecked     time.Time `json:"last_checked" bigquery:"last_checked"` // Last refresh sweep that covered this channel.
	VideoCount      int       `json:"video_count" bigquery:"video_count"`   // Videos processed from this channel so far.
}

// VideoEmbedding links a processed video to its semantic embedding vector.
// Rows in this table back the VECTOR_SEARCH semantic video search.
type VideoEmbedding struct {
	Id        string    `json:"id" bigquery:"id"`                 // The video's UUID.
	ModelName string    `json:"model_name" bigquery:"model_name"` // Embedding model that produced the vector.
	Embedding []float64 `json:"embedding" bigquery:"embedding"`
	CreatedAt time.Time `json:"created_at" bigquery:"created_at"`
}

// User is an account row from the relational store. The password hash never
// leaves the auth layer.
type User struct {
	Id        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Tier      string    `json:"tier"` // Current plan tier: "free", "basic" or "premium".
	CreatedAt time.Time `json:"created_at"`
	LastLogin time.Time `json:"last_login"`
}

// UserSettings are the account-level processing preferences.
type UserSettings struct {
	AutoProcessChannels bool   `json:"auto_process_channels"`
	NotificationEmail   bool   `json:"notification_email"`
	ProcessFrequency    string `json:"process_frequency"` // "hourly", "daily" or "weekly".
}

// Subscription records a user's paid plan state as reported by Stripe.
type Subscription struct {
	UserId           string    `json:"user_id"`
	Plan             string    `json:"plan"`   // "basic" or "premium".
	Status           string    `json:"status"` // "active", "canceled" or "incomplete".
	StripeCustomerId string    `json:"-"`
	StripeSessionId  string    `json:"-"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// VideoListResponse is the paginated payload returned by the video list
// endpoint.
type VideoListResponse struct {
	Videos []*ProcessedVideo `json:"videos"`
	Total  int               `json:"total"`
	Page   int               `json:"page"`
	Limit  int               `json:"limit"`
}

// DashboardStats is the aggregate payload for the stats endpoint.
type DashboardStats struct {
	TotalVideos        int            `json:"total_videos"`
	TotalChannels      int            `json:"total_channels"`
	VideosThisWeek     int            `json:"videos_this_week"`
	TopTopics          []ChartPoint   `json:"top_topics"`
	ContentTypes       map[string]int `json:"content_types"`
	TotalWatchTime     string         `json:"total_watch_time"`     // Sum of processed video durations.
	EstimatedTimeSaved string         `json:"estimated_time_saved"` // Watch time minus summary read time.
}

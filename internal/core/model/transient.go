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
// This file, `transient.go`, contains structs that exist only in memory
// while a workflow is running: pipeline trigger messages, intermediate
// transcript and metadata shapes, and lightweight query results. None of
// these are persisted in their current form.
package model

// ProcessingTrigger is the message that starts a video processing workflow.
// It arrives either as the body of a process request or as a Pub/Sub message
// published by the channel refresh sweep.
type ProcessingTrigger struct {
	Url       string `json:"url"`                  // YouTube video URL to process.
	Language  string `json:"language,omitempty"`   // Preferred transcript language, defaults to "en".
	UserId    string `json:"user_id,omitempty"`    // Account the result belongs to.
	ChannelId string `json:"channel_id,omitempty"` // Set when triggered by a channel refresh.
}

// VideoMetadata is the subset of YouTube video details the pipeline needs.
// It is produced by the metadata lookup command and consumed downstream by
// the persistence command.
type VideoMetadata struct {
	VideoId       string `json:"video_id"`
	Title         string `json:"title"`
	ChannelId     string `json:"channel_id"`
	ChannelName   string `json:"channel_name"`
	ChannelAvatar string `json:"channel_avatar"`
	Thumbnail     string `json:"thumbnail"`
	PublishedAt   string `json:"published_at"`
	Duration      string `json:"duration"` // Human readable, e.g. "12:34".
}

// TranscriptChunk is one timestamped segment of a transcript as returned by
// the transcript provider. Offset and Duration are in milliseconds.
type TranscriptChunk struct {
	Text     string `json:"text"`
	Offset   int64  `json:"offset"`
	Duration int64  `json:"duration"`
}

// Transcript is the full transcript of a video in both raw and chunked form.
type Transcript struct {
	Language string             `json:"lang"`
	Chunks   []*TranscriptChunk `json:"content"`
}

// TimeRange identifies a span of a video by its start and end timestamps in
// "MM:SS" or "HH:MM:SS" form. Used by the time range summary and comparison
// operations.
type TimeRange struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// TimelineEntry is one point of the video timeline view: a timestamp with
// the transcript text spoken around it.
type TimelineEntry struct {
	Timestamp string `json:"timestamp"` // "MM:SS" display form.
	Seconds   int    `json:"seconds"`   // Offset from the start of the video.
	Text      string `json:"text"`
}

// VideoMatchResult holds one row of a VECTOR_SEARCH response: the key of a
// matching video and its distance from the query embedding.
type VideoMatchResult struct {
	VideoId  string  `json:"video_id" bigquery:"video_id"`
	Distance float64 `json:"distance" bigquery:"distance"`
}

// SearchQuery is the parsed query for both stored-video search and the
// YouTube search proxy.
type SearchQuery struct {
	Q     string `json:"q"`
	Limit int    `json:"limit,omitempty"`
	Page  int    `json:"page,omitempty"`
}

// YouTubeSearchResult is one hit from the YouTube search proxy: enough for
// the dashboard to render a result card and hand the URL to the processing
// endpoint.
type YouTubeSearchResult struct {
	VideoId     string `json:"video_id"`
	Url         string `json:"url"`
	Title       string `json:"title"`
	ChannelName string `json:"channel_name"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	PublishedAt string `json:"published_at"`
}

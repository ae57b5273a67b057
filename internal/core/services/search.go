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

// Package services contains the business logic for interacting with data
// sources. This file, `search.go`, defines the SearchService, which handles
// semantic search over processed videos. It converts a natural language
// query into a vector embedding and runs a k-nearest neighbor search against
// the embedding table in BigQuery.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/youtube/v3"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// SearchService encapsulates the clients needed for video search: the
// BigQuery client and an embedding model for semantic search over processed
// videos, and the YouTube Data API service for the discovery search proxy.
type SearchService struct {
	BigqueryClient *bigquery.Client // Client for interacting with Google BigQuery.
	EmbeddingModel *genai.Models    // The generative AI model used to create vector embeddings from text.
	YouTubeService *youtube.Service // YouTube Data API service for the search proxy.
	ModelName      string           // The name of the embedding model.
	DatasetName    string           // The name of the BigQuery dataset.
	EmbeddingTable string           // The table holding the video embedding vectors.
	MaxResults     int              // Default result cap for the YouTube search proxy.
}

// FindVideos embeds a text query and runs a vector search for the closest
// stored videos.
//
// Inputs:
//   - ctx: The context for the request.
//   - query: The natural language search string.
//   - maxResults: The 'k' in k-nearest neighbor.
//
// Outputs:
//   - []*model.VideoMatchResult: Matching video keys with their distances,
//     closest first.
//   - error: An embedding or query error.
func (s *SearchService) FindVideos(ctx context.Context, query string, maxResults int) ([]*model.VideoMatchResult, error) {
	out := make([]*model.VideoMatchResult, 0)
	if maxResults < 1 {
		maxResults = 10
	}

	contents := []*genai.Content{
		genai.NewContentFromText(query, genai.RoleUser),
	}
	searchEmbeddings, err := s.EmbeddingModel.EmbedContent(ctx, s.ModelName, contents, nil)
	if err != nil {
		return out, fmt.Errorf("failed to embed search query: %w", err)
	}
	if len(searchEmbeddings.Embeddings) == 0 {
		return out, errors.New("embedding model returned no vectors")
	}

	fqEmbeddingTable := strings.Replace(s.BigqueryClient.Dataset(s.DatasetName).Table(s.EmbeddingTable).FullyQualifiedName(), ":", ".", -1)

	// VECTOR_SEARCH takes the query vector inline as a comma-separated
	// list of floats.
	var stringArray []string
	for _, f := range searchEmbeddings.Embeddings[0].Values {
		stringArray = append(stringArray, strconv.FormatFloat(float64(f), 'f', -1, 64))
	}

	queryText := fmt.Sprintf(QryVideoKnn, fqEmbeddingTable, strings.Join(stringArray, ","), maxResults)
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to read from BigQuery: %w", err)
	}

	for {
		r := &model.VideoMatchResult{}
		err := itr.Next(r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// FindOnYouTube proxies a discovery search to the YouTube Data API so the
// dashboard can find videos it has not processed yet.
//
// Inputs:
//   - ctx: The context for the request.
//   - query: The search string.
//   - maxResults: Result cap; values below 1 fall back to the configured
//     default.
//
// Outputs:
//   - []*model.YouTubeSearchResult: The matching videos, API order.
//   - error: A YouTube API error.
func (s *SearchService) FindOnYouTube(ctx context.Context, query string, maxResults int) ([]*model.YouTubeSearchResult, error) {
	out := make([]*model.YouTubeSearchResult, 0)
	if maxResults < 1 {
		maxResults = s.MaxResults
	}
	if maxResults < 1 {
		maxResults = 10
	}

	call := s.YouTubeService.Search.List([]string{"snippet"}).
		Context(ctx).
		Q(query).
		Type("video").
		MaxResults(int64(maxResults))
	response, err := call.Do()
	if err != nil {
		return out, fmt.Errorf("youtube search failed: %w", err)
	}

	for _, item := range response.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		result := &model.YouTubeSearchResult{
			VideoId:     item.Id.VideoId,
			Url:         fmt.Sprintf("https://www.youtube.com/watch?v=%s", item.Id.VideoId),
			Title:       item.Snippet.Title,
			ChannelName: item.Snippet.ChannelTitle,
			Description: item.Snippet.Description,
			PublishedAt: item.Snippet.PublishedAt,
		}
		if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.High != nil {
			result.Thumbnail = item.Snippet.Thumbnails.High.Url
		}
		out = append(out, result)
	}
	return out, nil
}

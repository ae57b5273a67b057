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
// sources. This file, `video.go`, defines the VideoService: retrieval of
// processed videos from BigQuery, the timeline view, and the on-demand
// generative operations over a stored transcript (question answering, time
// range summaries, comparisons, suggested questions and translation).
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"cloud.google.com/go/bigquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/api/iterator"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/transcript"
)

// ErrVideoNotFound is returned when a video lookup matches no row for the
// requesting user.
var ErrVideoNotFound = errors.New("video not found")

// VideoService is the data access and generative layer for processed videos.
// It reads rows from BigQuery and runs the on-demand LLM operations that the
// dashboard exposes per video.
type VideoService struct {
	BigqueryClient *bigquery.Client                   // Client for interacting with Google BigQuery.
	GenModel       *cloud.QuotaAwareGenerativeAIModel // Rate-limited generative model for on-demand operations.
	DatasetName    string                             // The name of the BigQuery dataset.
	VideoTable     string                             // The table containing processed video rows.
	Templates      *VideoPromptTemplates              // Parsed prompt templates for the generative operations.

	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// VideoPromptTemplates holds the parsed Go templates for the per-video
// generative operations.
type VideoPromptTemplates struct {
	Qa                 *template.Template
	SuggestedQuestions *template.Template
	TimeRange          *template.Template
	Compare            *template.Template
	Translate          *template.Template
}

// NewVideoPromptTemplates parses the prompt template strings from the
// configuration. A malformed template fails here, at startup.
func NewVideoPromptTemplates(prompts *cloud.PromptTemplates) (*VideoPromptTemplates, error) {
	out := &VideoPromptTemplates{}
	var err error
	if out.Qa, err = template.New("qa").Parse(prompts.QaPrompt); err != nil {
		return nil, err
	}
	if out.SuggestedQuestions, err = template.New("suggested").Parse(prompts.SuggestedQuestionsPrompt); err != nil {
		return nil, err
	}
	if out.TimeRange, err = template.New("time-range").Parse(prompts.TimeRangePrompt); err != nil {
		return nil, err
	}
	if out.Compare, err = template.New("compare").Parse(prompts.ComparePrompt); err != nil {
		return nil, err
	}
	if out.Translate, err = template.New("translate").Parse(prompts.TranslatePrompt); err != nil {
		return nil, err
	}
	return out, nil
}

// NewVideoService is the constructor for the VideoService.
//
// Inputs:
//   - config: The application's configuration object.
//   - serviceClients: The initialized Google Cloud service clients.
//
// Outputs:
//   - *VideoService: The configured service.
//   - error: An error when a prompt template does not parse.
func NewVideoService(config *cloud.Config, serviceClients *cloud.ServiceClients) (*VideoService, error) {
	templates, err := NewVideoPromptTemplates(&config.PromptTemplates)
	if err != nil {
		return nil, err
	}
	out := &VideoService{
		BigqueryClient: serviceClients.BigQueryClient,
		GenModel:       serviceClients.AgentModels["analysis"],
		DatasetName:    config.BigQueryDataSource.DatasetName,
		VideoTable:     config.BigQueryDataSource.VideoTable,
		Templates:      templates,
	}
	meter := otel.Meter("github.com/jaycherian/gcp-go-whisper-dashboard")
	out.inputTokenCounter, _ = meter.Int64Counter("video-service.gemini.token.input")
	out.outputTokenCounter, _ = meter.Int64Counter("video-service.gemini.token.output")
	out.retryCounter, _ = meter.Int64Counter("video-service.gemini.token.retry")
	return out, nil
}

// GetFQN returns the fully qualified, dot-separated name of the video table.
func (s *VideoService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.VideoTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Get retrieves one processed video for one user and hydrates the analysis
// and chart payloads from their JSON columns.
//
// Inputs:
//   - ctx: The context for the request.
//   - userId: The requesting account.
//   - id: The video row key.
//
// Outputs:
//   - *model.ProcessedVideo: The hydrated video.
//   - error: ErrVideoNotFound when no row matches, or a query error.
func (s *VideoService) Get(ctx context.Context, userId string, id string) (*model.ProcessedVideo, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryFindVideoById, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "user_id", Value: userId},
	}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	video := &model.ProcessedVideo{}
	if err := itr.Next(video); err != nil {
		if errors.Is(err, iterator.Done) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	hydrate(video)
	return video, nil
}

// List pages through a user's processed videos, newest first, optionally
// filtered to one channel.
//
// Inputs:
//   - ctx: The context for the request.
//   - userId: The requesting account.
//   - channelName: Optional channel filter; empty means all channels.
//   - page: One-based page number.
//   - limit: Page size.
//
// Outputs:
//   - *model.VideoListResponse: The page of videos plus pagination totals.
//   - error: A query error.
func (s *VideoService) List(ctx context.Context, userId string, channelName string, page int, limit int) (*model.VideoListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	queryText := fmt.Sprintf(QryListVideos, s.GetFQN())
	params := []bigquery.QueryParameter{
		{Name: "user_id", Value: userId},
		{Name: "page_limit", Value: limit},
		{Name: "page_offset", Value: (page - 1) * limit},
	}
	if channelName != "" {
		queryText = fmt.Sprintf(QryListVideosByChannel, s.GetFQN())
		params = append(params, bigquery.QueryParameter{Name: "channel_name", Value: channelName})
	}

	q := s.BigqueryClient.Query(queryText)
	q.Parameters = params
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	videos := make([]*model.ProcessedVideo, 0, limit)
	for {
		video := &model.ProcessedVideo{}
		err := itr.Next(video)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		hydrate(video)
		videos = append(videos, video)
	}

	total, err := s.count(ctx, fmt.Sprintf(QryCountVideos, s.GetFQN()), []bigquery.QueryParameter{{Name: "user_id", Value: userId}})
	if err != nil {
		return nil, err
	}

	return &model.VideoListResponse{Videos: videos, Total: total, Page: page, Limit: limit}, nil
}

// FindByIds hydrates full video rows for a set of row keys, preserving the
// order of the input keys. Used to turn vector search matches into results.
func (s *VideoService) FindByIds(ctx context.Context, userId string, ids []string) ([]*model.ProcessedVideo, error) {
	if len(ids) == 0 {
		return []*model.ProcessedVideo{}, nil
	}
	q := s.BigqueryClient.Query(fmt.Sprintf(QryFindVideosByIds, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userId},
		{Name: "ids", Value: ids},
	}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	byId := make(map[string]*model.ProcessedVideo, len(ids))
	for {
		video := &model.ProcessedVideo{}
		err := itr.Next(video)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		hydrate(video)
		byId[video.Id] = video
	}

	out := make([]*model.ProcessedVideo, 0, len(byId))
	for _, id := range ids {
		if video, ok := byId[id]; ok {
			out = append(out, video)
		}
	}
	return out, nil
}

// IsProcessed reports whether a YouTube video already has a row for the
// given user. The channel refresh sweep uses this to skip known uploads.
func (s *VideoService) IsProcessed(ctx context.Context, userId string, videoId string) (bool, error) {
	total, err := s.count(ctx, fmt.Sprintf(QryFindVideoByVideoId, s.GetFQN()), []bigquery.QueryParameter{
		{Name: "user_id", Value: userId},
		{Name: "video_id", Value: videoId},
	})
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

// Timeline builds the timeline view of a video from its stored display
// transcript: one entry per timestamped line.
func (s *VideoService) Timeline(ctx context.Context, userId string, id string) ([]*model.TimelineEntry, error) {
	video, err := s.Get(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	out := make([]*model.TimelineEntry, 0)
	for _, line := range strings.Split(video.Transcript, "\n") {
		ts, text, ok := transcript.SplitLine(line)
		if !ok {
			continue
		}
		seconds, err := transcript.ParseTimestamp(ts)
		if err != nil {
			continue
		}
		out = append(out, &model.TimelineEntry{Timestamp: ts, Seconds: seconds, Text: text})
	}
	return out, nil
}

// Ask answers a free-form question about one video using its transcript as
// grounding context.
//
// Inputs:
//   - ctx: The context for the request.
//   - userId: The requesting account.
//   - id: The video row key.
//   - question: The user's question.
//
// Outputs:
//   - string: The model's answer.
//   - error: A lookup or generation error.
func (s *VideoService) Ask(ctx context.Context, userId string, id string, question string) (string, error) {
	video, err := s.Get(ctx, userId, id)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, s.Templates.Qa, map[string]interface{}{
		"TITLE":      video.Title,
		"TRANSCRIPT": video.Transcript,
		"QUESTION":   question,
	})
}

// SuggestedQuestions asks the model for questions worth asking about a
// video. The model returns a JSON array of strings.
func (s *VideoService) SuggestedQuestions(ctx context.Context, userId string, id string) ([]string, error) {
	video, err := s.Get(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	raw, err := s.generate(ctx, s.Templates.SuggestedQuestions, map[string]interface{}{
		"TITLE":      video.Title,
		"TRANSCRIPT": video.Transcript,
	})
	if err != nil {
		return nil, err
	}
	var questions []string
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("failed to parse suggested questions: %w", err)
	}
	return questions, nil
}

// TimeRangeSummary summarizes the transcript between two timestamps.
//
// Inputs:
//   - ctx: The context for the request.
//   - userId: The requesting account.
//   - id: The video row key.
//   - timeRange: The span to summarize, "MM:SS" or "HH:MM:SS" endpoints.
//
// Outputs:
//   - string: The summary.
//   - error: An invalid range, lookup or generation error.
func (s *VideoService) TimeRangeSummary(ctx context.Context, userId string, id string, timeRange *model.TimeRange) (string, error) {
	video, err := s.Get(ctx, userId, id)
	if err != nil {
		return "", err
	}
	slice, err := sliceTranscript(video.Transcript, timeRange)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, s.Templates.TimeRange, map[string]interface{}{
		"TITLE":      video.Title,
		"START":      timeRange.Start,
		"END":        timeRange.End,
		"TRANSCRIPT": slice,
	})
}

// Compare contrasts two sections of one video.
func (s *VideoService) Compare(ctx context.Context, userId string, id string, rangeA *model.TimeRange, rangeB *model.TimeRange) (string, error) {
	video, err := s.Get(ctx, userId, id)
	if err != nil {
		return "", err
	}
	sliceA, err := sliceTranscript(video.Transcript, rangeA)
	if err != nil {
		return "", err
	}
	sliceB, err := sliceTranscript(video.Transcript, rangeB)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, s.Templates.Compare, map[string]interface{}{
		"TITLE":        video.Title,
		"START_A":      rangeA.Start,
		"END_A":        rangeA.End,
		"TRANSCRIPT_A": sliceA,
		"START_B":      rangeB.Start,
		"END_B":        rangeB.End,
		"TRANSCRIPT_B": sliceB,
	})
}

// Translate renders a video's analysis into another language. The model
// returns the full analysis JSON with string values translated, which is
// parsed back into a VideoAnalysis.
func (s *VideoService) Translate(ctx context.Context, userId string, id string, language string) (*model.VideoAnalysis, error) {
	video, err := s.Get(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	raw, err := s.generate(ctx, s.Templates.Translate, map[string]interface{}{
		"LANGUAGE":      language,
		"ANALYSIS_JSON": video.AnalysisJson,
	})
	if err != nil {
		return nil, err
	}
	analysis := &model.VideoAnalysis{}
	if err := json.Unmarshal([]byte(raw), analysis); err != nil {
		return nil, fmt.Errorf("failed to parse translated analysis: %w", err)
	}
	return analysis, nil
}

// generate executes one prompt template and sends it to the generative
// model.
func (s *VideoService) generate(ctx context.Context, tmpl *template.Template, params map[string]interface{}) (string, error) {
	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, params); err != nil {
		return "", err
	}
	return cloud.GenerateMultiModalResponse(
		ctx,
		s.inputTokenCounter,
		s.outputTokenCounter,
		s.retryCounter,
		0,
		s.GenModel,
		cloud.NewTextPart(buffer.String()))
}

// count runs a single-row COUNT query and returns its total.
func (s *VideoService) count(ctx context.Context, queryText string, params []bigquery.QueryParameter) (int, error) {
	q := s.BigqueryClient.Query(queryText)
	q.Parameters = params
	itr, err := q.Read(ctx)
	if err != nil {
		return 0, err
	}
	var row struct {
		Total int64 `bigquery:"total"`
	}
	if err := itr.Next(&row); err != nil {
		if errors.Is(err, iterator.Done) {
			return 0, nil
		}
		return 0, err
	}
	return int(row.Total), nil
}

// sliceTranscript extracts the transcript lines inside a time range,
// validating the range first.
func sliceTranscript(formatted string, timeRange *model.TimeRange) (string, error) {
	start, err := transcript.ParseTimestamp(timeRange.Start)
	if err != nil {
		return "", err
	}
	end, err := transcript.ParseTimestamp(timeRange.End)
	if err != nil {
		return "", err
	}
	if end <= start {
		return "", fmt.Errorf("invalid time range: %s is not after %s", timeRange.End, timeRange.Start)
	}
	slice := transcript.SliceByRange(formatted, start, end)
	if slice == "" {
		return "", fmt.Errorf("no transcript content between %s and %s", timeRange.Start, timeRange.End)
	}
	return slice, nil
}

// hydrate parses the JSON payload columns of a freshly scanned row into
// their structured fields.
func hydrate(video *model.ProcessedVideo) {
	if video.AnalysisJson != "" {
		analysis := &model.VideoAnalysis{}
		if err := json.Unmarshal([]byte(video.AnalysisJson), analysis); err == nil {
			video.Analysis = analysis
		}
	}
	if video.ChartJson != "" {
		chart := &model.ChartData{}
		if err := json.Unmarshal([]byte(video.ChartJson), chart); err == nil {
			video.ChartData = chart
		}
	}
}

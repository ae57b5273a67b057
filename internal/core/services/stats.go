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
// sources. This file, `stats.go`, builds the aggregate dashboard statistics:
// video and channel counts, trailing-week activity, top topics, content type
// distribution and the watch time versus read time comparison.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/transcript"
)

// StatsService aggregates dashboard statistics across the video and channel
// services.
type StatsService struct {
	Videos   *VideoService
	Channels *ChannelService
}

// Dashboard builds the full stats payload for one user. Topic and content
// type aggregates come from a scan of the user's video rows; the analysis
// payloads are JSON columns, so the aggregation happens here rather than in
// SQL.
//
// Inputs:
//   - ctx: The context for the request.
//   - userId: The requesting account.
//
// Outputs:
//   - *model.DashboardStats: The aggregate payload.
//   - error: A query error.
func (s *StatsService) Dashboard(ctx context.Context, userId string) (*model.DashboardStats, error) {
	out := &model.DashboardStats{
		TopTopics:    make([]model.ChartPoint, 0),
		ContentTypes: make(map[string]int),
	}

	channelCount, err := s.Channels.Count(ctx, userId)
	if err != nil {
		return nil, err
	}
	out.TotalChannels = channelCount

	thisWeek, err := s.Videos.count(ctx,
		fmt.Sprintf(QryCountVideosThisWeek, s.Videos.GetFQN()),
		[]bigquery.QueryParameter{{Name: "user_id", Value: userId}})
	if err != nil {
		return nil, err
	}
	out.VideosThisWeek = thisWeek

	q := s.Videos.BigqueryClient.Query(fmt.Sprintf("SELECT * FROM `%s` WHERE user_id = @user_id", s.Videos.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "user_id", Value: userId}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	topicCounts := make(map[string]int)
	watchSeconds := 0
	readMinutes := 0
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
		out.TotalVideos++

		if seconds, err := transcript.ParseTimestamp(video.Duration); err == nil {
			watchSeconds += seconds
		}
		if video.Analysis == nil {
			continue
		}
		for _, topic := range video.Analysis.Topics {
			topicCounts[topic]++
		}
		if video.Analysis.ContentType != "" {
			out.ContentTypes[video.Analysis.ContentType]++
		}
		readMinutes += parseReadMinutes(video.Analysis.EstimatedReadTime)
	}

	out.TopTopics = topTopics(topicCounts, 10)
	out.TotalWatchTime = formatHoursMinutes(watchSeconds / 60)
	saved := watchSeconds/60 - readMinutes
	if saved < 0 {
		saved = 0
	}
	out.EstimatedTimeSaved = formatHoursMinutes(saved)
	return out, nil
}

// topTopics ranks topics by count, ties broken alphabetically for stable
// output.
func topTopics(counts map[string]int, limit int) []model.ChartPoint {
	points := make([]model.ChartPoint, 0, len(counts))
	for topic, count := range counts {
		points = append(points, model.ChartPoint{Label: topic, Score: count})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Score != points[j].Score {
			return points[i].Score > points[j].Score
		}
		return points[i].Label < points[j].Label
	})
	if len(points) > limit {
		points = points[:limit]
	}
	return points
}

// parseReadMinutes pulls the minute count out of a "4 min read" string.
func parseReadMinutes(readTime string) int {
	var minutes int
	if _, err := fmt.Sscanf(strings.TrimSpace(readTime), "%d", &minutes); err != nil || minutes < 0 {
		return 0
	}
	return minutes
}

// formatHoursMinutes renders a minute total as "3h 25m" or "45m".
func formatHoursMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

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
// sources. This file, `channel.go`, defines the ChannelService: following
// and unfollowing YouTube channels, listing followed channels and kicking
// off on-demand refreshes.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/youtube/v3"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/commands"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// ErrAlreadyFollowing is returned when a user follows a channel twice.
var ErrAlreadyFollowing = errors.New("channel already followed")

// ErrChannelNotFound is returned when a channel URL or handle resolves to
// nothing on YouTube.
var ErrChannelNotFound = errors.New("channel not found")

// ChannelService manages the followed channel table and resolves
// user-supplied channel URLs against the YouTube Data API.
type ChannelService struct {
	BigqueryClient *bigquery.Client // Client for interacting with Google BigQuery.
	YouTubeService *youtube.Service // YouTube Data API service for channel resolution.
	RefreshTopic   *pubsub.Topic    // Topic on-demand refresh triggers are published to.
	DatasetName    string           // The name of the BigQuery dataset.
	ChannelTable   string           // The table containing followed channel rows.
	MaxVideos      int              // Cap forwarded on refresh triggers.
}

// GetFQN returns the fully qualified, dot-separated name of the channel
// table.
func (s *ChannelService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.ChannelTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Follow resolves a channel URL or handle via the YouTube Data API and
// records it as followed. Following is idempotent per user and channel.
//
// Inputs:
//   - ctx: The context for the request.
//   - userId: The requesting account.
//   - channelUrl: A channel URL ("youtube.com/@handle", "/channel/UC...")
//     or a bare handle.
//
// Outputs:
//   - *model.FollowedChannel: The stored channel row.
//   - error: ErrChannelNotFound, ErrAlreadyFollowing, or a query error.
func (s *ChannelService) Follow(ctx context.Context, userId string, channelUrl string) (*model.FollowedChannel, error) {
	resolved, err := s.resolveChannel(ctx, channelUrl)
	if err != nil {
		return nil, err
	}

	followed, err := s.isFollowing(ctx, userId, resolved.Id)
	if err != nil {
		return nil, err
	}
	if followed {
		return nil, ErrAlreadyFollowing
	}

	channel := &model.FollowedChannel{
		Id:              uuid.NewString(),
		UserId:          userId,
		ChannelName:     resolved.Snippet.Title,
		ChannelUrl:      channelUrl,
		ChannelId:       resolved.Id,
		AvatarUrl:       bestChannelThumbnail(resolved),
		SubscriberCount: formatSubscriberCount(resolved),
		FollowedAt:      time.Now().UTC(),
		LastChecked:     time.Now().UTC(),
	}

	inserter := s.BigqueryClient.Dataset(s.DatasetName).Table(s.ChannelTable).Inserter()
	if err := inserter.Put(ctx, channel); err != nil {
		return nil, err
	}
	return channel, nil
}

// Unfollow removes one followed channel row.
func (s *ChannelService) Unfollow(ctx context.Context, userId string, channelId string) error {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryDeleteChannel, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userId},
		{Name: "channel_id", Value: channelId},
	}
	job, err := q.Run(ctx)
	if err != nil {
		return err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return err
	}
	return status.Err()
}

// Following lists every channel the user follows, most recent first.
func (s *ChannelService) Following(ctx context.Context, userId string) ([]*model.FollowedChannel, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryListChannels, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "user_id", Value: userId}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.FollowedChannel, 0)
	for {
		channel := &model.FollowedChannel{}
		err := itr.Next(channel)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, channel)
	}
	return out, nil
}

// Count returns how many channels the user follows.
func (s *ChannelService) Count(ctx context.Context, userId string) (int, error) {
	channels, err := s.Following(ctx, userId)
	if err != nil {
		return 0, err
	}
	return len(channels), nil
}

// Refresh publishes an on-demand refresh trigger for every channel the user
// follows. The refresh listener does the per-channel work asynchronously.
//
// Outputs:
//   - int: How many refresh triggers were published.
//   - error: A listing or publish error.
func (s *ChannelService) Refresh(ctx context.Context, userId string) (int, error) {
	channels, err := s.Following(ctx, userId)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, channel := range channels {
		payload, _ := json.Marshal(&commands.ChannelRefreshTrigger{
			ChannelId: channel.ChannelId,
			UserId:    userId,
			MaxVideos: s.MaxVideos,
		})
		result := s.RefreshTopic.Publish(ctx, &pubsub.Message{Data: payload})
		if _, err := result.Get(ctx); err != nil {
			return published, fmt.Errorf("failed to publish refresh trigger for channel %s: %w", channel.ChannelId, err)
		}
		published++
	}
	return published, nil
}

// isFollowing checks for an existing follow row.
func (s *ChannelService) isFollowing(ctx context.Context, userId string, channelId string) (bool, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryFindChannel, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userId},
		{Name: "channel_id", Value: channelId},
	}
	itr, err := q.Read(ctx)
	if err != nil {
		return false, err
	}
	var row struct {
		Total int64 `bigquery:"total"`
	}
	if err := itr.Next(&row); err != nil {
		if errors.Is(err, iterator.Done) {
			return false, nil
		}
		return false, err
	}
	return row.Total > 0, nil
}

// resolveChannel turns a channel URL or handle into a full channel resource.
// Channel IDs ("UC...") resolve directly; anything else goes through the
// handle lookup.
func (s *ChannelService) resolveChannel(ctx context.Context, channelUrl string) (*youtube.Channel, error) {
	call := s.YouTubeService.Channels.List([]string{"id", "snippet", "statistics"})
	if id, ok := extractChannelId(channelUrl); ok {
		call = call.Id(id)
	} else {
		call = call.ForHandle(extractHandle(channelUrl))
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, ErrChannelNotFound
	}
	return resp.Items[0], nil
}

// extractChannelId pulls a raw channel ID out of a "/channel/UC..." URL or a
// bare "UC..." string.
func extractChannelId(channelUrl string) (string, bool) {
	if idx := strings.Index(channelUrl, "/channel/"); idx >= 0 {
		id := strings.Trim(channelUrl[idx+len("/channel/"):], "/")
		if cut := strings.IndexAny(id, "/?"); cut >= 0 {
			id = id[:cut]
		}
		return id, id != ""
	}
	if strings.HasPrefix(channelUrl, "UC") && !strings.ContainsAny(channelUrl, "/.") {
		return channelUrl, true
	}
	return "", false
}

// extractHandle pulls a channel handle ("@name") out of a URL or bare
// handle string.
func extractHandle(channelUrl string) string {
	if idx := strings.Index(channelUrl, "@"); idx >= 0 {
		handle := channelUrl[idx:]
		if cut := strings.IndexAny(handle, "/?"); cut >= 0 {
			handle = handle[:cut]
		}
		return handle
	}
	// Fall back to the last path segment for URLs like "/c/SomeName".
	trimmed := strings.TrimRight(channelUrl, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return channelUrl
}

// bestChannelThumbnail returns the highest quality thumbnail URL available.
func bestChannelThumbnail(channel *youtube.Channel) string {
	if channel.Snippet == nil || channel.Snippet.Thumbnails == nil {
		return ""
	}
	t := channel.Snippet.Thumbnails
	switch {
	case t.High != nil:
		return t.High.Url
	case t.Medium != nil:
		return t.Medium.Url
	case t.Default != nil:
		return t.Default.Url
	}
	return ""
}

// formatSubscriberCount renders a subscriber count the way the dashboard
// shows it: "1.2M", "45.3K", or the plain number below a thousand.
func formatSubscriberCount(channel *youtube.Channel) string {
	if channel.Statistics == nil || channel.Statistics.HiddenSubscriberCount {
		return ""
	}
	n := channel.Statistics.SubscriberCount
	switch {
	case n >= 1_000_000:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", float64(n)/1_000_000), ".0") + "M"
	case n >= 1_000:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", float64(n)/1_000), ".0") + "K"
	}
	return fmt.Sprintf("%d", n)
}

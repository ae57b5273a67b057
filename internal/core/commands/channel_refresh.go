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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// fan-out command of the channel refresh workflow.
//
// Logic Flow:
//  1. A refresh trigger naming a followed channel arrives as input.
//  2. The channel's most recent uploads are listed via the YouTube Data API.
//  3. For each upload, a processing trigger is published to the processing
//     topic. The processing listener picks these up one by one, so a channel
//     with many new videos doesn't stall the refresh sweep.
//
// The command publishes triggers for the newest uploads up to a configured
// cap; deduplication against already-processed videos happens in the video
// service before the publish list is built.
package commands

import (
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/youtube/v3"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// ChannelRefreshTrigger is the message that starts one channel's refresh.
type ChannelRefreshTrigger struct {
	ChannelId string `json:"channel_id"`
	UserId    string `json:"user_id"`
	MaxVideos int    `json:"max_videos,omitempty"`
}

// ChannelRefreshFanOut lists a channel's recent uploads and publishes a
// processing trigger for each one that hasn't been processed yet.
type ChannelRefreshFanOut struct {
	cor.BaseCommand
	youtubeService *youtube.Service
	processTopic   *pubsub.Topic
	maxVideos      int
	// isProcessed reports whether a video has already been processed for
	// the given user. Injected so the command stays free of storage
	// dependencies.
	isProcessed func(ctx cor.Context, userId string, videoId string) bool
}

// NewChannelRefreshFanOut is the constructor for the ChannelRefreshFanOut
// command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - youtubeService: An initialized YouTube Data API service.
//   - processTopic: The Pub/Sub topic processing triggers are published to.
//   - maxVideos: Default cap on uploads picked up per channel per sweep.
//   - isProcessed: Predicate answering whether a video was already processed.
//
// Outputs:
//   - *ChannelRefreshFanOut: A pointer to the newly instantiated command.
func NewChannelRefreshFanOut(
	name string,
	youtubeService *youtube.Service,
	processTopic *pubsub.Topic,
	maxVideos int,
	isProcessed func(ctx cor.Context, userId string, videoId string) bool) *ChannelRefreshFanOut {
	if maxVideos <= 0 {
		maxVideos = 5
	}
	return &ChannelRefreshFanOut{
		BaseCommand:    *cor.NewBaseCommand(name),
		youtubeService: youtubeService,
		processTopic:   processTopic,
		maxVideos:      maxVideos,
		isProcessed:    isProcessed,
	}
}

// Execute contains the core logic for the refresh fan-out.
//
// Inputs:
//   - context: The shared `cor.Context` holding the raw refresh trigger JSON.
func (c *ChannelRefreshFanOut) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var trigger ChannelRefreshTrigger
	if err := json.Unmarshal([]byte(in), &trigger); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal refresh trigger: %w", err))
		return
	}
	max := trigger.MaxVideos
	if max <= 0 || max > c.maxVideos {
		max = c.maxVideos
	}

	// The channel's uploads live in a playlist whose ID is derivable from
	// the channel ID, but search.list ordered by date is a single call and
	// also filters out non-video items.
	call := c.youtubeService.Search.List([]string{"id"}).
		ChannelId(trigger.ChannelId).
		Type("video").
		Order("date").
		MaxResults(int64(max))
	resp, err := call.Context(context.GetContext()).Do()
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("youtube search.list failed for channel %s: %w", trigger.ChannelId, err))
		return
	}

	published := 0
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		if c.isProcessed != nil && c.isProcessed(context, trigger.UserId, item.Id.VideoId) {
			continue
		}
		payload, _ := json.Marshal(&model.ProcessingTrigger{
			Url:       fmt.Sprintf("https://www.youtube.com/watch?v=%s", item.Id.VideoId),
			Language:  "en",
			UserId:    trigger.UserId,
			ChannelId: trigger.ChannelId,
		})
		result := c.processTopic.Publish(context.GetContext(), &pubsub.Message{Data: payload})
		if _, err := result.Get(context.GetContext()); err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("failed to publish processing trigger for %s: %w", item.Id.VideoId, err))
			return
		}
		published++
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), published)
}

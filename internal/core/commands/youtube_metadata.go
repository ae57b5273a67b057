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
// command that looks up a video's metadata on the YouTube Data API.
//
// Logic Flow:
//  1. The parsed trigger arrives as the command's input.
//  2. A videos.list call fetches the snippet and contentDetails parts for
//     the trigger's video ID.
//  3. A channels.list call fetches the publishing channel's thumbnail, which
//     the video snippet does not carry.
//  4. The ISO 8601 duration is rewritten into the "H:MM:SS" display form.
//  5. The assembled `model.VideoMetadata` is stored under a well-known key
//     and piped to the next command.
package commands

import (
	"fmt"
	"regexp"
	"strconv"

	"google.golang.org/api/youtube/v3"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

var isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// GetMetadataParamName returns the well-known context key under which the
// video metadata is stored for the rest of the chain.
//
// Outputs:
//   - string: A constant placeholder string "__METADATA__".
func GetMetadataParamName() string {
	return "__METADATA__"
}

// FormatISODuration rewrites an ISO 8601 duration ("PT1H2M3S") as a display
// duration ("1:02:03"). Durations under an hour render as "M:SS". Inputs
// that don't parse come back unchanged.
func FormatISODuration(iso string) string {
	m := isoDurationPattern.FindStringSubmatch(iso)
	if m == nil {
		return iso
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// YouTubeMetadataFetch is a command that resolves a trigger's video ID into
// full video metadata using the YouTube Data API.
type YouTubeMetadataFetch struct {
	cor.BaseCommand
	youtubeService *youtube.Service
}

// NewYouTubeMetadataFetch is the constructor for the YouTubeMetadataFetch
// command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - youtubeService: An initialized YouTube Data API service.
//
// Outputs:
//   - *YouTubeMetadataFetch: A pointer to the newly instantiated command.
func NewYouTubeMetadataFetch(name string, youtubeService *youtube.Service) *YouTubeMetadataFetch {
	return &YouTubeMetadataFetch{BaseCommand: *cor.NewBaseCommand(name), youtubeService: youtubeService}
}

// Execute contains the core logic for the metadata lookup.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *YouTubeMetadataFetch) Execute(context cor.Context) {
	trigger := context.Get(c.GetInputParam()).(*model.ProcessingTrigger)
	videoId := ExtractVideoId(trigger.Url)

	videoCall := c.youtubeService.Videos.List([]string{"snippet", "contentDetails"}).Id(videoId)
	videoResp, err := videoCall.Context(context.GetContext()).Do()
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("youtube videos.list failed for %s: %w", videoId, err))
		return
	}
	if len(videoResp.Items) == 0 {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("video %s not found on youtube", videoId))
		return
	}
	video := videoResp.Items[0]

	out := &model.VideoMetadata{
		VideoId:     videoId,
		Title:       video.Snippet.Title,
		ChannelId:   video.Snippet.ChannelId,
		ChannelName: video.Snippet.ChannelTitle,
		PublishedAt: video.Snippet.PublishedAt,
		Duration:    FormatISODuration(video.ContentDetails.Duration),
	}
	if video.Snippet.Thumbnails != nil {
		out.Thumbnail = bestThumbnail(video.Snippet.Thumbnails)
	}

	// A second lookup for the channel avatar; the video snippet doesn't
	// carry it. Failure here is cosmetic, not fatal.
	channelCall := c.youtubeService.Channels.List([]string{"snippet"}).Id(video.Snippet.ChannelId)
	channelResp, err := channelCall.Context(context.GetContext()).Do()
	if err == nil && len(channelResp.Items) > 0 && channelResp.Items[0].Snippet.Thumbnails != nil {
		out.ChannelAvatar = bestThumbnail(channelResp.Items[0].Snippet.Thumbnails)
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetMetadataParamName(), out)
	context.Add(c.GetOutputParam(), out)
}

// bestThumbnail picks the highest quality thumbnail available.
func bestThumbnail(t *youtube.ThumbnailDetails) string {
	switch {
	case t.Maxres != nil:
		return t.Maxres.Url
	case t.High != nil:
		return t.High.Url
	case t.Medium != nil:
		return t.Medium.Url
	case t.Default != nil:
		return t.Default.Url
	}
	return ""
}

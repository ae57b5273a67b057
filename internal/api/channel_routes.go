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

// This file holds the channel-following endpoints. All of them sit behind
// the channel_following entitlement check registered in api.go.
package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/auth"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/services"
)

type followRequest struct {
	ChannelUrl string `json:"channel_url" binding:"required"`
}

// Handler for POST /api/channels/follow
func (h *Handlers) followChannel(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	channel, err := h.Channels.Follow(c.Request.Context(), user.Id, req.ChannelUrl)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyFollowing):
			c.JSON(http.StatusConflict, gin.H{"error": "already following this channel"})
		case errors.Is(err, services.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		default:
			log.Printf("failed to follow channel: %v\n", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to follow channel"})
		}
		return
	}
	c.JSON(http.StatusCreated, channel)
}

// Handler for GET /api/channels/following
func (h *Handlers) followingChannels(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	channels, err := h.Channels.Following(c.Request.Context(), user.Id)
	if err != nil {
		log.Printf("failed to list followed channels: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// Handler for DELETE /api/channels/follow/:channel_id
func (h *Handlers) unfollowChannel(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	if err := h.Channels.Unfollow(c.Request.Context(), user.Id, c.Param("channel_id")); err != nil {
		if errors.Is(err, services.ErrChannelNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		log.Printf("failed to unfollow channel: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

// Handler for POST /api/channels/refresh-videos
//
// Publishes a refresh trigger for each followed channel. Processing of any
// new uploads happens asynchronously on the Pub/Sub path.
func (h *Handlers) refreshChannels(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	queued, err := h.Channels.Refresh(c.Request.Context(), user.Id)
	if err != nil {
		log.Printf("failed to queue channel refresh: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"channels_queued": queued})
}

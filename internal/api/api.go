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

// Package api defines the REST and WebSocket surface of the dashboard
// backend. This file holds the handler container and the route table;
// the handlers themselves live in the sibling files, grouped by area.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/auth"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/services"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/workflow"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/entitlement"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/subscription"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/tts"
)

// Handlers bundles every dependency the route handlers need. The server
// builds one of these at startup and registers it on the gin engine.
type Handlers struct {
	Config        *cloud.Config
	Auth          *auth.Service
	Subscriptions *subscription.Service
	Videos        *services.VideoService
	Channels      *services.ChannelService
	Search        *services.SearchService
	Stats         *services.StatsService
	Clips         *services.ClipService
	Processor     *workflow.VideoReaderWorkflow
	TTSGateway    *tts.Gateway
}

// Register wires the full route table: the public auth endpoints, the
// authenticated /api surface, and the text-to-speech WebSocket endpoint.
func (h *Handlers) Register(r *gin.Engine) {
	api := r.Group("/api")

	// Registration and login are the only endpoints outside the auth
	// middleware.
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)

	authenticated := api.Group("")
	authenticated.Use(auth.Middleware(h.Auth))
	{
		authenticated.POST("/auth/logout", h.logout)
		authenticated.GET("/auth/me", h.me)

		authenticated.GET("/settings", h.getSettings)
		authenticated.PUT("/settings", h.updateSettings)
		authenticated.GET("/preferences", h.getPreferences)
		authenticated.PUT("/preferences", h.updatePreferences)
		authenticated.POST("/preferences/dismiss", h.dismissPreference)

		videos := authenticated.Group("/videos")
		{
			videos.POST("/process", h.processVideo)
			videos.GET("", h.listVideos)
			videos.GET("/:id", h.getVideo)
			videos.GET("/:id/timeline", h.videoTimeline)
			videos.POST("/:id/time-range-summary",
				entitlement.RequireFeature(entitlement.FeatureTimeRangeSummary), h.timeRangeSummary)
			videos.POST("/:id/compare-time-ranges",
				entitlement.RequireFeature(entitlement.FeatureTimeRangeSummary), h.compareRanges)
			videos.POST("/:id/ask",
				entitlement.RequireFeature(entitlement.FeatureVideoQa), h.askVideo)
			videos.GET("/:id/suggested-questions",
				entitlement.RequireFeature(entitlement.FeatureVideoQa), h.suggestedQuestions)
			videos.POST("/:id/translate",
				entitlement.RequireFeature(entitlement.FeatureTranslation), h.translateVideo)
		}

		channels := authenticated.Group("/channels")
		channels.Use(entitlement.RequireFeature(entitlement.FeatureChannelFollowing))
		{
			channels.POST("/follow", h.followChannel)
			channels.GET("/following", h.followingChannels)
			channels.DELETE("/follow/:channel_id", h.unfollowChannel)
			channels.POST("/refresh-videos", h.refreshChannels)
		}

		authenticated.GET("/search/videos", h.searchVideos)
		authenticated.POST("/search/youtube", h.searchYouTube)
		authenticated.GET("/stats", h.dashboardStats)

		authenticated.GET("/tts/voices",
			entitlement.RequireFeature(entitlement.FeatureTextToSpeech), h.ttsVoices)
		authenticated.GET("/clips/:clip_id/stream",
			entitlement.RequireFeature(entitlement.FeatureTextToSpeech), h.streamClip)

		subs := authenticated.Group("/subscription")
		{
			subs.GET("/plans", h.subscriptionPlans)
			subs.POST("/checkout", h.subscriptionCheckout)
			subs.POST("/verify", h.subscriptionVerify)
			subs.POST("/cancel", h.subscriptionCancel)
			subs.GET("/status", h.subscriptionStatus)
		}
	}

	// The WebSocket endpoint sits outside /api but behind the same auth
	// and entitlement gates.
	r.GET("/ws/text-to-speech",
		auth.Middleware(h.Auth),
		entitlement.RequireFeature(entitlement.FeatureTextToSpeech),
		h.TTSGateway.Handle)
}

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
// backend. This file holds the video endpoints: submitting a video for
// processing, listing and fetching processed videos, the timeline view, and
// the on-demand generative operations.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/auth"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/commands"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/services"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/workflow"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/transcript"
)

type processRequest struct {
	Url      string `json:"url" binding:"required"`
	Language string `json:"language"`
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

type compareRequest struct {
	RangeA model.TimeRange `json:"range_a" binding:"required"`
	RangeB model.TimeRange `json:"range_b" binding:"required"`
}

type translateRequest struct {
	Language string `json:"language" binding:"required"`
}

// Handler for POST /api/videos/process
//
// Processing runs synchronously: the full pipeline executes within the
// request and the completed video is the response body. Channel refresh
// uploads take the asynchronous Pub/Sub path instead.
func (h *Handlers) processVideo(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if commands.ExtractVideoId(req.Url) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url does not contain a recognizable video id"})
		return
	}

	trigger, _ := json.Marshal(&model.ProcessingTrigger{
		Url:      req.Url,
		Language: req.Language,
		UserId:   user.Id,
	})

	tracer := otel.Tracer("process-endpoint")
	traceCtx, span := tracer.Start(c.Request.Context(), "process-video")
	defer span.End()

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(traceCtx)
	chainCtx.Add(cor.CtxIn, string(trigger))

	h.Processor.Execute(chainCtx)

	if chainCtx.HasErrors() {
		for name, err := range chainCtx.GetErrors() {
			log.Printf("processing failed in %s: %v\n", name, err)
			if errors.Is(err, transcript.ErrNoTranscript) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no transcript available for this video"})
				return
			}
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	video, ok := chainCtx.Get(workflow.VideoOutputParamName).(*model.ProcessedVideo)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing produced no result"})
		return
	}
	c.JSON(http.StatusOK, video)
}

// Handler for GET /api/videos?page=<n>&limit=<n>&channel=<name>
func (h *Handlers) listVideos(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		limit = 20
	}
	out, err := h.Videos.List(c.Request.Context(), user.Id, c.Query("channel"), page, limit)
	if err != nil {
		log.Printf("failed to list videos: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Handler for GET /api/videos/:id
func (h *Handlers) getVideo(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	video, err := h.Videos.Get(c.Request.Context(), user.Id, c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrVideoNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		log.Printf("failed to get video: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, video)
}

// Handler for GET /api/videos/:id/timeline
func (h *Handlers) videoTimeline(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	timeline, err := h.Videos.Timeline(c.Request.Context(), user.Id, c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrVideoNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		log.Printf("failed to build timeline: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeline": timeline})
}

// Handler for POST /api/videos/:id/time-range-summary
func (h *Handlers) timeRangeSummary(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	timeRange := &model.TimeRange{}
	if err := c.ShouldBindJSON(timeRange); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	summary, err := h.Videos.TimeRangeSummary(c.Request.Context(), user.Id, c.Param("id"), timeRange)
	if err != nil {
		h.generativeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "start_time": timeRange.Start, "end_time": timeRange.End})
}

// Handler for POST /api/videos/:id/compare-time-ranges
func (h *Handlers) compareRanges(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comparison, err := h.Videos.Compare(c.Request.Context(), user.Id, c.Param("id"), &req.RangeA, &req.RangeB)
	if err != nil {
		h.generativeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comparison": comparison})
}

// Handler for POST /api/videos/:id/ask
func (h *Handlers) askVideo(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	answer, err := h.Videos.Ask(c.Request.Context(), user.Id, c.Param("id"), req.Question)
	if err != nil {
		h.generativeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// Handler for GET /api/videos/:id/suggested-questions
func (h *Handlers) suggestedQuestions(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	questions, err := h.Videos.SuggestedQuestions(c.Request.Context(), user.Id, c.Param("id"))
	if err != nil {
		h.generativeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// Handler for POST /api/videos/:id/translate
func (h *Handlers) translateVideo(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	analysis, err := h.Videos.Translate(c.Request.Context(), user.Id, c.Param("id"), req.Language)
	if err != nil {
		h.generativeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"language": req.Language, "analysis": analysis})
}

// generativeError maps service errors from the on-demand generative
// operations onto response codes.
func (h *Handlers) generativeError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrVideoNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	log.Printf("generative operation failed: %v\n", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
}

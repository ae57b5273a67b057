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

// This file holds the semantic search endpoint and the dashboard statistics
// endpoint.
package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/auth"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

const defaultSearchResults = 10

// Handler for GET /api/search/videos?q=<query>&limit=<n>
//
// Runs a KNN vector search over the stored embeddings, then loads the full
// video records for the matched ids. The embedding search is not scoped by
// user, so the record load filters out matches the caller cannot see.
func (h *Handlers) searchVideos(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultSearchResults)))
	if err != nil || limit <= 0 {
		limit = defaultSearchResults
	}

	matches, err := h.Search.FindVideos(c.Request.Context(), query, limit)
	if err != nil {
		log.Printf("search failed: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.VideoId)
	}
	videos, err := h.Videos.FindByIds(c.Request.Context(), user.Id, ids)
	if err != nil {
		log.Printf("failed to load search results: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "videos": videos})
}

// Handler for POST /api/search/youtube
//
// Proxies a discovery search to the YouTube Data API. Results are not
// user-scoped: they are videos the caller has not processed yet.
func (h *Handlers) searchYouTube(c *gin.Context) {
	var req model.SearchQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Q = strings.TrimSpace(req.Q)
	if req.Q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing search query q"})
		return
	}

	results, err := h.Search.FindOnYouTube(c.Request.Context(), req.Q, req.Limit)
	if err != nil {
		log.Printf("youtube search failed: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": req.Q, "results": results})
}

// Handler for GET /api/stats
func (h *Handlers) dashboardStats(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	stats, err := h.Stats.Dashboard(c.Request.Context(), user.Id)
	if err != nil {
		log.Printf("failed to build dashboard stats: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, stats)
}

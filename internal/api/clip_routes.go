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

// This file holds the endpoint for replaying archived speech clips.
package api

import (
	"fmt"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// clipIdPattern matches the UUID object names the synthesis gateway writes.
var clipIdPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Handler for GET /api/clips/:clip_id/stream
//
// Generates a signed URL valid for 15 minutes for an archived speech clip so
// the frontend can replay it without re-synthesizing.
func (h *Handlers) streamClip(c *gin.Context) {
	clipId := c.Param("clip_id")
	if !clipIdPattern.MatchString(clipId) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid clip id"})
		return
	}
	signedURL, err := h.Clips.SignedClipURL(c.Request.Context(), fmt.Sprintf("clips/%s.mp3", clipId), 15*time.Minute)
	if err != nil {
		log.Printf("failed to generate signed clip URL: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate streaming URL"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

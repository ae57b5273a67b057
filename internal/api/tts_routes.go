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

// This file holds the REST side of the text-to-speech feature; the
// streaming endpoint itself lives on the gateway.
package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler for GET /api/tts/voices
func (h *Handlers) ttsVoices(c *gin.Context) {
	voices, err := h.TTSGateway.Voices(c.Request.Context())
	if err != nil {
		log.Printf("failed to list voices: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voices": voices})
}

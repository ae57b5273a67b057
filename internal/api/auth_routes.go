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
// backend. This file holds the account endpoints: registration, login,
// logout, the current-user lookup, and the settings and preferences CRUD.
package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/auth"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Handler for POST /api/auth/register
func (h *Handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Auth.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Handler for POST /api/auth/login
func (h *Handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		log.Printf("login failed: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Handler for POST /api/auth/logout
func (h *Handlers) logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		c.Status(http.StatusBadRequest)
		return
	}
	if err := h.Auth.Logout(c.Request.Context(), strings.TrimSpace(parts[1])); err != nil {
		log.Printf("logout failed: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// Handler for GET /api/auth/me
func (h *Handlers) me(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	c.JSON(http.StatusOK, user)
}

// Handler for GET /api/settings
func (h *Handlers) getSettings(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	settings, err := h.Auth.Store.GetSettings(c.Request.Context(), user.Id)
	if err != nil {
		log.Printf("failed to load settings: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// Handler for PUT /api/settings
func (h *Handlers) updateSettings(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	settings := &model.UserSettings{}
	if err := c.ShouldBindJSON(settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch settings.ProcessFrequency {
	case "", "hourly", "daily", "weekly":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "process_frequency must be hourly, daily or weekly"})
		return
	}
	if settings.ProcessFrequency == "" {
		settings.ProcessFrequency = "daily"
	}
	if err := h.Auth.Store.UpdateSettings(c.Request.Context(), user.Id, settings); err != nil {
		log.Printf("failed to update settings: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// Handler for GET /api/preferences
func (h *Handlers) getPreferences(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	prefs, err := h.Auth.Store.GetPreferences(c.Request.Context(), user.Id)
	if err != nil {
		log.Printf("failed to load preferences: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// Handler for PUT /api/preferences
func (h *Handlers) updatePreferences(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	prefs := make(map[string]string)
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Auth.Store.SetPreferences(c.Request.Context(), user.Id, prefs); err != nil {
		log.Printf("failed to update preferences: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

type dismissRequest struct {
	Key string `json:"key" binding:"required"`
}

// Handler for POST /api/preferences/dismiss
//
// Records that the user dismissed a dashboard element (a banner, an upgrade
// prompt) so it stays hidden across sessions.
func (h *Handlers) dismissPreference(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	var req dismissRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	prefs := map[string]string{"dismissed." + req.Key: "true"}
	if err := h.Auth.Store.SetPreferences(c.Request.Context(), user.Id, prefs); err != nil {
		log.Printf("failed to record dismissal: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dismissed": req.Key})
}

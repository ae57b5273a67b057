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

// This file holds the subscription endpoints: the plan catalog, Stripe
// checkout, post-payment verification, cancellation, and status.
package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/auth"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/subscription"
)

type checkoutRequest struct {
	Plan string `json:"plan" binding:"required"`
}

type verifyRequest struct {
	SessionId string `json:"session_id" binding:"required"`
}

// Handler for GET /api/subscription/plans
func (h *Handlers) subscriptionPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": h.Subscriptions.Plans()})
}

// Handler for POST /api/subscription/checkout
func (h *Handlers) subscriptionCheckout(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	url, sessionId, err := h.Subscriptions.Checkout(c.Request.Context(), user, req.Plan)
	if err != nil {
		if errors.Is(err, subscription.ErrUnknownPlan) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
			return
		}
		log.Printf("failed to create checkout session: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkout_url": url, "session_id": sessionId})
}

// Handler for POST /api/subscription/verify
//
// Called by the frontend after Stripe redirects back to the success URL.
// Activates the subscription and upgrades the account tier when the session
// reports the payment as complete.
func (h *Handlers) subscriptionVerify(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, err := h.Subscriptions.Verify(c.Request.Context(), user, req.SessionId)
	if err != nil {
		if errors.Is(err, subscription.ErrNoSubscription) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no matching checkout session"})
			return
		}
		log.Printf("failed to verify checkout session: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify checkout session"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Handler for POST /api/subscription/cancel
func (h *Handlers) subscriptionCancel(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	if err := h.Subscriptions.Cancel(c.Request.Context(), user); err != nil {
		if errors.Is(err, subscription.ErrNoSubscription) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active subscription"})
			return
		}
		log.Printf("failed to cancel subscription: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "canceled"})
}

// Handler for GET /api/subscription/status
func (h *Handlers) subscriptionStatus(c *gin.Context) {
	user, _ := auth.UserFrom(c)
	sub, err := h.Subscriptions.Status(c.Request.Context(), user)
	if err != nil {
		log.Printf("failed to load subscription status: %v\n", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if sub == nil {
		c.JSON(http.StatusOK, gin.H{"plan": user.Tier, "status": "none"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

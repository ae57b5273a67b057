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

// Package entitlement maps plan tiers to the features they unlock. This
// file holds the gin middleware for tier-gated routes.
package entitlement

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/auth"
)

// RequireFeature rejects requests from accounts whose tier does not unlock
// the feature. It must run after the auth middleware; a request with no
// authenticated user reads as unauthorized, not as free tier.
func RequireFeature(feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.UserFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !ResolveAccess(user.Tier, feature) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "feature not available on your plan",
				"feature": feature,
				"message": UpgradeMessage(feature),
			})
			return
		}
		c.Next()
	}
}

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

// Package entitlement maps plan tiers to the features they unlock. The
// feature table is the single source of truth: handlers never compare tier
// names directly, they ask this package whether a feature is available.
//
// Resolution is fail-closed on features and fail-down on tiers: an unknown
// feature key resolves to no access for everyone, while an unrecognized
// tier name is treated as the free tier, so a corrupt tier value degrades
// an account instead of locking it out of the free surface.
package entitlement

import "fmt"

// Tier is a plan level. Tiers are strictly ordered: every feature a tier
// unlocks is also unlocked by the tiers above it.
type Tier int

const (
	// TierFree is the default tier for new accounts.
	TierFree Tier = iota
	// TierBasic is the entry paid tier.
	TierBasic
	// TierPremium unlocks everything.
	TierPremium
)

// String returns the tier's wire name.
func (t Tier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierBasic:
		return "basic"
	case TierPremium:
		return "premium"
	}
	return "unknown"
}

// ParseTier maps a stored tier name to a Tier. The second return value is
// false for unrecognized names; callers treat those as no access.
func ParseTier(name string) (Tier, bool) {
	switch name {
	case "free":
		return TierFree, true
	case "basic":
		return TierBasic, true
	case "premium":
		return TierPremium, true
	}
	return TierFree, false
}

// Feature keys. Dashboard sections, user-facing features and analysis
// sections each get their own namespace.
const (
	FeatureDashboardOverview   = "dashboard.overview"
	FeatureDashboardMyChannels = "dashboard.my_channels"
	FeatureDashboardTopics     = "dashboard.topics"

	FeatureChannelFollowing = "features.channel_following"
	FeatureTextToSpeech     = "features.text_to_speech"
	FeatureTranslation      = "features.translation"
	FeatureVideoQa          = "features.video_qa"
	FeatureTimeRangeSummary = "features.time_range_summary"

	FeatureExecutiveSummary = "analysis.ai_analysis.executive_summary"
	FeatureToneAnalysis     = "analysis.ai_analysis.tone_analysis"
)

// minimumTier is the feature table: the lowest tier that unlocks each
// feature. Features missing from this table resolve to no access for every
// tier.
var minimumTier = map[string]Tier{
	FeatureDashboardOverview:   TierFree,
	FeatureDashboardMyChannels: TierBasic,
	FeatureDashboardTopics:     TierPremium,

	FeatureChannelFollowing: TierBasic,
	FeatureTextToSpeech:     TierBasic,
	FeatureTranslation:      TierPremium,
	FeatureVideoQa:          TierBasic,
	FeatureTimeRangeSummary: TierPremium,

	FeatureExecutiveSummary: TierFree,
	FeatureToneAnalysis:     TierPremium,
}

// ResolveAccess reports whether a tier (by stored name) unlocks a feature.
// Unrecognized tier names fall back to the free tier's table, so an account
// with a corrupt tier value still sees the free surface. Unknown features
// resolve to false for every tier.
func ResolveAccess(tierName string, feature string) bool {
	tier, _ := ParseTier(tierName)
	minimum, ok := minimumTier[feature]
	if !ok {
		return false
	}
	return tier >= minimum
}

// MinimumTierFor returns the lowest tier that unlocks a feature. Unknown
// features map to the premium tier, the most restrictive answer.
func MinimumTierFor(feature string) Tier {
	if tier, ok := minimumTier[feature]; ok {
		return tier
	}
	return TierPremium
}

// Features lists every known feature key with the minimum tier that unlocks
// it. Used by the plan catalog endpoint.
func Features() map[string]string {
	out := make(map[string]string, len(minimumTier))
	for feature, tier := range minimumTier {
		out[feature] = tier.String()
	}
	return out
}

// UpgradeMessage renders the message shown when a feature is locked: which
// plan unlocks it. Unknown features get a generic message since there is no
// plan that unlocks them.
func UpgradeMessage(feature string) string {
	tier, ok := minimumTier[feature]
	if !ok {
		return "This feature is not available on any plan."
	}
	return fmt.Sprintf("Upgrade to the %s plan to unlock this feature.", tier.String())
}

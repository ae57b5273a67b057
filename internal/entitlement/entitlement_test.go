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

package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTier(t *testing.T) {
	tier, ok := ParseTier("free")
	assert.True(t, ok)
	assert.Equal(t, TierFree, tier)

	tier, ok = ParseTier("premium")
	assert.True(t, ok)
	assert.Equal(t, TierPremium, tier)

	_, ok = ParseTier("enterprise")
	assert.False(t, ok)
	_, ok = ParseTier("")
	assert.False(t, ok)
}

func TestResolveAccess(t *testing.T) {
	cases := []struct {
		tier    string
		feature string
		want    bool
	}{
		{"free", FeatureDashboardOverview, true},
		{"free", FeatureExecutiveSummary, true},
		{"free", FeatureChannelFollowing, false},
		{"free", FeatureTranslation, false},
		{"basic", FeatureChannelFollowing, true},
		{"basic", FeatureTextToSpeech, true},
		{"basic", FeatureVideoQa, true},
		{"basic", FeatureTimeRangeSummary, false},
		{"basic", FeatureToneAnalysis, false},
		{"premium", FeatureTimeRangeSummary, true},
		{"premium", FeatureTranslation, true},
		{"premium", FeatureDashboardOverview, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ResolveAccess(c.tier, c.feature), "%s / %s", c.tier, c.feature)
	}
}

func TestResolveAccessFallsBackToFree(t *testing.T) {
	// Unrecognized tier names degrade to the free tier: free features stay
	// reachable, paid features stay locked.
	assert.True(t, ResolveAccess("enterprise", FeatureDashboardOverview))
	assert.True(t, ResolveAccess("", FeatureExecutiveSummary))
	assert.False(t, ResolveAccess("enterprise", FeatureChannelFollowing))
	assert.False(t, ResolveAccess("", FeatureTranslation))
}

func TestResolveAccessFailsClosed(t *testing.T) {
	// Unknown features resolve to no access for every tier.
	assert.False(t, ResolveAccess("premium", "features.does_not_exist"))
	assert.False(t, ResolveAccess("premium", ""))
}

func TestTierOrderIsSuperset(t *testing.T) {
	// Every feature a lower tier unlocks must also be unlocked by the tiers
	// above it.
	for feature := range Features() {
		for _, pair := range [][2]string{{"free", "basic"}, {"basic", "premium"}} {
			if ResolveAccess(pair[0], feature) {
				assert.True(t, ResolveAccess(pair[1], feature),
					"%s unlocked for %s but not %s", feature, pair[0], pair[1])
			}
		}
	}
}

func TestMinimumTierFor(t *testing.T) {
	assert.Equal(t, TierPremium, MinimumTierFor(FeatureToneAnalysis))
	assert.Equal(t, TierBasic, MinimumTierFor(FeatureTextToSpeech))
	assert.Equal(t, TierFree, MinimumTierFor(FeatureDashboardOverview))

	// Unknown features get the most restrictive answer.
	assert.Equal(t, TierPremium, MinimumTierFor("not.a.feature"))
}

func TestUpgradeMessage(t *testing.T) {
	assert.Contains(t, UpgradeMessage(FeatureTranslation), "premium")
	assert.Contains(t, UpgradeMessage(FeatureVideoQa), "basic")
	assert.Equal(t, "This feature is not available on any plan.", UpgradeMessage("not.a.feature"))
}

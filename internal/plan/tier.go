// Package plan holds the subscription tiers and the static plan→feature
// table used for feature gating.
package plan

import "strings"

// Tier is a subscription plan level.
type Tier string

const (
	TierTrial   Tier = "trial"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// tierRank orders tiers for comparison. Unknown tiers rank as trial.
var tierRank = map[Tier]int{
	TierTrial:   0,
	TierPro:     1,
	TierPremium: 2,
}

// ParseTier normalizes a provider-supplied tier string. Absent or unknown
// values default to trial.
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierPro:
		return TierPro
	case TierPremium:
		return TierPremium
	default:
		return TierTrial
	}
}

// AtLeast reports whether t meets or exceeds min.
func (t Tier) AtLeast(min Tier) bool {
	return tierRank[t] >= tierRank[min]
}

func (t Tier) String() string { return string(t) }

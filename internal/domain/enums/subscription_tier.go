package enums

import "strings"

type SubscriptionTier string

const (
	SubscriptionTierPro     SubscriptionTier = "pro"
	SubscriptionTierPremium SubscriptionTier = "premium"
)

func ParseSubscriptionTier(raw string) (SubscriptionTier, bool) {
	switch SubscriptionTier(strings.ToLower(strings.TrimSpace(raw))) {
	case SubscriptionTierPro:
		return SubscriptionTierPro, true
	case SubscriptionTierPremium:
		return SubscriptionTierPremium, true
	default:
		return "", false
	}
}

// Rank orders tiers for anomaly resolution: when more than one subscription
// qualifies as active, the higher-ranked tier wins.
func (t SubscriptionTier) Rank() int {
	switch t {
	case SubscriptionTierPremium:
		return 2
	case SubscriptionTierPro:
		return 1
	default:
		return 0
	}
}

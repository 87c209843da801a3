package model

import "github.com/16madina/lazone/backend/internal/domain/enums"

// CreditLedgerView aggregates remaining publication credit across the three
// sources for one user/mode pair. Recomputed fresh on every evaluation.
// Degraded lists the sources whose sub-query failed and contributed zero.
type CreditLedgerView struct {
	SubscriptionRemaining int                      `json:"subscription_remaining"`
	PackRemaining         int                      `json:"pack_remaining"`
	LegacyRemaining       int                      `json:"legacy_remaining"`
	Total                 int                      `json:"total"`
	Degraded              []enums.CreditSourceKind `json:"degraded,omitempty"`
}

func (v CreditLedgerView) IsDegraded() bool {
	return len(v.Degraded) > 0
}

package dto

type MoneyPayload struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type LedgerPayload struct {
	SubscriptionRemaining int      `json:"subscription_remaining"`
	PackRemaining         int      `json:"pack_remaining"`
	LegacyRemaining       int      `json:"legacy_remaining"`
	Total                 int      `json:"total"`
	Degraded              []string `json:"degraded,omitempty"`
}

type EvaluateResponse struct {
	Decision    string         `json:"decision"`
	Source      string         `json:"source,omitempty"`
	Price       *MoneyPayload  `json:"price,omitempty"`
	FreeLimit   int            `json:"free_limit"`
	ActiveCount int            `json:"active_count"`
	Ledger      *LedgerPayload `json:"ledger,omitempty"`
}

type LedgerResponse struct {
	Mode   string        `json:"mode"`
	Ledger LedgerPayload `json:"ledger"`
}

type ConsumeRequest struct {
	Mode       string `json:"mode"`
	ListingID  int64  `json:"listing_id"`
	SourceKind string `json:"source_kind,omitempty"`
}

type ConsumeResponse struct {
	SourceKind string `json:"source_kind"`
	SourceRef  string `json:"source_ref"`
	AuditID    string `json:"audit_id,omitempty"`
}

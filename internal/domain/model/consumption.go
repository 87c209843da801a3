package model

import (
	"time"

	"github.com/16madina/lazone/backend/internal/domain/enums"
)

// ConsumedFrom identifies the concrete credit unit a consumption debited,
// for audit and display.
type ConsumedFrom struct {
	Kind      enums.CreditSourceKind `json:"kind"`
	SourceRef string                 `json:"source_ref"`
	AuditID   string                 `json:"audit_id"`
}

type CreditConsumption struct {
	ID         string                 `json:"id"`
	UserID     int64                  `json:"user_id"`
	Mode       enums.ListingMode      `json:"mode"`
	SourceKind enums.CreditSourceKind `json:"source_kind"`
	SourceRef  string                 `json:"source_ref"`
	ListingID  int64                  `json:"listing_id"`
	CreatedAt  time.Time              `json:"created_at"`
}

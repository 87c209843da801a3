package enums

import "strings"

type CreditSourceKind string

const (
	CreditSourceSubscription  CreditSourceKind = "subscription"
	CreditSourceCreditPack    CreditSourceKind = "credit_pack"
	CreditSourceLegacyPayment CreditSourceKind = "legacy_payment"
)

func ParseCreditSourceKind(raw string) (CreditSourceKind, bool) {
	switch CreditSourceKind(strings.ToLower(strings.TrimSpace(raw))) {
	case CreditSourceSubscription:
		return CreditSourceSubscription, true
	case CreditSourceCreditPack:
		return CreditSourceCreditPack, true
	case CreditSourceLegacyPayment:
		return CreditSourceLegacyPayment, true
	default:
		return "", false
	}
}

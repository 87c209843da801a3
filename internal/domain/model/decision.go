package model

import "github.com/16madina/lazone/backend/internal/domain/enums"

type DecisionKind string

const (
	DecisionFree            DecisionKind = "free"
	DecisionUseCredit       DecisionKind = "use_credit"
	DecisionPaymentRequired DecisionKind = "payment_required"
)

// EntitlementDecision classifies one publish attempt. It is a pure value:
// producing it has no side effect, consumption is a separate explicit step.
type EntitlementDecision struct {
	Kind   DecisionKind           `json:"kind"`
	Source enums.CreditSourceKind `json:"source,omitempty"`
	Price  Money                  `json:"price,omitempty"`
}

func FreeDecision() EntitlementDecision {
	return EntitlementDecision{Kind: DecisionFree}
}

func UseCreditDecision(source enums.CreditSourceKind) EntitlementDecision {
	return EntitlementDecision{Kind: DecisionUseCredit, Source: source}
}

func PaymentRequiredDecision(price Money) EntitlementDecision {
	return EntitlementDecision{Kind: DecisionPaymentRequired, Price: price}
}

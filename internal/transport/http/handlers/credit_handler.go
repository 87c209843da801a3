package handlers

import (
	"errors"
	"net/http"

	"github.com/16madina/lazone/backend/internal/domain/enums"
	"github.com/16madina/lazone/backend/internal/domain/model"
	authsvc "github.com/16madina/lazone/backend/internal/services/auth"
	creditsvc "github.com/16madina/lazone/backend/internal/services/credits"
	entsvc "github.com/16madina/lazone/backend/internal/services/entitlements"
	"github.com/16madina/lazone/backend/internal/transport/http/dto"
	httperrors "github.com/16madina/lazone/backend/internal/transport/http/errors"
)

type CreditHandler struct {
	entitlements *entsvc.Service
	credits      *creditsvc.Service
}

func NewCreditHandler(entitlements *entsvc.Service, credits *creditsvc.Service) *CreditHandler {
	return &CreditHandler{
		entitlements: entitlements,
		credits:      credits,
	}
}

func (h *CreditHandler) Consume(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.credits == nil || h.entitlements == nil {
		writeInternal(w, "CREDIT_SERVICE_UNAVAILABLE", "credit service is unavailable")
		return
	}

	var req dto.ConsumeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	mode, ok := enums.ParseListingMode(req.Mode)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "mode must be long_term or short_term")
		return
	}
	if req.ListingID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "listing_id is required")
		return
	}

	decision, ok := h.resolveDecision(w, r, identity, mode, req.SourceKind)
	if !ok {
		return
	}

	consumed, err := h.credits.Consume(r.Context(), identity.UserID, mode, req.ListingID, decision)
	if err != nil {
		switch {
		case errors.Is(err, creditsvc.ErrValidation), errors.Is(err, creditsvc.ErrInvalidDecision):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid consume request")
		case errors.Is(err, creditsvc.ErrNoCreditAvailable):
			httperrors.Write(w, http.StatusPaymentRequired, httperrors.APIError{
				Code:    "NO_CREDIT_AVAILABLE",
				Message: "no credit available, payment is required",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to consume credit")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ConsumeResponse{
		SourceKind: string(consumed.Kind),
		SourceRef:  consumed.SourceRef,
		AuditID:    consumed.AuditID,
	})
}

// resolveDecision builds the use-credit decision for the consume call. A
// caller that already evaluated may pin the expected source kind; otherwise
// the entitlement is re-evaluated here. A false result means the response
// was already written.
func (h *CreditHandler) resolveDecision(w http.ResponseWriter, r *http.Request, identity authsvc.Identity, mode enums.ListingMode, sourceKind string) (model.EntitlementDecision, bool) {
	if sourceKind != "" {
		kind, ok := enums.ParseCreditSourceKind(sourceKind)
		if !ok {
			writeBadRequest(w, "VALIDATION_ERROR", "unknown source_kind")
			return model.EntitlementDecision{}, false
		}
		return model.UseCreditDecision(kind), true
	}

	evaluation, err := h.entitlements.Evaluate(r.Context(), identity.UserID, identity.Category, mode)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to evaluate entitlement")
		return model.EntitlementDecision{}, false
	}
	switch evaluation.Decision.Kind {
	case model.DecisionFree:
		writeConflict(w, "CREDIT_NOT_REQUIRED", "publication is within the free quota")
		return model.EntitlementDecision{}, false
	case model.DecisionPaymentRequired:
		httperrors.Write(w, http.StatusPaymentRequired, httperrors.APIError{
			Code:    "PAYMENT_REQUIRED",
			Message: "no credit available, payment is required",
		})
		return model.EntitlementDecision{}, false
	}
	return evaluation.Decision, true
}

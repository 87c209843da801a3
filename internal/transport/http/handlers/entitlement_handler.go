package handlers

import (
	"errors"
	"net/http"

	"github.com/16madina/lazone/backend/internal/domain/enums"
	"github.com/16madina/lazone/backend/internal/domain/model"
	"github.com/16madina/lazone/backend/internal/pkg/validate"
	authsvc "github.com/16madina/lazone/backend/internal/services/auth"
	entsvc "github.com/16madina/lazone/backend/internal/services/entitlements"
	"github.com/16madina/lazone/backend/internal/transport/http/dto"
	httperrors "github.com/16madina/lazone/backend/internal/transport/http/errors"
)

type EntitlementHandler struct {
	entitlements *entsvc.Service
}

func NewEntitlementHandler(entitlements *entsvc.Service) *EntitlementHandler {
	return &EntitlementHandler{entitlements: entitlements}
}

func (h *EntitlementHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.entitlements == nil {
		writeInternal(w, "ENTITLEMENT_SERVICE_UNAVAILABLE", "entitlement service is unavailable")
		return
	}

	mode, ok := modeFromRequest(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "mode must be long_term or short_term")
		return
	}

	evaluation, err := h.entitlements.Evaluate(r.Context(), identity.UserID, identity.Category, mode)
	if err != nil {
		if errors.Is(err, entsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid evaluate request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to evaluate entitlement")
		return
	}

	httperrors.Write(w, http.StatusOK, mapEvaluation(evaluation))
}

func (h *EntitlementHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.entitlements == nil {
		writeInternal(w, "ENTITLEMENT_SERVICE_UNAVAILABLE", "entitlement service is unavailable")
		return
	}

	mode, ok := modeFromRequest(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "mode must be long_term or short_term")
		return
	}

	ledger, err := h.entitlements.GetLedger(r.Context(), identity.UserID, mode)
	if err != nil {
		if errors.Is(err, entsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid ledger request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load credit ledger")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.LedgerResponse{
		Mode:   string(mode),
		Ledger: mapLedger(ledger),
	})
}

func modeFromRequest(r *http.Request) (enums.ListingMode, bool) {
	raw := r.URL.Query().Get("mode")
	if !validate.Required(raw) {
		return "", false
	}
	return enums.ParseListingMode(raw)
}

func mapEvaluation(evaluation entsvc.Evaluation) dto.EvaluateResponse {
	resp := dto.EvaluateResponse{
		Decision:    string(evaluation.Decision.Kind),
		FreeLimit:   evaluation.FreeLimit,
		ActiveCount: evaluation.ActiveCount,
	}
	if evaluation.Decision.Kind == model.DecisionUseCredit {
		resp.Source = string(evaluation.Decision.Source)
	}
	if evaluation.Decision.Kind == model.DecisionPaymentRequired {
		resp.Price = &dto.MoneyPayload{
			Amount:   evaluation.Decision.Price.Amount,
			Currency: evaluation.Decision.Price.Currency,
		}
	}
	if evaluation.Ledger != nil {
		ledger := mapLedger(*evaluation.Ledger)
		resp.Ledger = &ledger
	}
	return resp
}

func mapLedger(view model.CreditLedgerView) dto.LedgerPayload {
	payload := dto.LedgerPayload{
		SubscriptionRemaining: view.SubscriptionRemaining,
		PackRemaining:         view.PackRemaining,
		LegacyRemaining:       view.LegacyRemaining,
		Total:                 view.Total,
	}
	for _, source := range view.Degraded {
		payload.Degraded = append(payload.Degraded, string(source))
	}
	return payload
}

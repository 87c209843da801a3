package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/16madina/lazone/backend/internal/services/auth"
	sponsorsvc "github.com/16madina/lazone/backend/internal/services/sponsorship"
	"github.com/16madina/lazone/backend/internal/transport/http/dto"
	httperrors "github.com/16madina/lazone/backend/internal/transport/http/errors"
)

type SponsorshipHandler struct {
	sponsorship *sponsorsvc.Service
}

func NewSponsorshipHandler(sponsorship *sponsorsvc.Service) *SponsorshipHandler {
	return &SponsorshipHandler{sponsorship: sponsorship}
}

func (h *SponsorshipHandler) Quota(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.sponsorship == nil {
		writeInternal(w, "SPONSORSHIP_SERVICE_UNAVAILABLE", "sponsorship service is unavailable")
		return
	}

	status, err := h.sponsorship.Evaluate(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load sponsorship quota")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SponsorshipQuotaResponse{
		Quota:           status.Quota,
		Used:            status.Used,
		Remaining:       status.Remaining,
		ActiveSponsored: status.ActiveSponsored,
		ResetsAt:        status.ResetsAt,
	})
}

func (h *SponsorshipHandler) Sponsor(w http.ResponseWriter, r *http.Request) {
	identity, listingID, ok := h.sponsorTarget(w, r)
	if !ok {
		return
	}

	if err := h.sponsorship.Sponsor(r.Context(), identity.UserID, listingID); err != nil {
		switch {
		case errors.Is(err, sponsorsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid sponsor request")
		case errors.Is(err, sponsorsvc.ErrSubscriptionRequired):
			httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
				Code:    "SUBSCRIPTION_REQUIRED",
				Message: "an active subscription is required to sponsor listings",
			})
		case errors.Is(err, sponsorsvc.ErrQuotaExceeded):
			writeConflict(w, "SPONSORSHIP_QUOTA_EXCEEDED", "monthly sponsorship quota exhausted")
		case errors.Is(err, sponsorsvc.ErrListingNotFound):
			writeNotFound(w, "LISTING_NOT_FOUND", "listing not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to sponsor listing")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SponsorResponse{OK: true, ListingID: listingID})
}

func (h *SponsorshipHandler) Unsponsor(w http.ResponseWriter, r *http.Request) {
	identity, listingID, ok := h.sponsorTarget(w, r)
	if !ok {
		return
	}

	if err := h.sponsorship.Unsponsor(r.Context(), identity.UserID, listingID); err != nil {
		switch {
		case errors.Is(err, sponsorsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid unsponsor request")
		case errors.Is(err, sponsorsvc.ErrListingNotFound):
			writeNotFound(w, "LISTING_NOT_FOUND", "listing not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to unsponsor listing")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SponsorResponse{OK: true, ListingID: listingID})
}

func (h *SponsorshipHandler) sponsorTarget(w http.ResponseWriter, r *http.Request) (authsvc.Identity, int64, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, 0, false
	}
	if h.sponsorship == nil {
		writeInternal(w, "SPONSORSHIP_SERVICE_UNAVAILABLE", "sponsorship service is unavailable")
		return authsvc.Identity{}, 0, false
	}

	var req dto.SponsorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return authsvc.Identity{}, 0, false
	}
	if req.ListingID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "listing_id is required")
		return authsvc.Identity{}, 0, false
	}

	return identity, req.ListingID, true
}

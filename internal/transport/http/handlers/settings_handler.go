package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/16madina/lazone/backend/internal/domain/enums"
	"github.com/16madina/lazone/backend/internal/domain/model"
	settingssvc "github.com/16madina/lazone/backend/internal/services/settings"
	"github.com/16madina/lazone/backend/internal/transport/http/dto"
	httperrors "github.com/16madina/lazone/backend/internal/transport/http/errors"
)

type SettingsHandler struct {
	settings *settingssvc.Provider
}

func NewSettingsHandler(settings *settingssvc.Provider) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) GetMode(w http.ResponseWriter, r *http.Request) {
	if h.settings == nil {
		writeInternal(w, "SETTINGS_SERVICE_UNAVAILABLE", "settings service is unavailable")
		return
	}

	mode, ok := enums.ParseListingMode(chi.URLParam(r, "mode"))
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "mode must be long_term or short_term")
		return
	}

	settings := h.settings.GetSettings(r.Context())
	httperrors.Write(w, http.StatusOK, mapModeConfig(mode, settings))
}

func (h *SettingsHandler) UpdateMode(w http.ResponseWriter, r *http.Request) {
	if h.settings == nil {
		writeInternal(w, "SETTINGS_SERVICE_UNAVAILABLE", "settings service is unavailable")
		return
	}

	mode, ok := enums.ParseListingMode(chi.URLParam(r, "mode"))
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "mode must be long_term or short_term")
		return
	}

	var req dto.SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.settings.UpdateModeConfig(r.Context(), mode, mapUpdatePatch(req)); err != nil {
		if errors.Is(err, settingssvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid settings patch")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to update settings")
		return
	}

	settings := h.settings.GetSettings(r.Context())
	httperrors.Write(w, http.StatusOK, mapModeConfig(mode, settings))
}

func mapModeConfig(mode enums.ListingMode, settings model.GlobalSettings) dto.ModeConfigResponse {
	cfg := settings.Modes[mode]

	byCategory := make(map[string]int, len(cfg.FreeListingsByCategory))
	for category, limit := range cfg.FreeListingsByCategory {
		byCategory[string(category)] = limit
	}
	byTier := make(map[string]int, len(cfg.SubscriptionMonthlyLimit))
	for tier, limit := range cfg.SubscriptionMonthlyLimit {
		byTier[string(tier)] = limit
	}

	return dto.ModeConfigResponse{
		Mode:                   string(mode),
		Enabled:                settings.Enabled,
		FreeListingsByCategory: byCategory,
		FreeListingsDefault:    cfg.FreeListingsDefault,
		PricePerExtraListing: dto.MoneyPayload{
			Amount:   cfg.PricePerExtraListing.Amount,
			Currency: cfg.PricePerExtraListing.Currency,
		},
		SubscriptionMonthlyLimit: byTier,
	}
}

func mapUpdatePatch(req dto.SettingsUpdateRequest) settingssvc.UpdatePatch {
	patch := settingssvc.UpdatePatch{
		Enabled:             req.Enabled,
		FreeListingsDefault: req.FreeListingsDefault,
	}
	if len(req.FreeListingsByCategory) > 0 {
		patch.FreeListingsByCategory = make(map[enums.UserCategory]*int, len(req.FreeListingsByCategory))
		for category, value := range req.FreeListingsByCategory {
			patch.FreeListingsByCategory[enums.UserCategory(category)] = value
		}
	}
	if req.PricePerExtraListing != nil {
		patch.PricePerExtraListing = &model.Money{
			Amount:   req.PricePerExtraListing.Amount,
			Currency: req.PricePerExtraListing.Currency,
		}
	}
	if len(req.SubscriptionMonthlyLimit) > 0 {
		patch.SubscriptionMonthlyLimit = make(map[enums.SubscriptionTier]*int, len(req.SubscriptionMonthlyLimit))
		for tier, value := range req.SubscriptionMonthlyLimit {
			patch.SubscriptionMonthlyLimit[enums.SubscriptionTier(tier)] = value
		}
	}
	return patch
}

package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/16madina/lazone/backend/internal/config"
	authsvc "github.com/16madina/lazone/backend/internal/services/auth"
	creditsvc "github.com/16madina/lazone/backend/internal/services/credits"
	entsvc "github.com/16madina/lazone/backend/internal/services/entitlements"
	settingssvc "github.com/16madina/lazone/backend/internal/services/settings"
	sponsorsvc "github.com/16madina/lazone/backend/internal/services/sponsorship"
	"github.com/16madina/lazone/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	JWTManager         *authsvc.JWTManager
	SettingsProvider   *settingssvc.Provider
	EntitlementService *entsvc.Service
	CreditService      *creditsvc.Service
	SponsorshipService *sponsorsvc.Service
	Logger             *zap.Logger
	Config             config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	entitlementHandler := handlers.NewEntitlementHandler(deps.EntitlementService)
	creditHandler := handlers.NewCreditHandler(deps.EntitlementService, deps.CreditService)
	sponsorshipHandler := handlers.NewSponsorshipHandler(deps.SponsorshipService)
	settingsHandler := handlers.NewSettingsHandler(deps.SettingsProvider)

	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)
	adminRoleMW := RequireRole("OWNER", "SUPPORT")

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.With(authMW).Get("/entitlements/evaluate", entitlementHandler.Evaluate)
		r.With(authMW).Get("/credits/ledger", entitlementHandler.Ledger)
		r.With(authMW).Post("/credits/consume", creditHandler.Consume)
		r.With(authMW).Get("/sponsorship/quota", sponsorshipHandler.Quota)
		r.With(authMW).Post("/sponsorship/sponsor", sponsorshipHandler.Sponsor)
		r.With(authMW).Post("/sponsorship/unsponsor", sponsorshipHandler.Unsponsor)
	})

	r.Route("/admin", func(r chi.Router) {
		r.With(authMW, adminRoleMW).Get("/settings/{mode}", settingsHandler.GetMode)
		r.With(authMW, adminRoleMW).Put("/settings/{mode}", settingsHandler.UpdateMode)
	})
}

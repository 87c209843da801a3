package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/16madina/lazone/backend/internal/config"
	pgrepo "github.com/16madina/lazone/backend/internal/repo/postgres"
	redrepo "github.com/16madina/lazone/backend/internal/repo/redis"
	authsvc "github.com/16madina/lazone/backend/internal/services/auth"
	creditsvc "github.com/16madina/lazone/backend/internal/services/credits"
	entsvc "github.com/16madina/lazone/backend/internal/services/entitlements"
	settingssvc "github.com/16madina/lazone/backend/internal/services/settings"
	sponsorsvc "github.com/16madina/lazone/backend/internal/services/sponsorship"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	settingsRepo := pgrepo.NewSettingsRepo(pool)
	settingsCache := redrepo.NewSettingsCacheRepo(redisClient)
	listingRepo := pgrepo.NewListingRepo(pool)
	purchaseRepo := pgrepo.NewPurchaseRepo(pool)
	legacyPaymentRepo := pgrepo.NewLegacyPaymentRepo(pool)
	sponsorshipRepo := pgrepo.NewSponsorshipRepo(pool)
	consumptionAuditRepo := pgrepo.NewConsumptionAuditRepo(pool)
	txRunner := pgrepo.NewTxRunner(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)

	settingsProvider := settingssvc.NewProvider(settingsRepo, settingsCache, log, settingssvc.Config{
		CacheTTL: cfg.Billing.SettingsCacheTTL,
	})
	entitlementService := entsvc.NewService(entsvc.Dependencies{
		Config:        settingsProvider,
		Listings:      listingRepo,
		Subscriptions: purchaseRepo,
		Packs:         purchaseRepo,
		Legacy:        legacyPaymentRepo,
	}, log)
	creditService := creditsvc.NewService(creditsvc.Dependencies{
		Config:        settingsProvider,
		Subscriptions: purchaseRepo,
		Packs:         purchaseRepo,
		Legacy:        legacyPaymentRepo,
		Audit:         consumptionAuditRepo,
	}, log)
	sponsorshipService := sponsorsvc.NewService(sponsorsvc.Dependencies{
		Subscriptions: purchaseRepo,
		Usage:         sponsorshipRepo,
		Listings:      listingRepo,
		Tx:            txRunner,
	}, sponsorsvc.Config{
		ProQuota:     cfg.Billing.Sponsorship.ProQuota,
		PremiumQuota: cfg.Billing.Sponsorship.PremiumQuota,
		Duration:     cfg.Billing.Sponsorship.Duration,
	}, log)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		JWTManager:         jwtManager,
		SettingsProvider:   settingsProvider,
		EntitlementService: entitlementService,
		CreditService:      creditService,
		SponsorshipService: sponsorshipService,
		Logger:             log,
		Config:             cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

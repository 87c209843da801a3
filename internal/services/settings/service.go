package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/16madina/lazone/backend/internal/domain/enums"
	"github.com/16madina/lazone/backend/internal/domain/model"
	pgrepo "github.com/16madina/lazone/backend/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

type Store interface {
	Get(ctx context.Context) (model.GlobalSettings, time.Time, error)
	Merge(ctx context.Context, apply func(*model.GlobalSettings) error) error
}

type Cache interface {
	Get(ctx context.Context) (model.GlobalSettings, bool, error)
	Set(ctx context.Context, settings model.GlobalSettings, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type Config struct {
	CacheTTL time.Duration
}

// UpdatePatch carries a partial per-mode config overlay. Nil fields keep
// the stored value.
type UpdatePatch struct {
	Enabled                  *bool
	FreeListingsByCategory   map[enums.UserCategory]*int
	FreeListingsDefault      *int
	PricePerExtraListing     *model.Money
	SubscriptionMonthlyLimit map[enums.SubscriptionTier]*int
}

// Provider serves versioned quota configuration. Reads never fail the
// caller: storage trouble degrades to built-in defaults with a log line.
type Provider struct {
	store  Store
	cache  Cache
	logger *zap.Logger
	cfg    Config
}

func NewProvider(store Store, cache Cache, logger *zap.Logger, cfg Config) *Provider {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		store:  store,
		cache:  cache,
		logger: logger,
		cfg:    cfg,
	}
}

func (p *Provider) GetModeConfig(ctx context.Context, mode enums.ListingMode) model.ModeQuotaConfig {
	settings := p.load(ctx)
	return settings.Modes[mode]
}

// GetSettings returns the full normalized settings document, falling back
// to defaults on any storage problem.
func (p *Provider) GetSettings(ctx context.Context) model.GlobalSettings {
	return p.load(ctx)
}

func (p *Provider) load(ctx context.Context) model.GlobalSettings {
	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx)
		if err != nil {
			p.logger.Warn("settings cache read failed", zap.Error(err))
		} else if ok {
			return cached
		}
	}

	if p.store == nil {
		p.logger.Warn("settings store is not configured, using defaults")
		return model.DefaultGlobalSettings()
	}

	stored, _, err := p.store.Get(ctx)
	if err != nil {
		if !errors.Is(err, pgrepo.ErrSettingsNotFound) {
			p.logger.Warn("settings load degraded to defaults", zap.Error(err))
		}
		return model.DefaultGlobalSettings()
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, stored, p.cfg.CacheTTL); err != nil {
			p.logger.Warn("settings cache write failed", zap.Error(err))
		}
	}

	return stored
}

// UpdateModeConfig overlays a partial config onto one mode. The merge is
// all-or-nothing: validation runs first and the store applies the overlay
// under a row lock.
func (p *Provider) UpdateModeConfig(ctx context.Context, mode enums.ListingMode, patch UpdatePatch) error {
	if p.store == nil {
		return fmt.Errorf("settings store is not configured")
	}
	if mode != enums.ListingModeLongTerm && mode != enums.ListingModeShortTerm {
		return ErrValidation
	}
	if err := validatePatch(patch); err != nil {
		return err
	}

	err := p.store.Merge(ctx, func(settings *model.GlobalSettings) error {
		if patch.Enabled != nil {
			settings.Enabled = *patch.Enabled
		}

		cfg := settings.Modes[mode]
		if cfg.FreeListingsByCategory == nil {
			cfg.FreeListingsByCategory = make(map[enums.UserCategory]int)
		}
		for category, value := range patch.FreeListingsByCategory {
			if value != nil {
				cfg.FreeListingsByCategory[category] = *value
			}
		}
		if patch.FreeListingsDefault != nil {
			cfg.FreeListingsDefault = *patch.FreeListingsDefault
		}
		if patch.PricePerExtraListing != nil {
			cfg.PricePerExtraListing = *patch.PricePerExtraListing
		}
		if cfg.SubscriptionMonthlyLimit == nil {
			cfg.SubscriptionMonthlyLimit = make(map[enums.SubscriptionTier]int)
		}
		for tier, value := range patch.SubscriptionMonthlyLimit {
			if value != nil {
				cfg.SubscriptionMonthlyLimit[tier] = *value
			}
		}

		if settings.Modes == nil {
			settings.Modes = make(map[enums.ListingMode]model.ModeQuotaConfig, 2)
		}
		settings.Modes[mode] = cfg
		return nil
	})
	if err != nil {
		return fmt.Errorf("merge mode config: %w", err)
	}

	if p.cache != nil {
		if err := p.cache.Invalidate(ctx); err != nil {
			p.logger.Warn("settings cache invalidation failed", zap.Error(err))
		}
	}

	return nil
}

func validatePatch(patch UpdatePatch) error {
	for category, value := range patch.FreeListingsByCategory {
		if _, ok := enums.ParseUserCategory(string(category)); !ok {
			return ErrValidation
		}
		if value != nil && *value < 0 {
			return ErrValidation
		}
	}
	if patch.FreeListingsDefault != nil && *patch.FreeListingsDefault < 0 {
		return ErrValidation
	}
	if patch.PricePerExtraListing != nil && patch.PricePerExtraListing.Amount < 0 {
		return ErrValidation
	}
	for tier, value := range patch.SubscriptionMonthlyLimit {
		if _, ok := enums.ParseSubscriptionTier(string(tier)); !ok {
			return ErrValidation
		}
		if value != nil && *value < 0 {
			return ErrValidation
		}
	}
	return nil
}

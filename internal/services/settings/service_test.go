package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/16madina/lazone/backend/internal/domain/enums"
	"github.com/16madina/lazone/backend/internal/domain/model"
	redrepo "github.com/16madina/lazone/backend/internal/repo/redis"
)

type stubSettingsStore struct {
	settings model.GlobalSettings
	err      error
	getCalls int
}

func (s *stubSettingsStore) Get(_ context.Context) (model.GlobalSettings, time.Time, error) {
	s.getCalls++
	if s.err != nil {
		return model.GlobalSettings{}, time.Time{}, s.err
	}
	return s.settings, time.Now(), nil
}

func (s *stubSettingsStore) Merge(_ context.Context, apply func(*model.GlobalSettings) error) error {
	if s.err != nil {
		return s.err
	}
	if err := apply(&s.settings); err != nil {
		return err
	}
	s.settings.Normalize()
	return nil
}

func newCachedProvider(t *testing.T, store Store) (*Provider, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redrepo.NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })

	cache := redrepo.NewSettingsCacheRepo(client)
	return NewProvider(store, cache, zap.NewNop(), Config{CacheTTL: time.Minute}), mr
}

func TestGetModeConfigDefaultsOnStoreError(t *testing.T) {
	store := &stubSettingsStore{err: errors.New("connection refused")}
	provider := NewProvider(store, nil, zap.NewNop(), Config{})

	cfg := provider.GetModeConfig(context.Background(), enums.ListingModeLongTerm)

	if got := cfg.FreeLimitFor(enums.UserCategoryIndividual); got != 3 {
		t.Fatalf("unexpected individual free limit: %d", got)
	}
	if got := cfg.FreeLimitFor(enums.UserCategoryAgency); got != 1 {
		t.Fatalf("unexpected agency free limit: %d", got)
	}
	if cfg.PricePerExtraListing.Amount != 1000 || cfg.PricePerExtraListing.Currency != "XOF" {
		t.Fatalf("unexpected price: %+v", cfg.PricePerExtraListing)
	}
}

func TestGetModeConfigServedFromCache(t *testing.T) {
	stored := model.DefaultGlobalSettings()
	cfg := stored.Modes[enums.ListingModeShortTerm]
	cfg.FreeListingsDefault = 5
	stored.Modes[enums.ListingModeShortTerm] = cfg

	store := &stubSettingsStore{settings: stored}
	provider, _ := newCachedProvider(t, store)

	ctx := context.Background()
	first := provider.GetModeConfig(ctx, enums.ListingModeShortTerm)
	if first.FreeListingsDefault != 5 {
		t.Fatalf("unexpected free limit on first read: %d", first.FreeListingsDefault)
	}
	if store.getCalls != 1 {
		t.Fatalf("expected one store read, got %d", store.getCalls)
	}

	second := provider.GetModeConfig(ctx, enums.ListingModeShortTerm)
	if second.FreeListingsDefault != 5 {
		t.Fatalf("unexpected free limit on cached read: %d", second.FreeListingsDefault)
	}
	if store.getCalls != 1 {
		t.Fatalf("cached read must not hit the store, got %d calls", store.getCalls)
	}
}

func TestUpdateModeConfigInvalidatesCache(t *testing.T) {
	store := &stubSettingsStore{settings: model.DefaultGlobalSettings()}
	provider, _ := newCachedProvider(t, store)

	ctx := context.Background()
	if got := provider.GetModeConfig(ctx, enums.ListingModeLongTerm).FreeListingsDefault; got != 3 {
		t.Fatalf("unexpected initial free limit: %d", got)
	}

	newLimit := 7
	err := provider.UpdateModeConfig(ctx, enums.ListingModeLongTerm, UpdatePatch{
		FreeListingsDefault: &newLimit,
	})
	if err != nil {
		t.Fatalf("update mode config: %v", err)
	}

	if got := provider.GetModeConfig(ctx, enums.ListingModeLongTerm).FreeListingsDefault; got != 7 {
		t.Fatalf("stale config after update: %d", got)
	}
}

func TestUpdateModeConfigAllowsExplicitZeroFreeLimit(t *testing.T) {
	store := &stubSettingsStore{settings: model.DefaultGlobalSettings()}
	provider := NewProvider(store, nil, zap.NewNop(), Config{})

	ctx := context.Background()
	zero := 0
	err := provider.UpdateModeConfig(ctx, enums.ListingModeLongTerm, UpdatePatch{
		FreeListingsDefault:  &zero,
		PricePerExtraListing: &model.Money{Amount: 0, Currency: "XOF"},
	})
	if err != nil {
		t.Fatalf("update mode config: %v", err)
	}

	cfg := provider.GetModeConfig(ctx, enums.ListingModeLongTerm)
	if cfg.FreeListingsDefault != 0 {
		t.Fatalf("explicit zero free limit must persist: %d", cfg.FreeListingsDefault)
	}
	if cfg.PricePerExtraListing.Amount != 0 {
		t.Fatalf("explicit zero price must persist: %+v", cfg.PricePerExtraListing)
	}
}

func TestUpdateModeConfigOverlaysSingleMode(t *testing.T) {
	store := &stubSettingsStore{settings: model.DefaultGlobalSettings()}
	provider := NewProvider(store, nil, zap.NewNop(), Config{})

	ctx := context.Background()
	premiumLimit := 50
	agencyLimit := 4
	err := provider.UpdateModeConfig(ctx, enums.ListingModeLongTerm, UpdatePatch{
		FreeListingsByCategory: map[enums.UserCategory]*int{
			enums.UserCategoryAgency: &agencyLimit,
		},
		SubscriptionMonthlyLimit: map[enums.SubscriptionTier]*int{
			enums.SubscriptionTierPremium: &premiumLimit,
		},
	})
	if err != nil {
		t.Fatalf("update mode config: %v", err)
	}

	longTerm := provider.GetModeConfig(ctx, enums.ListingModeLongTerm)
	if got := longTerm.FreeLimitFor(enums.UserCategoryAgency); got != 4 {
		t.Fatalf("unexpected agency free limit: %d", got)
	}
	if got := longTerm.MonthlyLimitFor(enums.SubscriptionTierPremium); got != 50 {
		t.Fatalf("unexpected premium monthly limit: %d", got)
	}
	if got := longTerm.MonthlyLimitFor(enums.SubscriptionTierPro); got != 15 {
		t.Fatalf("pro monthly limit must keep its default: %d", got)
	}

	shortTerm := provider.GetModeConfig(ctx, enums.ListingModeShortTerm)
	if got := shortTerm.FreeLimitFor(enums.UserCategoryAgency); got != 1 {
		t.Fatalf("short_term agency free limit must stay untouched: %d", got)
	}
	if got := shortTerm.MonthlyLimitFor(enums.SubscriptionTierPremium); got != 30 {
		t.Fatalf("short_term premium monthly limit must stay untouched: %d", got)
	}
}

func TestUpdateModeConfigRejectsInvalidPatch(t *testing.T) {
	store := &stubSettingsStore{settings: model.DefaultGlobalSettings()}
	provider := NewProvider(store, nil, zap.NewNop(), Config{})

	ctx := context.Background()
	negative := -1

	cases := []UpdatePatch{
		{FreeListingsDefault: &negative},
		{FreeListingsByCategory: map[enums.UserCategory]*int{"landlord": &negative}},
		{SubscriptionMonthlyLimit: map[enums.SubscriptionTier]*int{enums.SubscriptionTierPro: &negative}},
		{PricePerExtraListing: &model.Money{Amount: -100, Currency: "XOF"}},
	}
	for i, patch := range cases {
		if err := provider.UpdateModeConfig(ctx, enums.ListingModeLongTerm, patch); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}

	if err := provider.UpdateModeConfig(ctx, "weekly", UpdatePatch{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown mode, got %v", err)
	}
}

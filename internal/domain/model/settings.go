package model

import (
	"github.com/16madina/lazone/backend/internal/domain/enums"
	"github.com/16madina/lazone/backend/internal/domain/rules"
)

// ModeQuotaConfig holds the publication quota and pricing knobs for one
// listing mode. A missing per-category entry resolves to FreeListingsDefault,
// never to an error.
type ModeQuotaConfig struct {
	FreeListingsByCategory   map[enums.UserCategory]int     `json:"free_listings_by_category"`
	FreeListingsDefault      int                            `json:"free_listings_default"`
	PricePerExtraListing     Money                          `json:"price_per_extra_listing"`
	SubscriptionMonthlyLimit map[enums.SubscriptionTier]int `json:"subscription_monthly_limit"`
}

func (c ModeQuotaConfig) FreeLimitFor(category enums.UserCategory) int {
	if limit, ok := c.FreeListingsByCategory[category]; ok {
		return limit
	}
	return c.FreeListingsDefault
}

func (c ModeQuotaConfig) MonthlyLimitFor(tier enums.SubscriptionTier) int {
	if limit, ok := c.SubscriptionMonthlyLimit[tier]; ok {
		return limit
	}
	return 0
}

// GlobalSettings is the persisted quota configuration blob, stored as one
// JSON document under a single settings row. The flat Legacy* fields exist
// only for records written before per-mode configs; Normalize folds them in.
type GlobalSettings struct {
	Enabled bool                                  `json:"enabled"`
	Modes   map[enums.ListingMode]ModeQuotaConfig `json:"modes"`

	LegacyFreeListings       *int   `json:"free_listings,omitempty"`
	LegacyAgencyFreeListings *int   `json:"agency_free_listings,omitempty"`
	LegacyPricePerExtra      *int64 `json:"price_per_extra,omitempty"`
}

// Normalize migrates legacy flat fields into per-mode configs and fills
// structural gaps. Defaults apply only when a mode config is absent
// entirely; an existing config keeps its values, including explicit
// zeroes (a zero free limit means "always exceeded", not "unset").
func (s *GlobalSettings) Normalize() {
	if s.Modes == nil {
		s.Modes = make(map[enums.ListingMode]ModeQuotaConfig, 2)
	}
	for _, mode := range enums.AllListingModes() {
		cfg, ok := s.Modes[mode]
		if !ok {
			cfg = s.newModeConfig()
		}
		if cfg.FreeListingsByCategory == nil {
			cfg.FreeListingsByCategory = make(map[enums.UserCategory]int)
		}
		if cfg.PricePerExtraListing.Currency == "" {
			cfg.PricePerExtraListing.Currency = rules.DefaultCurrency
		}
		if cfg.SubscriptionMonthlyLimit == nil {
			cfg.SubscriptionMonthlyLimit = map[enums.SubscriptionTier]int{
				enums.SubscriptionTierPro:     rules.DefaultProMonthlyLimit,
				enums.SubscriptionTierPremium: rules.DefaultPremiumMonthlyLimit,
			}
		}
		s.Modes[mode] = cfg
	}
	s.LegacyFreeListings = nil
	s.LegacyAgencyFreeListings = nil
	s.LegacyPricePerExtra = nil
}

// newModeConfig seeds a mode seen for the first time: built-in defaults
// overlaid with any legacy flat fields from the pre-migration record.
func (s *GlobalSettings) newModeConfig() ModeQuotaConfig {
	cfg := ModeQuotaConfig{
		FreeListingsByCategory: map[enums.UserCategory]int{
			enums.UserCategoryAgency: rules.DefaultAgencyFreeListings,
		},
		FreeListingsDefault:  rules.DefaultFreeListings,
		PricePerExtraListing: Money{Amount: rules.DefaultPricePerExtraListing, Currency: rules.DefaultCurrency},
	}
	if s.LegacyFreeListings != nil && *s.LegacyFreeListings >= 0 {
		cfg.FreeListingsDefault = *s.LegacyFreeListings
	}
	if s.LegacyAgencyFreeListings != nil && *s.LegacyAgencyFreeListings >= 0 {
		cfg.FreeListingsByCategory[enums.UserCategoryAgency] = *s.LegacyAgencyFreeListings
	}
	if s.LegacyPricePerExtra != nil && *s.LegacyPricePerExtra > 0 {
		cfg.PricePerExtraListing = Money{Amount: *s.LegacyPricePerExtra, Currency: rules.DefaultCurrency}
	}
	return cfg
}

// DefaultGlobalSettings is the hard-coded fallback used when the settings
// record is missing or unreadable.
func DefaultGlobalSettings() GlobalSettings {
	settings := GlobalSettings{Enabled: true}
	settings.Normalize()
	return settings
}

package dto

type ModeConfigResponse struct {
	Mode                     string         `json:"mode"`
	Enabled                  bool           `json:"enabled"`
	FreeListingsByCategory   map[string]int `json:"free_listings_by_category"`
	FreeListingsDefault      int            `json:"free_listings_default"`
	PricePerExtraListing     MoneyPayload   `json:"price_per_extra_listing"`
	SubscriptionMonthlyLimit map[string]int `json:"subscription_monthly_limit"`
}

// SettingsUpdateRequest is a partial overlay; omitted fields keep the
// stored value.
type SettingsUpdateRequest struct {
	Enabled                  *bool           `json:"enabled,omitempty"`
	FreeListingsByCategory   map[string]*int `json:"free_listings_by_category,omitempty"`
	FreeListingsDefault      *int            `json:"free_listings_default,omitempty"`
	PricePerExtraListing     *MoneyPayload   `json:"price_per_extra_listing,omitempty"`
	SubscriptionMonthlyLimit map[string]*int `json:"subscription_monthly_limit,omitempty"`
}

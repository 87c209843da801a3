package rules

import "time"

const (
	DefaultFreeListings         = 3
	DefaultAgencyFreeListings   = 1
	DefaultPricePerExtraListing = 1000
	DefaultCurrency             = "XOF"

	DefaultProMonthlyLimit     = 15
	DefaultPremiumMonthlyLimit = 30

	ProSponsorshipQuota     = 2
	PremiumSponsorshipQuota = 4

	SponsorshipDuration = 72 * time.Hour
)

// MonthKey identifies the calendar month a quota counter belongs to.
// Subscription allowances and sponsorship usage both roll over on month
// boundaries, never on individual expiries.
func MonthKey(now time.Time) string {
	return now.UTC().Format("2006-01")
}

// NextRolloverAt returns the start of the next calendar month in UTC.
func NextRolloverAt(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

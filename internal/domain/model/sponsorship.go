package model

import "time"

// SponsorshipStatus is the monthly promote-quota view for one user.
// ActiveSponsored counts currently non-expired sponsorships for display;
// Used is the non-refundable counter for the current calendar month, and
// ResetsAt is the instant the counter rolls over to the next month.
type SponsorshipStatus struct {
	Quota           int       `json:"quota"`
	Used            int       `json:"used"`
	Remaining       int       `json:"remaining"`
	ActiveSponsored int       `json:"active_sponsored"`
	ResetsAt        time.Time `json:"resets_at"`
}

package dto

import "time"

type SponsorshipQuotaResponse struct {
	Quota           int       `json:"quota"`
	Used            int       `json:"used"`
	Remaining       int       `json:"remaining"`
	ActiveSponsored int       `json:"active_sponsored"`
	ResetsAt        time.Time `json:"resets_at"`
}

type SponsorRequest struct {
	ListingID int64 `json:"listing_id"`
}

type SponsorResponse struct {
	OK        bool  `json:"ok"`
	ListingID int64 `json:"listing_id"`
}

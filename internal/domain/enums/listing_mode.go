package enums

import "strings"

type ListingMode string

const (
	ListingModeLongTerm  ListingMode = "long_term"
	ListingModeShortTerm ListingMode = "short_term"
)

func ParseListingMode(raw string) (ListingMode, bool) {
	switch ListingMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ListingModeLongTerm:
		return ListingModeLongTerm, true
	case ListingModeShortTerm:
		return ListingModeShortTerm, true
	default:
		return "", false
	}
}

func AllListingModes() []ListingMode {
	return []ListingMode{ListingModeLongTerm, ListingModeShortTerm}
}

package rules

import (
	"testing"
	"time"
)

func TestMonthKeyUsesUTC(t *testing.T) {
	loc, err := time.LoadLocation("Pacific/Auckland")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// Jan 1 00:30 local is still Dec 31 in UTC.
	local := time.Date(2026, 1, 1, 0, 30, 0, 0, loc)
	got := MonthKey(local)
	want := "2025-12"
	if got != want {
		t.Fatalf("unexpected month key: got %s want %s", got, want)
	}
}

func TestNextRolloverAtCrossesYear(t *testing.T) {
	now := time.Date(2026, 12, 14, 9, 0, 0, 0, time.UTC)
	got := NextRolloverAt(now)
	want := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected rollover: got %s want %s", got.Format(time.RFC3339), want.Format(time.RFC3339))
	}
}

func TestNextRolloverAtMidMonth(t *testing.T) {
	now := time.Date(2026, 2, 8, 21, 30, 0, 0, time.UTC)
	got := NextRolloverAt(now)
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected rollover: got %s want %s", got.Format(time.RFC3339), want.Format(time.RFC3339))
	}
}

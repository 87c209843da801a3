package credits

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/16madina/lazone/backend/internal/domain/enums"
	"github.com/16madina/lazone/backend/internal/domain/model"
	pgrepo "github.com/16madina/lazone/backend/internal/repo/postgres"
)

type stubConfigSource struct {
	config model.ModeQuotaConfig
}

func (s *stubConfigSource) GetModeConfig(_ context.Context, _ enums.ListingMode) model.ModeQuotaConfig {
	return s.config
}

type stubSubscriptionStore struct {
	mu      sync.Mutex
	records []pgrepo.PurchaseRecord
	usage   map[string]int
}

func (s *stubSubscriptionStore) ListActiveSubscriptions(_ context.Context, _ int64, _ time.Time) ([]pgrepo.PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pgrepo.PurchaseRecord(nil), s.records...), nil
}

func (s *stubSubscriptionStore) GetSubscriptionUsage(_ context.Context, purchaseID int64, mode enums.ListingMode, periodKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[subUsageKey(purchaseID, mode, periodKey)], nil
}

func (s *stubSubscriptionStore) ConsumeSubscriptionCredit(_ context.Context, purchaseID int64, mode enums.ListingMode, periodKey string, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subUsageKey(purchaseID, mode, periodKey)
	if s.usage == nil {
		s.usage = make(map[string]int)
	}
	if s.usage[key] >= limit {
		return 0, pgrepo.ErrSubscriptionLimitReached
	}
	s.usage[key]++
	return s.usage[key], nil
}

type stubPackStore struct {
	mu        sync.Mutex
	packs     []pgrepo.PurchaseRecord
	conflicts map[int64]int // forced ErrPackCreditConflict per pack id
	consumes  int
}

func (s *stubPackStore) ListActivePacks(_ context.Context, _ int64, _ enums.ListingMode) ([]pgrepo.PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pgrepo.PurchaseRecord(nil), s.packs...), nil
}

func (s *stubPackStore) ConsumePackCredit(_ context.Context, purchaseID int64, expectedUsed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumes++
	if s.conflicts[purchaseID] > 0 {
		s.conflicts[purchaseID]--
		return pgrepo.ErrPackCreditConflict
	}
	for i := range s.packs {
		pack := &s.packs[i]
		if pack.ID != purchaseID {
			continue
		}
		if pack.CreditsUsed != expectedUsed || pack.CreditsUsed >= pack.CreditsAmount {
			return pgrepo.ErrPackCreditConflict
		}
		pack.CreditsUsed++
		return nil
	}
	return pgrepo.ErrPackCreditConflict
}

type stubLegacyStore struct {
	mu      sync.Mutex
	records []pgrepo.LegacyPaymentRecord
}

func (s *stubLegacyStore) ListUnbound(_ context.Context, _ int64, _ enums.ListingMode) ([]pgrepo.LegacyPaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var unbound []pgrepo.LegacyPaymentRecord
	for _, record := range s.records {
		if record.PropertyID == nil {
			unbound = append(unbound, record)
		}
	}
	return unbound, nil
}

func (s *stubLegacyStore) BindToListing(_ context.Context, paymentID, listingID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		record := &s.records[i]
		if record.ID != paymentID {
			continue
		}
		if record.PropertyID != nil {
			return pgrepo.ErrLegacyCreditConflict
		}
		record.PropertyID = &listingID
		return nil
	}
	return pgrepo.ErrLegacyCreditConflict
}

func (s *stubLegacyStore) FindBoundToListing(_ context.Context, _ int64, listingID int64) (pgrepo.LegacyPaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.PropertyID != nil && *record.PropertyID == listingID {
			return record, nil
		}
	}
	return pgrepo.LegacyPaymentRecord{}, pgrepo.ErrLegacyPaymentNotFound
}

type stubAuditStore struct {
	mu        sync.Mutex
	byListing map[int64]model.CreditConsumption
}

func (s *stubAuditStore) Insert(_ context.Context, record model.CreditConsumption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byListing == nil {
		s.byListing = make(map[int64]model.CreditConsumption)
	}
	s.byListing[record.ListingID] = record
	return nil
}

func (s *stubAuditStore) FindByListing(_ context.Context, _ int64, listingID int64) (model.CreditConsumption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.byListing[listingID]
	if !ok {
		return model.CreditConsumption{}, pgrepo.ErrConsumptionNotFound
	}
	return record, nil
}

func subUsageKey(purchaseID int64, mode enums.ListingMode, periodKey string) string {
	return fmt.Sprintf("%d:%s:%s", purchaseID, mode, periodKey)
}

func strPtr(v string) *string { return &v }

func defaultConfig() model.ModeQuotaConfig {
	return model.DefaultGlobalSettings().Modes[enums.ListingModeLongTerm]
}

type testFixture struct {
	service *Service
	subs    *stubSubscriptionStore
	packs   *stubPackStore
	legacy  *stubLegacyStore
	audit   *stubAuditStore
}

func newFixture(now time.Time) *testFixture {
	subs := &stubSubscriptionStore{usage: make(map[string]int)}
	packs := &stubPackStore{conflicts: make(map[int64]int)}
	legacy := &stubLegacyStore{}
	audit := &stubAuditStore{}

	service := NewService(Dependencies{
		Config:        &stubConfigSource{config: defaultConfig()},
		Subscriptions: subs,
		Packs:         packs,
		Legacy:        legacy,
		Audit:         audit,
	}, nil)
	service.now = func() time.Time { return now }

	return &testFixture{service: service, subs: subs, packs: packs, legacy: legacy, audit: audit}
}

func useCredit() model.EntitlementDecision {
	return model.UseCreditDecision(enums.CreditSourceSubscription)
}

func TestConsumeFollowsPriorityOrder(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)
	f.subs.records = []pgrepo.PurchaseRecord{{
		ID:             10,
		UserID:         1,
		Status:         "completed",
		IsSubscription: true,
		Tier:           strPtr("pro"),
		CreatedAt:      now.AddDate(0, -1, 0),
	}}
	f.subs.usage[subUsageKey(10, enums.ListingModeLongTerm, "2026-03")] = 14
	f.packs.packs = []pgrepo.PurchaseRecord{{ID: 20, UserID: 1, Status: "active", CreditsAmount: 1}}
	f.legacy.records = []pgrepo.LegacyPaymentRecord{{ID: 30, UserID: 1, Status: "completed", ListingType: "long_term"}}

	ctx := context.Background()

	// Last subscription unit goes first.
	first, err := f.service.Consume(ctx, 1, enums.ListingModeLongTerm, 100, useCredit())
	if err != nil {
		t.Fatalf("consume #1: %v", err)
	}
	if first.Kind != enums.CreditSourceSubscription || first.SourceRef != "10" {
		t.Fatalf("unexpected first source: %+v", first)
	}

	// Subscription exhausted, the pack is next.
	second, err := f.service.Consume(ctx, 1, enums.ListingModeLongTerm, 101, useCredit())
	if err != nil {
		t.Fatalf("consume #2: %v", err)
	}
	if second.Kind != enums.CreditSourceCreditPack || second.SourceRef != "20" {
		t.Fatalf("unexpected second source: %+v", second)
	}

	// Pack empty, the legacy credit closes the line.
	third, err := f.service.Consume(ctx, 1, enums.ListingModeLongTerm, 102, useCredit())
	if err != nil {
		t.Fatalf("consume #3: %v", err)
	}
	if third.Kind != enums.CreditSourceLegacyPayment || third.SourceRef != "30" {
		t.Fatalf("unexpected third source: %+v", third)
	}

	// Nothing left.
	if _, err := f.service.Consume(ctx, 1, enums.ListingModeLongTerm, 103, useCredit()); !errors.Is(err, ErrNoCreditAvailable) {
		t.Fatalf("expected ErrNoCreditAvailable, got %v", err)
	}
}

func TestConsumePackConflictFallsThroughToNextPack(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)
	f.packs.packs = []pgrepo.PurchaseRecord{
		{ID: 20, UserID: 1, Status: "active", CreditsAmount: 5},
		{ID: 21, UserID: 1, Status: "active", CreditsAmount: 5},
	}
	f.packs.conflicts[20] = 1

	consumed, err := f.service.Consume(context.Background(), 1, enums.ListingModeLongTerm, 100, useCredit())
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if consumed.Kind != enums.CreditSourceCreditPack || consumed.SourceRef != "21" {
		t.Fatalf("expected fallthrough to second pack, got %+v", consumed)
	}
}

func TestConsumeIsIdempotentPerListing(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)
	f.packs.packs = []pgrepo.PurchaseRecord{{ID: 20, UserID: 1, Status: "active", CreditsAmount: 5}}

	ctx := context.Background()
	first, err := f.service.Consume(ctx, 1, enums.ListingModeLongTerm, 100, useCredit())
	if err != nil {
		t.Fatalf("consume #1: %v", err)
	}

	repeat, err := f.service.Consume(ctx, 1, enums.ListingModeLongTerm, 100, useCredit())
	if err != nil {
		t.Fatalf("repeated consume: %v", err)
	}
	if repeat.Kind != first.Kind || repeat.SourceRef != first.SourceRef || repeat.AuditID != first.AuditID {
		t.Fatalf("repeated consume must return the original binding: %+v vs %+v", repeat, first)
	}

	f.packs.mu.Lock()
	used := f.packs.packs[0].CreditsUsed
	f.packs.mu.Unlock()
	if used != 1 {
		t.Fatalf("repeated consume must not debit again, used=%d", used)
	}
}

func TestConsumeRecognizesPreAuditLegacyBinding(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)
	boundTo := int64(100)
	f.legacy.records = []pgrepo.LegacyPaymentRecord{{
		ID:          30,
		UserID:      1,
		Status:      "completed",
		ListingType: "long_term",
		PropertyID:  &boundTo,
	}}
	f.packs.packs = []pgrepo.PurchaseRecord{{ID: 20, UserID: 1, Status: "active", CreditsAmount: 5}}

	consumed, err := f.service.Consume(context.Background(), 1, enums.ListingModeLongTerm, 100, useCredit())
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if consumed.Kind != enums.CreditSourceLegacyPayment || consumed.SourceRef != "30" {
		t.Fatalf("expected existing legacy binding, got %+v", consumed)
	}

	f.packs.mu.Lock()
	used := f.packs.packs[0].CreditsUsed
	f.packs.mu.Unlock()
	if used != 0 {
		t.Fatalf("no new unit must be debited, used=%d", used)
	}
}

func TestConsumeBoundsRetriesAcrossSources(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)
	// Every candidate loses its conditional write.
	f.packs.packs = []pgrepo.PurchaseRecord{
		{ID: 20, UserID: 1, Status: "active", CreditsAmount: 5},
		{ID: 21, UserID: 1, Status: "active", CreditsAmount: 5},
		{ID: 22, UserID: 1, Status: "active", CreditsAmount: 5},
		{ID: 23, UserID: 1, Status: "active", CreditsAmount: 5},
		{ID: 24, UserID: 1, Status: "active", CreditsAmount: 5},
		{ID: 25, UserID: 1, Status: "active", CreditsAmount: 5},
		{ID: 26, UserID: 1, Status: "active", CreditsAmount: 5},
	}
	for id := int64(20); id <= 26; id++ {
		f.packs.conflicts[id] = 1
	}

	_, err := f.service.Consume(context.Background(), 1, enums.ListingModeLongTerm, 100, useCredit())
	if !errors.Is(err, ErrNoCreditAvailable) {
		t.Fatalf("expected ErrNoCreditAvailable, got %v", err)
	}

	f.packs.mu.Lock()
	consumes := f.packs.consumes
	f.packs.mu.Unlock()
	if consumes > maxConsumeAttempts {
		t.Fatalf("retries must be bounded: %d attempts", consumes)
	}
}

func TestConsumeRejectsNonUseCreditDecision(t *testing.T) {
	f := newFixture(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	ctx := context.Background()
	if _, err := f.service.Consume(ctx, 1, enums.ListingModeLongTerm, 100, model.FreeDecision()); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision for free decision, got %v", err)
	}
	price := model.Money{Amount: 1000, Currency: "XOF"}
	if _, err := f.service.Consume(ctx, 1, enums.ListingModeLongTerm, 100, model.PaymentRequiredDecision(price)); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision for payment decision, got %v", err)
	}
}

func TestConcurrentConsumeNeverDoubleSpends(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)
	f.packs.packs = []pgrepo.PurchaseRecord{{ID: 20, UserID: 1, Status: "active", CreditsAmount: 1}}

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(listingID int64) {
			defer wg.Done()
			_, err := f.service.Consume(context.Background(), 1, enums.ListingModeLongTerm, listingID, useCredit())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrNoCreditAvailable):
				failures++
			default:
				t.Errorf("unexpected consume error: %v", err)
			}
		}(int64(200 + i))
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("exactly one consumer may win the last credit, got %d", successes)
	}
	if failures != attempts-1 {
		t.Fatalf("unexpected failure count: %d", failures)
	}

	f.packs.mu.Lock()
	used := f.packs.packs[0].CreditsUsed
	f.packs.mu.Unlock()
	if used != 1 {
		t.Fatalf("pack must be debited exactly once, used=%d", used)
	}
}

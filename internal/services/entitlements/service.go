package entitlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/16madina/lazone/backend/internal/domain/enums"
	"github.com/16madina/lazone/backend/internal/domain/model"
	"github.com/16madina/lazone/backend/internal/domain/rules"
	pgrepo "github.com/16madina/lazone/backend/internal/repo/postgres"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrDependenciesNil = errors.New("entitlement dependencies are not configured")
)

type ConfigSource interface {
	GetModeConfig(ctx context.Context, mode enums.ListingMode) model.ModeQuotaConfig
}

type ListingStore interface {
	CountActive(ctx context.Context, userID int64, mode enums.ListingMode) (int, error)
}

type SubscriptionStore interface {
	ListActiveSubscriptions(ctx context.Context, userID int64, at time.Time) ([]pgrepo.PurchaseRecord, error)
	GetSubscriptionUsage(ctx context.Context, purchaseID int64, mode enums.ListingMode, periodKey string) (int, error)
}

type PackStore interface {
	ListActivePacks(ctx context.Context, userID int64, mode enums.ListingMode) ([]pgrepo.PurchaseRecord, error)
}

type LegacyStore interface {
	CountUnbound(ctx context.Context, userID int64, mode enums.ListingMode) (int, error)
}

type Dependencies struct {
	Config        ConfigSource
	Listings      ListingStore
	Subscriptions SubscriptionStore
	Packs         PackStore
	Legacy        LegacyStore
}

// Evaluation is the outcome of one publish-attempt check. Ledger is only
// populated when the free quota was exhausted and the ledger was consulted.
type Evaluation struct {
	Decision    model.EntitlementDecision
	FreeLimit   int
	ActiveCount int
	Ledger      *model.CreditLedgerView
}

type Service struct {
	cfg           ConfigSource
	listings      ListingStore
	subscriptions SubscriptionStore
	packs         PackStore
	legacy        LegacyStore
	logger        *zap.Logger
	now           func() time.Time
}

func NewService(deps Dependencies, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		cfg:           deps.Config,
		listings:      deps.Listings,
		subscriptions: deps.Subscriptions,
		packs:         deps.Packs,
		legacy:        deps.Legacy,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *Service) CountActive(ctx context.Context, userID int64, mode enums.ListingMode) (int, error) {
	if userID <= 0 || mode == "" {
		return 0, ErrValidation
	}
	if s.listings == nil {
		return 0, ErrDependenciesNil
	}
	return s.listings.CountActive(ctx, userID, mode)
}

// GetLedger aggregates remaining credit across the three sources. A failing
// sub-query contributes zero and flags the view as degraded instead of
// blocking the evaluation.
func (s *Service) GetLedger(ctx context.Context, userID int64, mode enums.ListingMode) (model.CreditLedgerView, error) {
	if userID <= 0 || mode == "" {
		return model.CreditLedgerView{}, ErrValidation
	}
	if s.cfg == nil || s.subscriptions == nil || s.packs == nil || s.legacy == nil {
		return model.CreditLedgerView{}, ErrDependenciesNil
	}

	now := s.now().UTC()
	config := s.cfg.GetModeConfig(ctx, mode)

	var view model.CreditLedgerView

	subRemaining, err := s.subscriptionRemaining(ctx, userID, mode, config, now)
	if err != nil {
		s.logger.Warn("ledger subscription source degraded",
			zap.Int64("user_id", userID),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		view.Degraded = append(view.Degraded, enums.CreditSourceSubscription)
	} else {
		view.SubscriptionRemaining = subRemaining
	}

	packs, err := s.packs.ListActivePacks(ctx, userID, mode)
	if err != nil {
		s.logger.Warn("ledger pack source degraded",
			zap.Int64("user_id", userID),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		view.Degraded = append(view.Degraded, enums.CreditSourceCreditPack)
	} else {
		for _, pack := range packs {
			view.PackRemaining += pack.PackRemaining()
		}
	}

	legacyCount, err := s.legacy.CountUnbound(ctx, userID, mode)
	if err != nil {
		s.logger.Warn("ledger legacy source degraded",
			zap.Int64("user_id", userID),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		view.Degraded = append(view.Degraded, enums.CreditSourceLegacyPayment)
	} else {
		view.LegacyRemaining = legacyCount
	}

	view.Total = view.SubscriptionRemaining + view.PackRemaining + view.LegacyRemaining
	return view, nil
}

// Evaluate classifies a publish attempt as free, credit-consuming, or
// payment-required. It is read-only: consumption is a separate step so the
// caller can surface the decision before committing it.
func (s *Service) Evaluate(ctx context.Context, userID int64, category enums.UserCategory, mode enums.ListingMode) (Evaluation, error) {
	if userID <= 0 || category == "" || mode == "" {
		return Evaluation{}, ErrValidation
	}
	if s.cfg == nil || s.listings == nil {
		return Evaluation{}, ErrDependenciesNil
	}

	config := s.cfg.GetModeConfig(ctx, mode)
	freeLimit := config.FreeLimitFor(category)

	activeCount, err := s.listings.CountActive(ctx, userID, mode)
	if err != nil {
		return Evaluation{}, fmt.Errorf("count active listings: %w", err)
	}

	evaluation := Evaluation{
		FreeLimit:   freeLimit,
		ActiveCount: activeCount,
	}

	// A zero free limit always counts as exceeded, even for the very
	// first listing.
	exceeded := freeLimit == 0 || activeCount >= freeLimit
	if !exceeded {
		evaluation.Decision = model.FreeDecision()
		return evaluation, nil
	}

	ledger, err := s.GetLedger(ctx, userID, mode)
	if err != nil {
		return Evaluation{}, err
	}
	evaluation.Ledger = &ledger

	evaluation.Decision = decide(config, ledger)
	return evaluation, nil
}

func decide(config model.ModeQuotaConfig, ledger model.CreditLedgerView) model.EntitlementDecision {
	if ledger.Total == 0 {
		return model.PaymentRequiredDecision(config.PricePerExtraListing)
	}
	return model.UseCreditDecision(PreferredSource(ledger))
}

// PreferredSource applies the fixed consumption priority: subscription
// allowances expire at period end and go first, then packs and legacy
// credits oldest-first to bound lifetime liability.
func PreferredSource(ledger model.CreditLedgerView) enums.CreditSourceKind {
	switch {
	case ledger.SubscriptionRemaining > 0:
		return enums.CreditSourceSubscription
	case ledger.PackRemaining > 0:
		return enums.CreditSourceCreditPack
	default:
		return enums.CreditSourceLegacyPayment
	}
}

func (s *Service) subscriptionRemaining(ctx context.Context, userID int64, mode enums.ListingMode, config model.ModeQuotaConfig, now time.Time) (int, error) {
	records, err := s.subscriptions.ListActiveSubscriptions(ctx, userID, now)
	if err != nil {
		return 0, err
	}

	sub, tier, ok := pgrepo.PickPreferredSubscription(records)
	if !ok {
		return 0, nil
	}

	limit := config.MonthlyLimitFor(tier)
	if limit <= 0 {
		return 0, nil
	}

	used, err := s.subscriptions.GetSubscriptionUsage(ctx, sub.ID, mode, rules.MonthKey(now))
	if err != nil {
		return 0, err
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

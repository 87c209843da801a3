package credits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/16madina/lazone/backend/internal/domain/enums"
	"github.com/16madina/lazone/backend/internal/domain/model"
	"github.com/16madina/lazone/backend/internal/domain/rules"
	pgrepo "github.com/16madina/lazone/backend/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidDecision   = errors.New("consume requires a use-credit decision")
	ErrNoCreditAvailable = errors.New("no credit available")
	ErrDependenciesNil   = errors.New("credit consumer dependencies are not configured")
)

// maxConsumeAttempts bounds how many candidate units one consumption may
// try after losing conditional-write races.
const maxConsumeAttempts = 5

type ConfigSource interface {
	GetModeConfig(ctx context.Context, mode enums.ListingMode) model.ModeQuotaConfig
}

type SubscriptionStore interface {
	ListActiveSubscriptions(ctx context.Context, userID int64, at time.Time) ([]pgrepo.PurchaseRecord, error)
	GetSubscriptionUsage(ctx context.Context, purchaseID int64, mode enums.ListingMode, periodKey string) (int, error)
	ConsumeSubscriptionCredit(ctx context.Context, purchaseID int64, mode enums.ListingMode, periodKey string, limit int) (int, error)
}

type PackStore interface {
	ListActivePacks(ctx context.Context, userID int64, mode enums.ListingMode) ([]pgrepo.PurchaseRecord, error)
	ConsumePackCredit(ctx context.Context, purchaseID int64, expectedUsed int) error
}

type LegacyStore interface {
	ListUnbound(ctx context.Context, userID int64, mode enums.ListingMode) ([]pgrepo.LegacyPaymentRecord, error)
	BindToListing(ctx context.Context, paymentID, listingID int64) error
	FindBoundToListing(ctx context.Context, userID, listingID int64) (pgrepo.LegacyPaymentRecord, error)
}

type AuditStore interface {
	Insert(ctx context.Context, record model.CreditConsumption) error
	FindByListing(ctx context.Context, userID, listingID int64) (model.CreditConsumption, error)
}

type Dependencies struct {
	Config        ConfigSource
	Subscriptions SubscriptionStore
	Packs         PackStore
	Legacy        LegacyStore
	Audit         AuditStore
}

// Service is the only component that mutates credit state. Every debit is
// one conditional write against one record; a lost race falls through to
// the next unit in the fixed priority order.
type Service struct {
	cfg           ConfigSource
	subscriptions SubscriptionStore
	packs         PackStore
	legacy        LegacyStore
	audit         AuditStore
	logger        *zap.Logger
	now           func() time.Time
}

func NewService(deps Dependencies, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		cfg:           deps.Config,
		subscriptions: deps.Subscriptions,
		packs:         deps.Packs,
		legacy:        deps.Legacy,
		audit:         deps.Audit,
		logger:        logger,
		now:           time.Now,
	}
}

// Consume debits one credit unit and binds it to the listing being created.
// The ledger is re-derived here rather than trusting the evaluator's
// snapshot, because time may have passed between decision and commit.
func (s *Service) Consume(ctx context.Context, userID int64, mode enums.ListingMode, listingID int64, decision model.EntitlementDecision) (model.ConsumedFrom, error) {
	if userID <= 0 || mode == "" || listingID <= 0 {
		return model.ConsumedFrom{}, ErrValidation
	}
	if decision.Kind != model.DecisionUseCredit {
		return model.ConsumedFrom{}, ErrInvalidDecision
	}
	if s.cfg == nil || s.subscriptions == nil || s.packs == nil || s.legacy == nil || s.audit == nil {
		return model.ConsumedFrom{}, ErrDependenciesNil
	}

	// Idempotency: a listing that already consumed a unit keeps it; the
	// repeated call is a no-op reporting the existing binding.
	if existing, err := s.findExisting(ctx, userID, listingID); err != nil {
		return model.ConsumedFrom{}, err
	} else if existing != nil {
		return *existing, nil
	}

	now := s.now().UTC()
	config := s.cfg.GetModeConfig(ctx, mode)

	attempts := 0
	consumed, err := s.consumeSubscription(ctx, userID, mode, config, now, &attempts)
	if err != nil {
		return model.ConsumedFrom{}, err
	}
	if consumed == nil && attempts < maxConsumeAttempts {
		consumed, err = s.consumePack(ctx, userID, mode, &attempts)
		if err != nil {
			return model.ConsumedFrom{}, err
		}
	}
	if consumed == nil && attempts < maxConsumeAttempts {
		consumed, err = s.consumeLegacy(ctx, userID, mode, listingID, &attempts)
		if err != nil {
			return model.ConsumedFrom{}, err
		}
	}
	if consumed == nil {
		return model.ConsumedFrom{}, ErrNoCreditAvailable
	}

	record := model.CreditConsumption{
		ID:         uuid.NewString(),
		UserID:     userID,
		Mode:       mode,
		SourceKind: consumed.Kind,
		SourceRef:  consumed.SourceRef,
		ListingID:  listingID,
		CreatedAt:  now,
	}
	if err := s.audit.Insert(ctx, record); err != nil {
		return model.ConsumedFrom{}, fmt.Errorf("record credit consumption: %w", err)
	}
	consumed.AuditID = record.ID

	s.logger.Info("credit consumed",
		zap.Int64("user_id", userID),
		zap.String("mode", string(mode)),
		zap.Int64("listing_id", listingID),
		zap.String("source_kind", string(consumed.Kind)),
		zap.String("source_ref", consumed.SourceRef),
	)

	return *consumed, nil
}

func (s *Service) findExisting(ctx context.Context, userID, listingID int64) (*model.ConsumedFrom, error) {
	record, err := s.audit.FindByListing(ctx, userID, listingID)
	if err == nil {
		return &model.ConsumedFrom{
			Kind:      record.SourceKind,
			SourceRef: record.SourceRef,
			AuditID:   record.ID,
		}, nil
	}
	if !errors.Is(err, pgrepo.ErrConsumptionNotFound) {
		return nil, fmt.Errorf("check consumption idempotency: %w", err)
	}

	// Legacy credits bound before the audit trail existed still count.
	bound, err := s.legacy.FindBoundToListing(ctx, userID, listingID)
	if err == nil {
		return &model.ConsumedFrom{
			Kind:      enums.CreditSourceLegacyPayment,
			SourceRef: strconv.FormatInt(bound.ID, 10),
		}, nil
	}
	if !errors.Is(err, pgrepo.ErrLegacyPaymentNotFound) {
		return nil, fmt.Errorf("check legacy binding: %w", err)
	}

	return nil, nil
}

func (s *Service) consumeSubscription(ctx context.Context, userID int64, mode enums.ListingMode, config model.ModeQuotaConfig, now time.Time, attempts *int) (*model.ConsumedFrom, error) {
	records, err := s.subscriptions.ListActiveSubscriptions(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for consume: %w", err)
	}

	sub, tier, ok := pgrepo.PickPreferredSubscription(records)
	if !ok {
		return nil, nil
	}
	limit := config.MonthlyLimitFor(tier)
	if limit <= 0 {
		return nil, nil
	}

	periodKey := rules.MonthKey(now)
	used, err := s.subscriptions.GetSubscriptionUsage(ctx, sub.ID, mode, periodKey)
	if err != nil {
		return nil, fmt.Errorf("read subscription usage: %w", err)
	}
	if used >= limit {
		return nil, nil
	}

	*attempts++
	if _, err := s.subscriptions.ConsumeSubscriptionCredit(ctx, sub.ID, mode, periodKey, limit); err != nil {
		if errors.Is(err, pgrepo.ErrSubscriptionLimitReached) {
			// Lost the race for the last allowance unit; fall through.
			return nil, nil
		}
		return nil, fmt.Errorf("consume subscription credit: %w", err)
	}

	return &model.ConsumedFrom{
		Kind:      enums.CreditSourceSubscription,
		SourceRef: strconv.FormatInt(sub.ID, 10),
	}, nil
}

func (s *Service) consumePack(ctx context.Context, userID int64, mode enums.ListingMode, attempts *int) (*model.ConsumedFrom, error) {
	packs, err := s.packs.ListActivePacks(ctx, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("list packs for consume: %w", err)
	}

	for _, pack := range packs {
		if pack.PackRemaining() <= 0 {
			continue
		}
		if *attempts >= maxConsumeAttempts {
			return nil, nil
		}

		*attempts++
		err := s.packs.ConsumePackCredit(ctx, pack.ID, pack.CreditsUsed)
		if err == nil {
			return &model.ConsumedFrom{
				Kind:      enums.CreditSourceCreditPack,
				SourceRef: strconv.FormatInt(pack.ID, 10),
			}, nil
		}
		if errors.Is(err, pgrepo.ErrPackCreditConflict) {
			continue
		}
		return nil, fmt.Errorf("consume pack credit: %w", err)
	}

	return nil, nil
}

func (s *Service) consumeLegacy(ctx context.Context, userID int64, mode enums.ListingMode, listingID int64, attempts *int) (*model.ConsumedFrom, error) {
	records, err := s.legacy.ListUnbound(ctx, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("list legacy credits for consume: %w", err)
	}

	for _, record := range records {
		if *attempts >= maxConsumeAttempts {
			return nil, nil
		}

		*attempts++
		err := s.legacy.BindToListing(ctx, record.ID, listingID)
		if err == nil {
			return &model.ConsumedFrom{
				Kind:      enums.CreditSourceLegacyPayment,
				SourceRef: strconv.FormatInt(record.ID, 10),
			}, nil
		}
		if errors.Is(err, pgrepo.ErrLegacyCreditConflict) {
			continue
		}
		return nil, fmt.Errorf("bind legacy credit: %w", err)
	}

	return nil, nil
}

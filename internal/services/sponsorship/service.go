package sponsorship

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/16madina/lazone/backend/internal/domain/enums"
	"github.com/16madina/lazone/backend/internal/domain/model"
	"github.com/16madina/lazone/backend/internal/domain/rules"
	pgrepo "github.com/16madina/lazone/backend/internal/repo/postgres"
)

var (
	ErrValidation           = errors.New("validation error")
	ErrQuotaExceeded        = errors.New("sponsorship quota exceeded")
	ErrSubscriptionRequired = errors.New("active subscription required")
	ErrListingNotFound      = errors.New("listing not found")
	ErrDependenciesNil      = errors.New("sponsorship dependencies are not configured")
)

type SubscriptionStore interface {
	ListActiveSubscriptions(ctx context.Context, userID int64, at time.Time) ([]pgrepo.PurchaseRecord, error)
}

type UsageStore interface {
	GetUsed(ctx context.Context, userID int64, monthKey string) (int, error)
	ConsumeWithLimit(ctx context.Context, tx pgx.Tx, userID int64, monthKey string, limit int) (int, error)
}

type ListingStore interface {
	SetSponsored(ctx context.Context, tx pgx.Tx, userID, listingID int64, until time.Time) error
	ClearSponsored(ctx context.Context, userID, listingID int64) error
	CountActiveSponsored(ctx context.Context, userID int64, at time.Time) (int, error)
}

type TxRunner interface {
	InTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type Config struct {
	ProQuota     int
	PremiumQuota int
	Duration     time.Duration
}

type Dependencies struct {
	Subscriptions SubscriptionStore
	Usage         UsageStore
	Listings      ListingStore
	Tx            TxRunner
}

// Service is the monthly promote-my-listing quota engine. It mirrors the
// publication entitlement's evaluate/consume split, scoped per calendar
// month and subscription tier instead of per listing mode.
type Service struct {
	subscriptions SubscriptionStore
	usage         UsageStore
	listings      ListingStore
	tx            TxRunner
	cfg           Config
	logger        *zap.Logger
	now           func() time.Time
}

func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if cfg.ProQuota <= 0 {
		cfg.ProQuota = rules.ProSponsorshipQuota
	}
	if cfg.PremiumQuota <= 0 {
		cfg.PremiumQuota = rules.PremiumSponsorshipQuota
	}
	if cfg.Duration <= 0 {
		cfg.Duration = rules.SponsorshipDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		subscriptions: deps.Subscriptions,
		usage:         deps.Usage,
		listings:      deps.Listings,
		tx:            deps.Tx,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// Evaluate reports the user's monthly sponsorship quota. Used is the
// non-refundable period counter; ActiveSponsored excludes expired
// sponsorships lazily, without a background sweep.
func (s *Service) Evaluate(ctx context.Context, userID int64) (model.SponsorshipStatus, error) {
	if userID <= 0 {
		return model.SponsorshipStatus{}, ErrValidation
	}
	if s.subscriptions == nil || s.usage == nil || s.listings == nil {
		return model.SponsorshipStatus{}, ErrDependenciesNil
	}

	now := s.now().UTC()
	quota, err := s.resolveQuota(ctx, userID, now)
	if err != nil {
		return model.SponsorshipStatus{}, err
	}

	used, err := s.usage.GetUsed(ctx, userID, rules.MonthKey(now))
	if err != nil {
		return model.SponsorshipStatus{}, fmt.Errorf("read sponsorship usage: %w", err)
	}

	active, err := s.listings.CountActiveSponsored(ctx, userID, now)
	if err != nil {
		return model.SponsorshipStatus{}, fmt.Errorf("count sponsored listings: %w", err)
	}

	remaining := quota - used
	if remaining < 0 {
		remaining = 0
	}

	return model.SponsorshipStatus{
		Quota:           quota,
		Used:            used,
		Remaining:       remaining,
		ActiveSponsored: active,
		ResetsAt:        rules.NextRolloverAt(now),
	}, nil
}

// Sponsor consumes one monthly slot and marks the listing sponsored until
// now plus the configured duration. The usage increment and the listing
// flag move together in one transaction.
func (s *Service) Sponsor(ctx context.Context, userID, listingID int64) error {
	if userID <= 0 || listingID <= 0 {
		return ErrValidation
	}
	if s.subscriptions == nil || s.usage == nil || s.listings == nil || s.tx == nil {
		return ErrDependenciesNil
	}

	now := s.now().UTC()
	quota, err := s.resolveQuota(ctx, userID, now)
	if err != nil {
		return err
	}
	if quota <= 0 {
		return ErrSubscriptionRequired
	}

	monthKey := rules.MonthKey(now)
	until := now.Add(s.cfg.Duration)

	err = s.tx.InTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := s.usage.ConsumeWithLimit(txCtx, tx, userID, monthKey, quota); err != nil {
			if errors.Is(err, pgrepo.ErrSponsorshipLimitReached) {
				return ErrQuotaExceeded
			}
			return err
		}
		if err := s.listings.SetSponsored(txCtx, tx, userID, listingID, until); err != nil {
			if errors.Is(err, pgrepo.ErrListingNotFound) {
				return ErrListingNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("listing sponsored",
		zap.Int64("user_id", userID),
		zap.Int64("listing_id", listingID),
		zap.Time("sponsored_until", until),
	)

	return nil
}

// Unsponsor clears the listing's sponsorship flags. The period counter is
// deliberately not refunded: consumption is final within a month.
func (s *Service) Unsponsor(ctx context.Context, userID, listingID int64) error {
	if userID <= 0 || listingID <= 0 {
		return ErrValidation
	}
	if s.listings == nil {
		return ErrDependenciesNil
	}

	if err := s.listings.ClearSponsored(ctx, userID, listingID); err != nil {
		if errors.Is(err, pgrepo.ErrListingNotFound) {
			return ErrListingNotFound
		}
		return fmt.Errorf("clear sponsorship: %w", err)
	}

	return nil
}

func (s *Service) resolveQuota(ctx context.Context, userID int64, now time.Time) (int, error) {
	records, err := s.subscriptions.ListActiveSubscriptions(ctx, userID, now)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions for sponsorship: %w", err)
	}

	_, tier, ok := pgrepo.PickPreferredSubscription(records)
	if !ok {
		return 0, nil
	}

	switch tier {
	case enums.SubscriptionTierPremium:
		return s.cfg.PremiumQuota, nil
	case enums.SubscriptionTierPro:
		return s.cfg.ProQuota, nil
	default:
		return 0, nil
	}
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/16madina/lazone/backend/internal/domain/enums"
)

var (
	ErrSubscriptionLimitReached = errors.New("subscription monthly limit reached")
	ErrPackCreditConflict       = errors.New("pack credit changed since read")
)

// PurchaseRecord mirrors the payment gateway's purchase rows. Subscriptions
// carry a tier and expiration; credit packs carry a per-mode credit balance.
// This engine never creates purchases, it only reads them and debits usage.
type PurchaseRecord struct {
	ID             int64
	UserID         int64
	ProductID      string
	Status         string
	IsSubscription bool
	Tier           *string
	Mode           *string
	CreditsAmount  int
	CreditsUsed    int
	ExpirationDate *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p PurchaseRecord) PackRemaining() int {
	remaining := p.CreditsAmount - p.CreditsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

// ListActiveSubscriptions returns the user's completed subscription
// purchases still inside their validity window, most recent first. Tier
// preference between several active rows is resolved by the caller.
func (r *PurchaseRepo) ListActiveSubscriptions(ctx context.Context, userID int64, at time.Time) ([]PurchaseRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, product_id, status, is_subscription, tier, mode,
       credits_amount, credits_used, expiration_date, created_at, updated_at
FROM purchases
WHERE user_id = $1
  AND is_subscription = TRUE
  AND status = 'completed'
  AND (expiration_date IS NULL OR expiration_date > $2::timestamptz)
ORDER BY created_at DESC
`, userID, at.UTC())
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	defer rows.Close()

	return scanPurchases(rows)
}

// ListActivePacks returns the user's active credit packs for a mode,
// oldest first for FIFO consumption.
func (r *PurchaseRepo) ListActivePacks(ctx context.Context, userID int64, mode enums.ListingMode) ([]PurchaseRecord, error) {
	if userID <= 0 || mode == "" {
		return nil, fmt.Errorf("invalid pack list payload")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, product_id, status, is_subscription, tier, mode,
       credits_amount, credits_used, expiration_date, created_at, updated_at
FROM purchases
WHERE user_id = $1
  AND is_subscription = FALSE
  AND status = 'active'
  AND mode = $2
ORDER BY created_at ASC
`, userID, string(mode))
	if err != nil {
		return nil, fmt.Errorf("list active credit packs: %w", err)
	}
	defer rows.Close()

	return scanPurchases(rows)
}

// ConsumePackCredit debits one unit from a pack only if its usage counter
// still matches the value observed by the caller. A lost race leaves the
// row untouched and reports ErrPackCreditConflict.
func (r *PurchaseRepo) ConsumePackCredit(ctx context.Context, purchaseID int64, expectedUsed int) error {
	if purchaseID <= 0 || expectedUsed < 0 {
		return fmt.Errorf("invalid pack consume payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE purchases
SET
	credits_used = credits_used + 1,
	updated_at = NOW()
WHERE id = $1
  AND is_subscription = FALSE
  AND status = 'active'
  AND credits_used = $2
  AND credits_used < credits_amount
`, purchaseID, expectedUsed)
	if err != nil {
		return fmt.Errorf("consume pack credit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPackCreditConflict
	}

	return nil
}

// GetSubscriptionUsage reads the per-mode usage counter of one subscription
// for a billing period. A missing row means zero usage.
func (r *PurchaseRepo) GetSubscriptionUsage(ctx context.Context, purchaseID int64, mode enums.ListingMode, periodKey string) (int, error) {
	if purchaseID <= 0 || mode == "" || periodKey == "" {
		return 0, fmt.Errorf("invalid subscription usage payload")
	}
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var used int
	err := r.pool.QueryRow(ctx, `
SELECT used
FROM subscription_usage
WHERE purchase_id = $1 AND mode = $2 AND period_key = $3
LIMIT 1
`, purchaseID, string(mode), periodKey).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get subscription usage: %w", err)
	}

	return used, nil
}

// ConsumeSubscriptionCredit increments the per-mode usage counter only
// while it stays below the tier limit. The guarded upsert makes concurrent
// debits of the last unit resolve to exactly one winner.
func (r *PurchaseRepo) ConsumeSubscriptionCredit(ctx context.Context, purchaseID int64, mode enums.ListingMode, periodKey string, limit int) (int, error) {
	if purchaseID <= 0 || mode == "" || periodKey == "" || limit <= 0 {
		return 0, fmt.Errorf("invalid subscription consume payload")
	}
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var used int
	err := r.pool.QueryRow(ctx, `
INSERT INTO subscription_usage (
	purchase_id,
	mode,
	period_key,
	used,
	updated_at
) VALUES ($1, $2, $3, 1, NOW())
ON CONFLICT (purchase_id, mode, period_key) DO UPDATE SET
	used = subscription_usage.used + 1,
	updated_at = NOW()
WHERE subscription_usage.used < $4
RETURNING used
`, purchaseID, string(mode), periodKey, limit).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSubscriptionLimitReached
		}
		return 0, fmt.Errorf("consume subscription credit: %w", err)
	}

	return used, nil
}

// PickPreferredSubscription resolves the "at most one active subscription"
// rule against anomalous data: the higher tier wins, ties go to the most
// recent purchase.
func PickPreferredSubscription(records []PurchaseRecord) (PurchaseRecord, enums.SubscriptionTier, bool) {
	var (
		best     PurchaseRecord
		bestTier enums.SubscriptionTier
		found    bool
	)
	for _, record := range records {
		if record.Tier == nil {
			continue
		}
		tier, ok := enums.ParseSubscriptionTier(*record.Tier)
		if !ok {
			continue
		}
		if !found ||
			tier.Rank() > bestTier.Rank() ||
			(tier.Rank() == bestTier.Rank() && record.CreatedAt.After(best.CreatedAt)) {
			best = record
			bestTier = tier
			found = true
		}
	}
	return best, bestTier, found
}

func scanPurchases(rows pgx.Rows) ([]PurchaseRecord, error) {
	var records []PurchaseRecord
	for rows.Next() {
		var record PurchaseRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.ProductID,
			&record.Status,
			&record.IsSubscription,
			&record.Tier,
			&record.Mode,
			&record.CreditsAmount,
			&record.CreditsUsed,
			&record.ExpirationDate,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase rows: %w", err)
	}
	return records, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSponsorshipLimitReached = errors.New("sponsorship monthly limit reached")

// SponsorshipRepo tracks per-user monthly sponsorship consumption. The
// counter is non-refundable within a period; a new month key starts it over.
type SponsorshipRepo struct {
	pool *pgxpool.Pool
}

func NewSponsorshipRepo(pool *pgxpool.Pool) *SponsorshipRepo {
	return &SponsorshipRepo{pool: pool}
}

func (r *SponsorshipRepo) GetUsed(ctx context.Context, userID int64, monthKey string) (int, error) {
	if userID <= 0 || monthKey == "" {
		return 0, fmt.Errorf("invalid sponsorship usage payload")
	}
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var used int
	err := r.pool.QueryRow(ctx, `
SELECT used
FROM sponsorship_usage
WHERE user_id = $1 AND month_key = $2
LIMIT 1
`, userID, monthKey).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get sponsorship usage: %w", err)
	}

	return used, nil
}

// ConsumeWithLimit increments the monthly counter only while it stays below
// the tier quota, so two concurrent sponsors of the last slot resolve to
// exactly one winner.
func (r *SponsorshipRepo) ConsumeWithLimit(ctx context.Context, tx pgx.Tx, userID int64, monthKey string, limit int) (int, error) {
	if userID <= 0 || monthKey == "" || limit <= 0 {
		return 0, fmt.Errorf("invalid sponsorship consume payload")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var used int
	err := tx.QueryRow(ctx, `
INSERT INTO sponsorship_usage (
	user_id,
	month_key,
	used,
	updated_at
) VALUES ($1, $2, 1, NOW())
ON CONFLICT (user_id, month_key) DO UPDATE SET
	used = sponsorship_usage.used + 1,
	updated_at = NOW()
WHERE sponsorship_usage.used < $3
RETURNING used
`, userID, monthKey, limit).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSponsorshipLimitReached
		}
		return 0, fmt.Errorf("consume sponsorship quota: %w", err)
	}

	return used, nil
}

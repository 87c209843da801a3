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

var ErrListingNotFound = errors.New("listing not found")

// ListingRepo is the engine's read/flag access to the listings table. The
// listing CRUD itself lives elsewhere; this repo only counts active records
// and toggles sponsorship flags.
type ListingRepo struct {
	pool *pgxpool.Pool
}

func NewListingRepo(pool *pgxpool.Pool) *ListingRepo {
	return &ListingRepo{pool: pool}
}

func (r *ListingRepo) CountActive(ctx context.Context, userID int64, mode enums.ListingMode) (int, error) {
	if userID <= 0 || mode == "" {
		return 0, fmt.Errorf("invalid listing count payload")
	}
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM listings
WHERE owner_id = $1
  AND mode = $2
  AND is_active = TRUE
`, userID, string(mode)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active listings: %w", err)
	}

	return count, nil
}

func (r *ListingRepo) CountActiveSponsored(ctx context.Context, userID int64, at time.Time) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM listings
WHERE owner_id = $1
  AND is_active = TRUE
  AND sponsored = TRUE
  AND sponsored_until > $2::timestamptz
`, userID, at.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sponsored listings: %w", err)
	}

	return count, nil
}

func (r *ListingRepo) SetSponsored(ctx context.Context, tx pgx.Tx, userID, listingID int64, until time.Time) error {
	if userID <= 0 || listingID <= 0 || until.IsZero() {
		return fmt.Errorf("invalid sponsor payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE listings
SET
	sponsored = TRUE,
	sponsored_until = $3::timestamptz,
	updated_at = NOW()
WHERE id = $1
  AND owner_id = $2
  AND is_active = TRUE
`, listingID, userID, until.UTC())
	if err != nil {
		return fmt.Errorf("set listing sponsored: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrListingNotFound
	}

	return nil
}

func (r *ListingRepo) ClearSponsored(ctx context.Context, userID, listingID int64) error {
	if userID <= 0 || listingID <= 0 {
		return fmt.Errorf("invalid unsponsor payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE listings
SET
	sponsored = FALSE,
	sponsored_until = NULL,
	updated_at = NOW()
WHERE id = $1
  AND owner_id = $2
`, listingID, userID)
	if err != nil {
		return fmt.Errorf("clear listing sponsorship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrListingNotFound
	}

	return nil
}

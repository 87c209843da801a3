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
	ErrLegacyPaymentNotFound = errors.New("legacy payment not found")
	ErrLegacyCreditConflict  = errors.New("legacy credit already bound")
)

// LegacyPaymentRecord is a one-off listing payment from before credit packs
// existed. Each completed record is worth exactly one publication credit;
// it is spent by binding it to the listing it paid for.
type LegacyPaymentRecord struct {
	ID          int64
	UserID      int64
	Status      string
	ListingType string
	PropertyID  *int64
	CreatedAt   time.Time
}

type LegacyPaymentRepo struct {
	pool *pgxpool.Pool
}

func NewLegacyPaymentRepo(pool *pgxpool.Pool) *LegacyPaymentRepo {
	return &LegacyPaymentRepo{pool: pool}
}

func (r *LegacyPaymentRepo) CountUnbound(ctx context.Context, userID int64, mode enums.ListingMode) (int, error) {
	if userID <= 0 || mode == "" {
		return 0, fmt.Errorf("invalid legacy count payload")
	}
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM legacy_payments
WHERE user_id = $1
  AND listing_type = $2
  AND status = 'completed'
  AND property_id IS NULL
`, userID, string(mode)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unbound legacy payments: %w", err)
	}

	return count, nil
}

// ListUnbound returns spendable legacy credits oldest first (FIFO).
func (r *LegacyPaymentRepo) ListUnbound(ctx context.Context, userID int64, mode enums.ListingMode) ([]LegacyPaymentRecord, error) {
	if userID <= 0 || mode == "" {
		return nil, fmt.Errorf("invalid legacy list payload")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, status, listing_type, property_id, created_at
FROM legacy_payments
WHERE user_id = $1
  AND listing_type = $2
  AND status = 'completed'
  AND property_id IS NULL
ORDER BY created_at ASC
`, userID, string(mode))
	if err != nil {
		return nil, fmt.Errorf("list unbound legacy payments: %w", err)
	}
	defer rows.Close()

	var records []LegacyPaymentRecord
	for rows.Next() {
		var record LegacyPaymentRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Status,
			&record.ListingType,
			&record.PropertyID,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan legacy payment row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy payment rows: %w", err)
	}

	return records, nil
}

// BindToListing spends a legacy credit by attaching it to a listing. The
// write only succeeds while the record is still unbound; a bound credit is
// permanently bound.
func (r *LegacyPaymentRepo) BindToListing(ctx context.Context, paymentID, listingID int64) error {
	if paymentID <= 0 || listingID <= 0 {
		return fmt.Errorf("invalid legacy bind payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE legacy_payments
SET property_id = $2
WHERE id = $1
  AND status = 'completed'
  AND property_id IS NULL
`, paymentID, listingID)
	if err != nil {
		return fmt.Errorf("bind legacy payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLegacyCreditConflict
	}

	return nil
}

// FindBoundToListing reports the legacy credit already attached to a
// listing, if any.
func (r *LegacyPaymentRepo) FindBoundToListing(ctx context.Context, userID, listingID int64) (LegacyPaymentRecord, error) {
	if userID <= 0 || listingID <= 0 {
		return LegacyPaymentRecord{}, fmt.Errorf("invalid legacy lookup payload")
	}
	if r.pool == nil {
		return LegacyPaymentRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var record LegacyPaymentRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, user_id, status, listing_type, property_id, created_at
FROM legacy_payments
WHERE user_id = $1
  AND property_id = $2
LIMIT 1
`, userID, listingID).Scan(
		&record.ID,
		&record.UserID,
		&record.Status,
		&record.ListingType,
		&record.PropertyID,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LegacyPaymentRecord{}, ErrLegacyPaymentNotFound
		}
		return LegacyPaymentRecord{}, fmt.Errorf("find bound legacy payment: %w", err)
	}

	return record, nil
}

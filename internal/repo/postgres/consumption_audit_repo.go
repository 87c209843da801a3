package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/16madina/lazone/backend/internal/domain/enums"
	"github.com/16madina/lazone/backend/internal/domain/model"
)

var ErrConsumptionNotFound = errors.New("credit consumption not found")

// ConsumptionAuditRepo records every successful credit debit. Besides the
// audit trail it backs the consume idempotency check: a listing that already
// has a consumption row never gets a second unit bound.
type ConsumptionAuditRepo struct {
	pool *pgxpool.Pool
}

func NewConsumptionAuditRepo(pool *pgxpool.Pool) *ConsumptionAuditRepo {
	return &ConsumptionAuditRepo{pool: pool}
}

func (r *ConsumptionAuditRepo) Insert(ctx context.Context, record model.CreditConsumption) error {
	if strings.TrimSpace(record.ID) == "" || record.UserID <= 0 || record.ListingID <= 0 {
		return fmt.Errorf("invalid consumption audit payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO credit_consumptions (
	id,
	user_id,
	mode,
	source_kind,
	source_ref,
	listing_id,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, NOW())
`, record.ID, record.UserID, string(record.Mode), string(record.SourceKind), record.SourceRef, record.ListingID); err != nil {
		return fmt.Errorf("insert credit consumption: %w", err)
	}

	return nil
}

func (r *ConsumptionAuditRepo) FindByListing(ctx context.Context, userID, listingID int64) (model.CreditConsumption, error) {
	if userID <= 0 || listingID <= 0 {
		return model.CreditConsumption{}, fmt.Errorf("invalid consumption lookup payload")
	}
	if r.pool == nil {
		return model.CreditConsumption{}, fmt.Errorf("postgres pool is nil")
	}

	var (
		record     model.CreditConsumption
		mode       string
		sourceKind string
	)
	err := r.pool.QueryRow(ctx, `
SELECT id, user_id, mode, source_kind, source_ref, listing_id, created_at
FROM credit_consumptions
WHERE user_id = $1 AND listing_id = $2
LIMIT 1
`, userID, listingID).Scan(
		&record.ID,
		&record.UserID,
		&mode,
		&sourceKind,
		&record.SourceRef,
		&record.ListingID,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CreditConsumption{}, ErrConsumptionNotFound
		}
		return model.CreditConsumption{}, fmt.Errorf("find credit consumption: %w", err)
	}

	record.Mode = enums.ListingMode(mode)
	record.SourceKind = enums.CreditSourceKind(sourceKind)
	return record, nil
}

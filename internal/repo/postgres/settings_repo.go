package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/16madina/lazone/backend/internal/domain/model"
)

const listingLimitSettingsID = "listing_limit"

var ErrSettingsNotFound = errors.New("settings record not found")

type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

func (r *SettingsRepo) Get(ctx context.Context) (model.GlobalSettings, time.Time, error) {
	if r.pool == nil {
		return model.GlobalSettings{}, time.Time{}, fmt.Errorf("postgres pool is nil")
	}

	var (
		raw       []byte
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
SELECT payload, updated_at
FROM app_settings
WHERE id = $1
LIMIT 1
`, listingLimitSettingsID).Scan(&raw, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.GlobalSettings{}, time.Time{}, ErrSettingsNotFound
		}
		return model.GlobalSettings{}, time.Time{}, fmt.Errorf("get listing limit settings: %w", err)
	}

	settings, err := decodeSettings(raw)
	if err != nil {
		return model.GlobalSettings{}, time.Time{}, err
	}

	return settings, updatedAt, nil
}

// Merge applies a read-modify-write mutation to the settings record inside
// one transaction. The row is locked for the duration, so a partial overlay
// is never observable.
func (r *SettingsRepo) Merge(ctx context.Context, apply func(*model.GlobalSettings) error) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if apply == nil {
		return fmt.Errorf("settings merge function is required")
	}

	return WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		var raw []byte
		err := tx.QueryRow(txCtx, `
SELECT payload
FROM app_settings
WHERE id = $1
FOR UPDATE
`, listingLimitSettingsID).Scan(&raw)

		var settings model.GlobalSettings
		switch {
		case err == nil:
			settings, err = decodeSettings(raw)
			if err != nil {
				return err
			}
		case errors.Is(err, pgx.ErrNoRows):
			settings = model.DefaultGlobalSettings()
		default:
			return fmt.Errorf("lock listing limit settings: %w", err)
		}

		if err := apply(&settings); err != nil {
			return err
		}
		settings.Normalize()

		payload, err := json.Marshal(settings)
		if err != nil {
			return fmt.Errorf("marshal listing limit settings: %w", err)
		}

		if _, err := tx.Exec(txCtx, `
INSERT INTO app_settings (id, payload, updated_at)
VALUES ($1, $2::jsonb, NOW())
ON CONFLICT (id) DO UPDATE SET
	payload = EXCLUDED.payload,
	updated_at = NOW()
`, listingLimitSettingsID, payload); err != nil {
			return fmt.Errorf("write listing limit settings: %w", err)
		}

		return nil
	})
}

func decodeSettings(raw []byte) (model.GlobalSettings, error) {
	var settings model.GlobalSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return model.GlobalSettings{}, fmt.Errorf("decode listing limit settings: %w", err)
	}
	settings.Normalize()
	return settings, nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/16madina/lazone/backend/internal/domain/model"
)

const settingsCacheKey = "settings:listing_limit"

// SettingsCacheRepo is the bounded-TTL read cache for quota settings.
// Staleness here only affects quota numbers, never credit atomicity, so a
// decode or connection problem is reported as a miss.
type SettingsCacheRepo struct {
	client *goredis.Client
}

func NewSettingsCacheRepo(client *goredis.Client) *SettingsCacheRepo {
	return &SettingsCacheRepo{client: client}
}

func (r *SettingsCacheRepo) Get(ctx context.Context) (model.GlobalSettings, bool, error) {
	if r.client == nil {
		return model.GlobalSettings{}, false, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, settingsCacheKey).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return model.GlobalSettings{}, false, nil
		}
		return model.GlobalSettings{}, false, fmt.Errorf("get cached settings: %w", err)
	}

	var settings model.GlobalSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return model.GlobalSettings{}, false, nil
	}
	settings.Normalize()

	return settings, true, nil
}

func (r *SettingsCacheRepo) Set(ctx context.Context, settings model.GlobalSettings, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return fmt.Errorf("settings cache ttl must be positive")
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal cached settings: %w", err)
	}

	if err := r.client.Set(ctx, settingsCacheKey, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set cached settings: %w", err)
	}

	return nil
}

func (r *SettingsCacheRepo) Invalidate(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.client.Del(ctx, settingsCacheKey).Err(); err != nil {
		return fmt.Errorf("invalidate cached settings: %w", err)
	}

	return nil
}

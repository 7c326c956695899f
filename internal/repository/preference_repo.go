package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"talecraft_client/internal/domain"

	"github.com/redis/go-redis/v9"
)

const preferencesKey = "talecraft:preferences"

// PreferenceRepository хранит локальные настройки пользователя в Redis.
// Для состояния игры не используется.
type PreferenceRepository struct {
	rdb *redis.Client
	key string
}

func NewPreferenceRepository(rdb *redis.Client) *PreferenceRepository {
	return &PreferenceRepository{rdb: rdb, key: preferencesKey}
}

// Get возвращает настройки, при отсутствии ключа - значения по умолчанию
func (r *PreferenceRepository) Get(ctx context.Context) (domain.Preferences, error) {
	raw, err := r.rdb.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.DefaultPreferences(), nil
		}
		return domain.Preferences{}, fmt.Errorf("redis get: %w", err)
	}

	p := domain.DefaultPreferences()
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return p, nil
}

// Save перезаписывает настройки целиком
func (r *PreferenceRepository) Save(ctx context.Context, p domain.Preferences) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

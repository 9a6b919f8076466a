package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-companion-chat/backend/profile/models"
	"ai-companion-chat/backend/shared/redis"
)

// RedisSettingsStore keeps the serialized profile in Redis; useful for
// deployments without Postgres or where sessions are short-lived
type RedisSettingsStore struct {
	client *redis.Client
}

// NewRedisSettingsStore creates a Redis-backed settings store
func NewRedisSettingsStore(client *redis.Client) *RedisSettingsStore {
	return &RedisSettingsStore{client: client}
}

func profileKey(sessionID string) string {
	return "companion:profile:" + sessionID
}

func (s *RedisSettingsStore) Load(ctx context.Context, sessionID string) (*models.Profile, error) {
	raw, err := s.client.Get(ctx, profileKey(sessionID))
	if err != nil {
		if redis.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	var profile models.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("failed to decode stored profile: %w", err)
	}
	return &profile, nil
}

func (s *RedisSettingsStore) Save(ctx context.Context, profile *models.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return s.client.Set(ctx, profileKey(profile.SessionID), data, 0)
}

func (s *RedisSettingsStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, profileKey(sessionID))
}

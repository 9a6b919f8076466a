package service

import (
	"context"

	"ai-companion-chat/backend/pkg/cache"
	"ai-companion-chat/backend/profile/models"
	"ai-companion-chat/backend/profile/repository"
)

// ProfileService fronts the settings store with a small cache; the
// orchestrator reads the profile on every turn
type ProfileService struct {
	store repository.SettingsStore
	cache *cache.Cache
}

// NewProfileService creates a profile service. The cache may be nil to
// disable caching.
func NewProfileService(store repository.SettingsStore, c *cache.Cache) *ProfileService {
	return &ProfileService{store: store, cache: c}
}

// Get returns the session's profile, or (nil, nil) when none is stored yet
func (s *ProfileService) Get(ctx context.Context, sessionID string) (*models.Profile, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(cacheKey(sessionID)); ok {
			return v.(*models.Profile), nil
		}
	}

	profile, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(cacheKey(sessionID), profile)
	}
	return profile, nil
}

// Save persists the profile and refreshes the cache
func (s *ProfileService) Save(ctx context.Context, profile *models.Profile) error {
	if err := s.store.Save(ctx, profile); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Set(cacheKey(profile.SessionID), profile)
	}
	return nil
}

// Clear removes the session's profile everywhere
func (s *ProfileService) Clear(ctx context.Context, sessionID string) error {
	if s.cache != nil {
		s.cache.Delete(cacheKey(sessionID))
	}
	return s.store.Clear(ctx, sessionID)
}

func cacheKey(sessionID string) string {
	return "profile:" + sessionID
}

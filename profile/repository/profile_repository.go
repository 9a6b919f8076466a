package repository

import (
	"context"
	"errors"

	"ai-companion-chat/backend/profile/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no profile is stored for a session
var ErrNotFound = errors.New("profile not found")

// SettingsStore persists one Profile record per chat session. Writes are
// synchronous with last-write-wins semantics; the orchestrator is the only
// writer.
type SettingsStore interface {
	Load(ctx context.Context, sessionID string) (*models.Profile, error)
	Save(ctx context.Context, profile *models.Profile) error
	Clear(ctx context.Context, sessionID string) error
}

// GormSettingsStore is the Postgres-backed store
type GormSettingsStore struct {
	db *gorm.DB
}

// NewGormSettingsStore creates a GORM-backed settings store
func NewGormSettingsStore(db *gorm.DB) *GormSettingsStore {
	return &GormSettingsStore{db: db}
}

func (s *GormSettingsStore) Load(ctx context.Context, sessionID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (s *GormSettingsStore) Save(ctx context.Context, profile *models.Profile) error {
	var existing models.Profile
	err := s.db.WithContext(ctx).Where("session_id = ?", profile.SessionID).First(&existing).Error
	if err == nil {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.db.WithContext(ctx).Save(profile).Error
}

func (s *GormSettingsStore) Clear(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.Profile{}).Error
}

package repository

import (
	"context"
	"sort"
	"sync"

	"gorm.io/gorm"

	"ai-companion-chat/backend/chat/models"
)

// TranscriptRepository persists the append-only message history per session.
type TranscriptRepository interface {
	Append(ctx context.Context, msg *models.Message) error
	// LastN returns up to n most recent messages, ordered oldest first.
	LastN(ctx context.Context, sessionID string, n int) ([]models.Message, error)
	List(ctx context.Context, sessionID string, limit, offset int) ([]models.Message, error)
	Count(ctx context.Context, sessionID string) (int64, error)
	Clear(ctx context.Context, sessionID string) error
}

type GormTranscriptRepository struct {
	db *gorm.DB
}

func NewGormTranscriptRepository(db *gorm.DB) *GormTranscriptRepository {
	return &GormTranscriptRepository{db: db}
}

func (r *GormTranscriptRepository) Append(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *GormTranscriptRepository) LastN(ctx context.Context, sessionID string, n int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(n).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *GormTranscriptRepository) List(ctx context.Context, sessionID string, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

func (r *GormTranscriptRepository) Count(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

func (r *GormTranscriptRepository) Clear(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.Message{}).Error
}

// MemoryTranscriptRepository keeps transcripts in process memory. Used in
// tests and as a fallback when no database is configured.
type MemoryTranscriptRepository struct {
	mu       sync.RWMutex
	nextID   uint
	sessions map[string][]models.Message
}

func NewMemoryTranscriptRepository() *MemoryTranscriptRepository {
	return &MemoryTranscriptRepository{
		nextID:   1,
		sessions: make(map[string][]models.Message),
	}
}

func (r *MemoryTranscriptRepository) Append(_ context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = r.nextID
	r.nextID++
	r.sessions[msg.SessionID] = append(r.sessions[msg.SessionID], *msg)
	return nil
}

func (r *MemoryTranscriptRepository) LastN(_ context.Context, sessionID string, n int) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.sessions[sessionID]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]models.Message, len(all))
	copy(out, all)
	return out, nil
}

func (r *MemoryTranscriptRepository) List(_ context.Context, sessionID string, limit, offset int) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.sessions[sessionID]
	sort.SliceStable(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return []models.Message{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]models.Message, len(all))
	copy(out, all)
	return out, nil
}

func (r *MemoryTranscriptRepository) Count(_ context.Context, sessionID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.sessions[sessionID])), nil
}

func (r *MemoryTranscriptRepository) Clear(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

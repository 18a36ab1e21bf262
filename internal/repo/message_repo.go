// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/echo-voice-backend/internal/domain"
)

// newMessageID returns a time-ordered UUIDv7 so that ties on created_at
// still break chronologically.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// AppendMessage inserts a message row and returns it. Messages are never
// updated or deleted.
func AppendMessage(ctx context.Context, db *gorm.DB, personaID string, role domain.Role, content string) (*domain.Message, error) {
	m := &domain.Message{
		ID:        newMessageID(),
		PersonaID: personaID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		return nil, translate(err)
	}
	return m, nil
}

// FindMessages returns the most recent limit messages of a persona in
// ascending order (CreatedAt ASC, ID ASC). limit <= 0 yields an empty slice
// without touching the store.
func FindMessages(ctx context.Context, db *gorm.DB, personaID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return []domain.Message{}, nil
	}
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("persona_id = ?", personaID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// GetMessage fetches a message by id within a persona's conversation.
func GetMessage(ctx context.Context, db *gorm.DB, personaID, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).First(&m, "id = ? AND persona_id = ?", id, personaID).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Persona model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/echo-voice-backend/internal/domain"
)

// InsertPersona creates a persona owned by userID. An unknown userID is
// rejected by the foreign key and reported as ErrInvalidReference.
func InsertPersona(ctx context.Context, db *gorm.DB, userID, name, behaviorPrompt, voiceModelRef string) (*domain.Persona, error) {
	now := time.Now().UTC()
	p := &domain.Persona{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           name,
		BehaviorPrompt: behaviorPrompt,
		VoiceModelRef:  voiceModelRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// GetPersona fetches a persona by ID, or ErrNotFound.
func GetPersona(ctx context.Context, db *gorm.DB, id string) (*domain.Persona, error) {
	var p domain.Persona
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// FindPersonaByUser returns the user's current persona, defined as the most
// recently created one. Ties on created_at fall back to id.
func FindPersonaByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.Persona, error) {
	var p domain.Persona
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// ListPersonasByUser returns every persona owned by userID, newest first.
func ListPersonasByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Persona, error) {
	var out []domain.Persona
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, translate(err)
}

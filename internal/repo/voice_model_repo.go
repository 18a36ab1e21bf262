// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the VoiceModel
// model. Lookups, links and deletes are keyed by the provider model id.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/echo-voice-backend/internal/domain"
)

// NewVoiceModel carries the caller-supplied fields of a voice model.
type NewVoiceModel struct {
	UserID          string
	ProviderModelID string
	Name            string
	SourceFile      string
	FileKind        domain.FileKind
	PersonaID       *string
}

// InsertVoiceModel stores a voice model. A provider id that already exists
// fails with ErrDuplicate; unknown user or persona ids with ErrInvalidReference.
func InsertVoiceModel(ctx context.Context, db *gorm.DB, in NewVoiceModel) (*domain.VoiceModel, error) {
	now := time.Now().UTC()
	vm := &domain.VoiceModel{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		ProviderModelID: in.ProviderModelID,
		Name:            in.Name,
		SourceFile:      in.SourceFile,
		FileKind:        in.FileKind,
		PersonaID:       in.PersonaID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(vm).Error; err != nil {
		return nil, translate(err)
	}
	return vm, nil
}

// FindVoiceModelByID fetches a voice model by provider model id.
func FindVoiceModelByID(ctx context.Context, db *gorm.DB, modelID string) (*domain.VoiceModel, error) {
	var vm domain.VoiceModel
	if err := db.WithContext(ctx).Where("provider_model_id = ?", modelID).First(&vm).Error; err != nil {
		return nil, translate(err)
	}
	return &vm, nil
}

// FindVoiceModelsByUser returns a user's voice models, newest first.
func FindVoiceModelsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.VoiceModel, error) {
	var out []domain.VoiceModel
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, translate(err)
}

// FindVoiceModelByPersona returns the voice model linked to a persona. When
// several were linked over time the most recently updated wins.
func FindVoiceModelByPersona(ctx context.Context, db *gorm.DB, personaID string) (*domain.VoiceModel, error) {
	var vm domain.VoiceModel
	err := db.WithContext(ctx).
		Where("persona_id = ?", personaID).
		Order("updated_at DESC, id DESC").
		First(&vm).Error
	if err != nil {
		return nil, translate(err)
	}
	return &vm, nil
}

// LinkVoiceModelToPersona sets the persona of a voice model. It reports true
// iff a record was updated; an unknown modelID changes nothing.
func LinkVoiceModelToPersona(ctx context.Context, db *gorm.DB, modelID, personaID string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.VoiceModel{}).
		Where("provider_model_id = ?", modelID).
		Updates(map[string]any{
			"persona_id": personaID,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteVoiceModel removes a voice model by provider id and reports whether
// a record was removed.
func DeleteVoiceModel(ctx context.Context, db *gorm.DB, modelID string) (bool, error) {
	res := db.WithContext(ctx).Where("provider_model_id = ?", modelID).Delete(&domain.VoiceModel{})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/echo-voice-backend/internal/domain"
)

// MessagesStats returns aggregate metadata for a persona's conversation:
// the total number of messages and the greatest CreatedAt among them.
// Messages are append-only, so the pair changes whenever history does.
//
// When the persona has no messages, count is 0 and latest is nil.
func MessagesStats(ctx context.Context, db *gorm.DB, personaID string) (count int64, latest *time.Time, err error) {
	if err = db.WithContext(ctx).Model(&domain.Message{}).
		Where("persona_id = ?", personaID).
		Count(&count).Error; err != nil {
		return 0, nil, translate(err)
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.Message{}).
		Where("persona_id = ?", personaID).
		Select("created_at").
		Order("created_at DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, translate(err)
	}
	return count, &row.CreatedAt, nil
}

// VoiceModelsStats returns the number of voice models a user owns and the
// greatest UpdatedAt among them, or (0, nil) when there are none.
func VoiceModelsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, latest *time.Time, err error) {
	if err = db.WithContext(ctx).Model(&domain.VoiceModel{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, nil, translate(err)
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		UpdatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.VoiceModel{}).
		Where("user_id = ?", userID).
		Select("updated_at").
		Order("updated_at DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, translate(err)
	}
	return count, &row.UpdatedAt, nil
}

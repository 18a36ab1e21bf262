// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return ErrNotFound.
//   - Unique and foreign key violations surface as ErrDuplicate and
//     ErrInvalidReference; connectivity failures as ErrUnavailable or
//     ErrTimeout (see errors.go).
//
// Usage:
//
//	u, err := repo.FindUserByExternalID(ctx, db, "auth0|abc")
//	if errors.Is(err, repo.ErrNotFound) {
//	    u, err = repo.InsertUser(ctx, db, "auth0|abc", "a@example.com")
//	}
//
// This repository is designed to be wrapped by a higher-level service
// (see services.PersonaService) which enforces business rules such as
// race-safe get-or-create.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/echo-voice-backend/internal/domain"
)

// FindUserByExternalID fetches a user by identity-provider subject.
// It returns ErrNotFound when no such user exists.
func FindUserByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("external_id = ?", externalID).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// GetUser fetches a user by primary key.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// InsertUser creates a user with a generated UUID and UTC timestamps.
// A second insert for the same externalID fails with ErrDuplicate.
func InsertUser(ctx context.Context, db *gorm.DB, externalID, email string) (*domain.User, error) {
	now := time.Now().UTC()
	u := &domain.User{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		Email:      email,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Idempotency
// model used to implement safe-retry semantics for POST endpoints.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/echo-voice-backend/internal/domain"
)

// GetIdempotency returns a non-expired record or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, scopeID, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(scopeID) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND scope_id = ? AND key = ? AND expires_at > ?", userID, scopeID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// CreateIdempotency inserts a record and returns ErrDuplicate on unique violation.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, scopeID, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		UserID:     userID,
		ScopeID:    scopeID,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, translate(err)
	}
	return rec, nil
}

// IdempotencyKeys binds the idempotency helpers to a handle and a TTL so the
// HTTP layer can record and replay POST results without holding a *gorm.DB.
type IdempotencyKeys struct {
	DB  *gorm.DB
	TTL time.Duration
}

// Exists reports whether a live record exists for (callerID, scopeID, key).
func (k IdempotencyKeys) Exists(ctx context.Context, callerID, scopeID, key string, now time.Time) (bool, error) {
	_, err := GetIdempotency(ctx, k.DB, callerID, scopeID, key, now)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Lookup returns the resource id recorded for (callerID, scopeID, key).
func (k IdempotencyKeys) Lookup(ctx context.Context, callerID, scopeID, key string) (string, bool, error) {
	rec, err := GetIdempotency(ctx, k.DB, callerID, scopeID, key, time.Now().UTC())
	switch {
	case err == nil:
		return rec.ResourceID, true, nil
	case errors.Is(err, ErrNotFound):
		return "", false, nil
	default:
		return "", false, err
	}
}

// Remember records resourceID for (callerID, scopeID, key). A concurrent
// duplicate is not an error: the first writer wins.
func (k IdempotencyKeys) Remember(ctx context.Context, callerID, scopeID, key, resourceID string, status int) error {
	ttl := k.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, err := CreateIdempotency(ctx, k.DB, callerID, scopeID, key, resourceID, status, ttl)
	if errors.Is(err, ErrDuplicate) {
		return nil
	}
	return err
}

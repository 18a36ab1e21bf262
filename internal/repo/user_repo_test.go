package repo

import (
	"context"
	"errors"
	"testing"
)

func TestInsertAndFindUser(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	u, err := InsertUser(ctx, db, "auth0|abc", "a@example.com")
	if err != nil {
		t.Fatalf("InsertUser: %v", err)
	}
	if u.ID == "" || u.CreatedAt.IsZero() || u.CreatedAt.Location().String() != "UTC" {
		t.Fatalf("unexpected user: %+v", u)
	}

	got, err := FindUserByExternalID(ctx, db, "auth0|abc")
	if err != nil {
		t.Fatalf("FindUserByExternalID: %v", err)
	}
	if got.ID != u.ID || got.Email != "a@example.com" {
		t.Fatalf("roundtrip mismatch: %+v vs %+v", got, u)
	}

	byID, err := GetUser(ctx, db, u.ID)
	if err != nil || byID.ExternalID != "auth0|abc" {
		t.Fatalf("GetUser: %+v, %v", byID, err)
	}
}

func TestFindUser_Missing(t *testing.T) {
	db := newRepoDB(t)
	if _, err := FindUserByExternalID(context.Background(), db, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetUser(context.Background(), db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertUser_DuplicateExternalID(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	if _, err := InsertUser(ctx, db, "auth0|dup", "a@x.io"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := InsertUser(ctx, db, "auth0|dup", "b@x.io"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	var n int64
	db.Table("users").Where("external_id = ?", "auth0|dup").Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one row, got %d", n)
	}
}

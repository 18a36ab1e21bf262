package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/echo-voice-backend/internal/domain"
)

func seedPersona(t *testing.T, db *gorm.DB) *domain.Persona {
	t.Helper()
	ctx := context.Background()
	u, err := InsertUser(ctx, db, "auth0|"+t.Name(), "t@x.io")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	p, err := InsertPersona(ctx, db, u.ID, "Nova", "warm", "placeholder")
	if err != nil {
		t.Fatalf("seed persona: %v", err)
	}
	return p
}

func TestAppendMessage_ReturnsStoredRow(t *testing.T) {
	db := newRepoDB(t)
	p := seedPersona(t, db)

	m, err := AppendMessage(context.Background(), db, p.ID, domain.RoleUser, "hi")
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if m.ID == "" || m.PersonaID != p.ID || m.Role != domain.RoleUser || m.Content != "hi" {
		t.Fatalf("unexpected message: %+v", m)
	}
	if m.CreatedAt.IsZero() || time.Since(m.CreatedAt) > time.Minute {
		t.Fatalf("CreatedAt not set reasonably: %v", m.CreatedAt)
	}
}

func TestAppendMessage_UnknownPersona(t *testing.T) {
	db := newRepoDB(t)
	_, err := AppendMessage(context.Background(), db, "missing", domain.RoleUser, "hi")
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestFindMessages_LastNAscending(t *testing.T) {
	db := newRepoDB(t)
	p := seedPersona(t, db)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		if _, err := AppendMessage(ctx, db, p.ID, role, fmt.Sprintf("m%02d", i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := FindMessages(ctx, db, p.ID, 10)
	if err != nil {
		t.Fatalf("FindMessages: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(got))
	}
	for i, m := range got {
		if want := fmt.Sprintf("m%02d", i+5); m.Content != want {
			t.Fatalf("position %d = %q; want %q", i, m.Content, want)
		}
	}

	all, err := FindMessages(ctx, db, p.ID, 100)
	if err != nil || len(all) != 15 {
		t.Fatalf("expected all 15 messages, got %d (%v)", len(all), err)
	}
}

func TestFindMessages_TiesBreakByID(t *testing.T) {
	db := newRepoDB(t)
	p := seedPersona(t, db)
	ctx := context.Background()

	a, _ := AppendMessage(ctx, db, p.ID, domain.RoleUser, "first")
	b, _ := AppendMessage(ctx, db, p.ID, domain.RoleAssistant, "second")

	// Collapse both onto the same instant; UUIDv7 ids keep insertion order.
	same := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	db.Model(&domain.Message{}).Where("persona_id = ?", p.ID).Update("created_at", same)

	got, err := FindMessages(ctx, db, p.ID, 10)
	if err != nil {
		t.Fatalf("FindMessages: %v", err)
	}
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestFindMessages_NonPositiveLimit(t *testing.T) {
	// A closed store proves no query is issued.
	db := newRepoDB(t)
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()

	for _, limit := range []int{0, -3} {
		got, err := FindMessages(context.Background(), db, "p", limit)
		if err != nil || got == nil || len(got) != 0 {
			t.Fatalf("limit %d: expected empty non-nil slice, got %v, %v", limit, got, err)
		}
	}
}

func TestFindMessages_StoreClosed(t *testing.T) {
	db := newRepoDB(t)
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()

	if _, err := FindMessages(context.Background(), db, "p", 5); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMessagesStats(t *testing.T) {
	db := newRepoDB(t)
	p := seedPersona(t, db)
	ctx := context.Background()

	n, latest, err := MessagesStats(ctx, db, p.ID)
	if err != nil || n != 0 || latest != nil {
		t.Fatalf("empty stats: %d, %v, %v", n, latest, err)
	}

	_, _ = AppendMessage(ctx, db, p.ID, domain.RoleUser, "hi")
	last, _ := AppendMessage(ctx, db, p.ID, domain.RoleAssistant, "hello!")

	n, latest, err = MessagesStats(ctx, db, p.ID)
	if err != nil || n != 2 || latest == nil {
		t.Fatalf("stats: %d, %v, %v", n, latest, err)
	}
	if latest.Before(last.CreatedAt.Add(-time.Millisecond)) {
		t.Fatalf("latest %v older than last append %v", latest, last.CreatedAt)
	}
}

func TestGetMessage_ScopedToPersona(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	p := seedPersona(t, db)

	m, err := AppendMessage(ctx, db, p.ID, domain.RoleAssistant, "hello")
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	got, err := GetMessage(ctx, db, p.ID, m.ID)
	if err != nil || got.Content != "hello" {
		t.Fatalf("GetMessage = %+v, %v", got, err)
	}
	if _, err := GetMessage(ctx, db, "other-persona", m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign persona must not see message, got %v", err)
	}
}

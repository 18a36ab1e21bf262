package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/echo-voice-backend/internal/domain"
)

func TestVoiceModel_RoundTripAndDelete(t *testing.T) {
	db := newRepoDB(t)
	p := seedPersona(t, db)
	ctx := context.Background()

	in := NewVoiceModel{
		UserID:          p.UserID,
		ProviderModelID: "fish-123",
		Name:            "My Voice",
		SourceFile:      "clip.mp4",
		FileKind:        domain.FileKindVideo,
	}
	vm, err := InsertVoiceModel(ctx, db, in)
	if err != nil {
		t.Fatalf("InsertVoiceModel: %v", err)
	}

	got, err := FindVoiceModelByID(ctx, db, "fish-123")
	if err != nil {
		t.Fatalf("FindVoiceModelByID: %v", err)
	}
	if got.ID != vm.ID || got.UserID != in.UserID || got.Name != in.Name ||
		got.SourceFile != in.SourceFile || got.FileKind != domain.FileKindVideo || got.PersonaID != nil {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}

	removed, err := DeleteVoiceModel(ctx, db, "fish-123")
	if err != nil || !removed {
		t.Fatalf("DeleteVoiceModel: %v, %v", removed, err)
	}
	if _, err := FindVoiceModelByID(ctx, db, "fish-123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	removed, err = DeleteVoiceModel(ctx, db, "fish-123")
	if err != nil || removed {
		t.Fatalf("second delete should report false, got %v, %v", removed, err)
	}
}

func TestInsertVoiceModel_DuplicateProviderID(t *testing.T) {
	db := newRepoDB(t)
	p := seedPersona(t, db)
	ctx := context.Background()

	in := NewVoiceModel{UserID: p.UserID, ProviderModelID: "fish-dup", Name: "A", FileKind: domain.FileKindAudio}
	if _, err := InsertVoiceModel(ctx, db, in); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := InsertVoiceModel(ctx, db, in); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestInsertVoiceModel_InvalidReferences(t *testing.T) {
	db := newRepoDB(t)
	p := seedPersona(t, db)
	ctx := context.Background()

	_, err := InsertVoiceModel(ctx, db, NewVoiceModel{UserID: "ghost", ProviderModelID: "f1", Name: "A", FileKind: domain.FileKindAudio})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("unknown user: expected ErrInvalidReference, got %v", err)
	}
	ghost := "ghost-persona"
	_, err = InsertVoiceModel(ctx, db, NewVoiceModel{UserID: p.UserID, ProviderModelID: "f2", Name: "A", FileKind: domain.FileKindAudio, PersonaID: &ghost})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("unknown persona: expected ErrInvalidReference, got %v", err)
	}
}

func TestLinkVoiceModelToPersona(t *testing.T) {
	db := newRepoDB(t)
	p := seedPersona(t, db)
	ctx := context.Background()

	if _, err := InsertVoiceModel(ctx, db, NewVoiceModel{UserID: p.UserID, ProviderModelID: "fish-link", Name: "A", FileKind: domain.FileKindAudio}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := FindVoiceModelByPersona(ctx, db, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no linked model yet, got %v", err)
	}

	ok, err := LinkVoiceModelToPersona(ctx, db, "fish-link", p.ID)
	if err != nil || !ok {
		t.Fatalf("link: %v, %v", ok, err)
	}
	got, err := FindVoiceModelByPersona(ctx, db, p.ID)
	if err != nil || got.ProviderModelID != "fish-link" {
		t.Fatalf("FindVoiceModelByPersona: %+v, %v", got, err)
	}

	ok, err = LinkVoiceModelToPersona(ctx, db, "nope", p.ID)
	if err != nil || ok {
		t.Fatalf("linking unknown model should report false, got %v, %v", ok, err)
	}

	if _, err := LinkVoiceModelToPersona(ctx, db, "fish-link", "ghost"); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("linking to unknown persona: expected ErrInvalidReference, got %v", err)
	}
}

func TestFindVoiceModelsByUser_NewestFirstAndStats(t *testing.T) {
	db := newRepoDB(t)
	p := seedPersona(t, db)
	ctx := context.Background()

	old, _ := InsertVoiceModel(ctx, db, NewVoiceModel{UserID: p.UserID, ProviderModelID: "old", Name: "A", FileKind: domain.FileKindAudio})
	db.Model(&domain.VoiceModel{}).Where("id = ?", old.ID).Update("created_at", time.Now().UTC().Add(-time.Hour))
	_, _ = InsertVoiceModel(ctx, db, NewVoiceModel{UserID: p.UserID, ProviderModelID: "new", Name: "B", FileKind: domain.FileKindAudio})

	list, err := FindVoiceModelsByUser(ctx, db, p.UserID)
	if err != nil {
		t.Fatalf("FindVoiceModelsByUser: %v", err)
	}
	if len(list) != 2 || list[0].ProviderModelID != "new" || list[1].ProviderModelID != "old" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	n, latest, err := VoiceModelsStats(ctx, db, p.UserID)
	if err != nil || n != 2 || latest == nil {
		t.Fatalf("VoiceModelsStats: %d, %v, %v", n, latest, err)
	}
	n, latest, err = VoiceModelsStats(ctx, db, "nobody")
	if err != nil || n != 0 || latest != nil {
		t.Fatalf("empty stats: %d, %v, %v", n, latest, err)
	}
}

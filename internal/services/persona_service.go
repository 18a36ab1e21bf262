// Package services – PersonaService
//
// This file implements PersonaService, the stateless orchestration layer over
// the record store. It owns get-or-create for users, persona creation,
// conversation append/read, and the voice-model registry (create, link,
// lookup, delete).
//
// Not-found is reported as (nil, false, nil) rather than an error. Store
// failures surface as ErrStoreUnavailable or ErrTimeout so callers can tell
// "retry later" from "reject the request".
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include user/persona/model identifiers where applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/echo-voice-backend/internal/domain"
	"github.com/tbourn/echo-voice-backend/internal/repo"
)

// maxCreateAttempts bounds the find/insert loop in GetOrCreateUser.
const maxCreateAttempts = 3

// RecordStore defines the repository contract required by PersonaService.
// Absent records are reported as repo.ErrNotFound.
type RecordStore interface {
	FindUserByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.User, error)
	GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)
	InsertUser(ctx context.Context, db *gorm.DB, externalID, email string) (*domain.User, error)

	InsertPersona(ctx context.Context, db *gorm.DB, userID, name, behaviorPrompt, voiceModelRef string) (*domain.Persona, error)
	GetPersona(ctx context.Context, db *gorm.DB, id string) (*domain.Persona, error)
	FindPersonaByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.Persona, error)
	ListPersonasByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Persona, error)

	AppendMessage(ctx context.Context, db *gorm.DB, personaID string, role domain.Role, content string) (*domain.Message, error)
	GetMessage(ctx context.Context, db *gorm.DB, personaID, id string) (*domain.Message, error)
	FindMessages(ctx context.Context, db *gorm.DB, personaID string, limit int) ([]domain.Message, error)
	MessagesStats(ctx context.Context, db *gorm.DB, personaID string) (int64, *time.Time, error)

	InsertVoiceModel(ctx context.Context, db *gorm.DB, in repo.NewVoiceModel) (*domain.VoiceModel, error)
	FindVoiceModelByID(ctx context.Context, db *gorm.DB, modelID string) (*domain.VoiceModel, error)
	FindVoiceModelsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.VoiceModel, error)
	VoiceModelsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error)
	FindVoiceModelByPersona(ctx context.Context, db *gorm.DB, personaID string) (*domain.VoiceModel, error)
	LinkVoiceModelToPersona(ctx context.Context, db *gorm.DB, modelID, personaID string) (bool, error)
	DeleteVoiceModel(ctx context.Context, db *gorm.DB, modelID string) (bool, error)
}

// PersonaService coordinates users, personas, messages and voice models.
type PersonaService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Store is the record repository used by this service.
	Store RecordStore

	// StoreTimeout bounds every store call; zero disables the bound.
	StoreTimeout time.Duration
	// MaxNameRunes caps persona and voice-model display names.
	MaxNameRunes int
	// MaxContentRunes caps message content; zero disables the check.
	MaxContentRunes int
}

// NewPersonaService constructs a PersonaService with default limits.
func NewPersonaService(db *gorm.DB, store RecordStore) *PersonaService {
	return &PersonaService{
		DB:              db,
		Store:           store,
		StoreTimeout:    10 * time.Second,
		MaxNameRunes:    120,
		MaxContentRunes: 16000,
	}
}

// CreateVoiceModelInput carries the fields of a new voice model.
type CreateVoiceModelInput struct {
	UserID          string
	ProviderModelID string
	Name            string
	SourceFile      string
	FileKind        string
	PersonaID       *string
}

func (s *PersonaService) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tr := otel.Tracer("services/PersonaService")
	return tr.Start(ctx, name, trace.WithAttributes(attrs...))
}

// bound applies StoreTimeout to ctx.
func (s *PersonaService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.StoreTimeout)
}

// GetOrCreateUser returns the user for externalID, creating it on first
// reference. Concurrent callers converge on a single record: a lost insert
// race (ErrDuplicate) is resolved by re-reading the winner.
func (s *PersonaService) GetOrCreateUser(ctx context.Context, externalID, email string) (*domain.User, error) {
	ctx, span := s.start(ctx, "GetOrCreateUser", attribute.String("user.external_id", externalID))
	defer span.End()

	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, ErrMissingField
	}
	email = strings.TrimSpace(email)

	ctx, cancel := s.bound(ctx)
	defer cancel()

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		u, err := s.Store.FindUserByExternalID(ctx, s.DB, externalID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, fail(span, storeErr(err))
		}

		u, err = s.Store.InsertUser(ctx, s.DB, externalID, email)
		if err == nil {
			span.SetAttributes(attribute.Bool("user.created", true))
			return u, nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, fail(span, storeErr(err))
		}
		span.AddEvent("insert lost race", trace.WithAttributes(attribute.Int("attempt", attempt)))
	}
	return nil, fail(span, ErrStoreUnavailable)
}

// GetUserByExternalID looks up a user without creating it.
func (s *PersonaService) GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, bool, error) {
	ctx, span := s.start(ctx, "GetUserByExternalID", attribute.String("user.external_id", externalID))
	defer span.End()

	ctx, cancel := s.bound(ctx)
	defer cancel()
	u, err := s.Store.FindUserByExternalID(ctx, s.DB, strings.TrimSpace(externalID))
	return found(span, u, err)
}

// CreatePersona creates a persona owned by userID. All four inputs are
// required; an unknown user fails with ErrInvalidReference and nothing is
// written. Name and behavior prompt are stored as given.
func (s *PersonaService) CreatePersona(ctx context.Context, userID, name, behaviorPrompt, voiceModelRef string) (*domain.Persona, error) {
	ctx, span := s.start(ctx, "CreatePersona", attribute.String("user.id", userID))
	defer span.End()

	userID = strings.TrimSpace(userID)
	voiceModelRef = strings.TrimSpace(voiceModelRef)
	if userID == "" || blank(name) || blank(behaviorPrompt) || voiceModelRef == "" {
		return nil, ErrMissingField
	}
	if s.MaxNameRunes > 0 && utf8.RuneCountInString(name) > s.MaxNameRunes {
		return nil, ErrTooLong
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.requireUser(ctx, userID); err != nil {
		return nil, fail(span, err)
	}
	p, err := s.Store.InsertPersona(ctx, s.DB, userID, name, behaviorPrompt, voiceModelRef)
	if err != nil {
		return nil, fail(span, storeErr(err))
	}
	span.SetAttributes(attribute.String("persona.id", p.ID))
	return p, nil
}

// GetPersona fetches a persona by id.
func (s *PersonaService) GetPersona(ctx context.Context, personaID string) (*domain.Persona, bool, error) {
	ctx, span := s.start(ctx, "GetPersona", attribute.String("persona.id", personaID))
	defer span.End()

	ctx, cancel := s.bound(ctx)
	defer cancel()
	p, err := s.Store.GetPersona(ctx, s.DB, personaID)
	return found(span, p, err)
}

// CurrentPersona returns the user's most recently created persona.
func (s *PersonaService) CurrentPersona(ctx context.Context, userID string) (*domain.Persona, bool, error) {
	ctx, span := s.start(ctx, "CurrentPersona", attribute.String("user.id", userID))
	defer span.End()

	ctx, cancel := s.bound(ctx)
	defer cancel()
	p, err := s.Store.FindPersonaByUser(ctx, s.DB, userID)
	return found(span, p, err)
}

// ListPersonas returns all of a user's personas, newest first.
func (s *PersonaService) ListPersonas(ctx context.Context, userID string) ([]domain.Persona, error) {
	ctx, span := s.start(ctx, "ListPersonas", attribute.String("user.id", userID))
	defer span.End()

	ctx, cancel := s.bound(ctx)
	defer cancel()
	items, err := s.Store.ListPersonasByUser(ctx, s.DB, userID)
	if err != nil {
		return nil, fail(span, storeErr(err))
	}
	if items == nil {
		items = []domain.Persona{}
	}
	return items, nil
}

// AppendMessage adds one message to a persona's conversation. Role is
// validated first, then content, then the persona reference.
func (s *PersonaService) AppendMessage(ctx context.Context, personaID, role, content string) (*domain.Message, error) {
	ctx, span := s.start(ctx, "AppendMessage",
		attribute.String("persona.id", personaID),
		attribute.String("message.role", role),
	)
	defer span.End()

	r := domain.Role(strings.TrimSpace(role))
	if !r.Valid() {
		return nil, ErrInvalidRole
	}
	if strings.TrimSpace(content) == "" || strings.TrimSpace(personaID) == "" {
		return nil, ErrMissingField
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return nil, ErrTooLong
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.requirePersona(ctx, personaID); err != nil {
		return nil, fail(span, err)
	}
	m, err := s.Store.AppendMessage(ctx, s.DB, personaID, r, content)
	if err != nil {
		return nil, fail(span, storeErr(err))
	}
	return m, nil
}

// GetHistory returns the last limit messages of a persona, oldest first.
// limit <= 0 yields an empty slice.
func (s *PersonaService) GetHistory(ctx context.Context, personaID string, limit int) ([]domain.Message, error) {
	ctx, span := s.start(ctx, "GetHistory",
		attribute.String("persona.id", personaID),
		attribute.Int("limit", limit),
	)
	defer span.End()

	if limit <= 0 {
		return []domain.Message{}, nil
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	items, err := s.Store.FindMessages(ctx, s.DB, personaID, limit)
	if err != nil {
		return nil, fail(span, storeErr(err))
	}
	if items == nil {
		items = []domain.Message{}
	}
	return items, nil
}

// GetMessage fetches one message of a persona's conversation by id.
func (s *PersonaService) GetMessage(ctx context.Context, personaID, messageID string) (*domain.Message, bool, error) {
	ctx, span := s.start(ctx, "GetMessage",
		attribute.String("persona.id", personaID),
		attribute.String("message.id", messageID),
	)
	defer span.End()

	ctx, cancel := s.bound(ctx)
	defer cancel()
	m, err := s.Store.GetMessage(ctx, s.DB, personaID, messageID)
	return found(span, m, err)
}

// HistoryStats returns the message count and latest timestamp for a persona.
func (s *PersonaService) HistoryStats(ctx context.Context, personaID string) (int64, *time.Time, error) {
	ctx, span := s.start(ctx, "HistoryStats", attribute.String("persona.id", personaID))
	defer span.End()

	ctx, cancel := s.bound(ctx)
	defer cancel()
	n, latest, err := s.Store.MessagesStats(ctx, s.DB, personaID)
	if err != nil {
		return 0, nil, fail(span, storeErr(err))
	}
	return n, latest, nil
}

// CheckReferences verifies that userID and, when set, personaID resolve.
// It is used before side effects that cannot be undone, such as provider uploads.
func (s *PersonaService) CheckReferences(ctx context.Context, userID string, personaID *string) error {
	ctx, span := s.start(ctx, "CheckReferences", attribute.String("user.id", userID))
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return ErrMissingField
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.requireUser(ctx, userID); err != nil {
		return fail(span, err)
	}
	if personaID != nil {
		if err := s.requirePersona(ctx, *personaID); err != nil {
			return fail(span, err)
		}
	}
	return nil
}

// CreateVoiceModel records a voice model produced by the provider. The file
// kind must be exactly audio or video. Kind, name and source file are stored
// verbatim.
func (s *PersonaService) CreateVoiceModel(ctx context.Context, in CreateVoiceModelInput) (*domain.VoiceModel, error) {
	ctx, span := s.start(ctx, "CreateVoiceModel",
		attribute.String("user.id", in.UserID),
		attribute.String("voice_model.id", in.ProviderModelID),
		attribute.String("voice_model.file_kind", in.FileKind),
	)
	defer span.End()

	kind := domain.FileKind(strings.TrimSpace(in.FileKind))
	if !kind.Valid() {
		return nil, ErrInvalidFileKind
	}
	in.UserID = strings.TrimSpace(in.UserID)
	in.ProviderModelID = strings.TrimSpace(in.ProviderModelID)
	if in.UserID == "" || in.ProviderModelID == "" || blank(in.Name) {
		return nil, ErrMissingField
	}
	if s.MaxNameRunes > 0 && utf8.RuneCountInString(in.Name) > s.MaxNameRunes {
		return nil, ErrTooLong
	}
	if in.PersonaID != nil && strings.TrimSpace(*in.PersonaID) == "" {
		in.PersonaID = nil
	}

	if err := s.CheckReferences(ctx, in.UserID, in.PersonaID); err != nil {
		return nil, fail(span, err)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	vm, err := s.Store.InsertVoiceModel(ctx, s.DB, repo.NewVoiceModel{
		UserID:          in.UserID,
		ProviderModelID: in.ProviderModelID,
		Name:            in.Name,
		SourceFile:      in.SourceFile,
		FileKind:        kind,
		PersonaID:       in.PersonaID,
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, fail(span, ErrDuplicateVoiceModel)
	}
	if err != nil {
		return nil, fail(span, storeErr(err))
	}
	return vm, nil
}

// LinkVoiceModelToPersona attaches a voice model to a persona. It reports
// false when modelID is unknown; an unknown persona is ErrInvalidReference.
func (s *PersonaService) LinkVoiceModelToPersona(ctx context.Context, modelID, personaID string) (bool, error) {
	ctx, span := s.start(ctx, "LinkVoiceModelToPersona",
		attribute.String("voice_model.id", modelID),
		attribute.String("persona.id", personaID),
	)
	defer span.End()

	if strings.TrimSpace(personaID) == "" {
		return false, ErrMissingField
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.requirePersona(ctx, personaID); err != nil {
		return false, fail(span, err)
	}
	ok, err := s.Store.LinkVoiceModelToPersona(ctx, s.DB, modelID, personaID)
	if err != nil {
		return false, fail(span, storeErr(err))
	}
	span.SetAttributes(attribute.Bool("linked", ok))
	return ok, nil
}

// DeleteVoiceModel removes a voice model and reports whether one existed.
func (s *PersonaService) DeleteVoiceModel(ctx context.Context, modelID string) (bool, error) {
	ctx, span := s.start(ctx, "DeleteVoiceModel", attribute.String("voice_model.id", modelID))
	defer span.End()

	ctx, cancel := s.bound(ctx)
	defer cancel()
	ok, err := s.Store.DeleteVoiceModel(ctx, s.DB, modelID)
	if err != nil {
		return false, fail(span, storeErr(err))
	}
	return ok, nil
}

// GetVoiceModelsForUser lists a user's voice models, newest first.
func (s *PersonaService) GetVoiceModelsForUser(ctx context.Context, userID string) ([]domain.VoiceModel, error) {
	ctx, span := s.start(ctx, "GetVoiceModelsForUser", attribute.String("user.id", userID))
	defer span.End()

	ctx, cancel := s.bound(ctx)
	defer cancel()
	items, err := s.Store.FindVoiceModelsByUser(ctx, s.DB, userID)
	if err != nil {
		return nil, fail(span, storeErr(err))
	}
	if items == nil {
		items = []domain.VoiceModel{}
	}
	return items, nil
}

// VoiceModelStats returns how many voice models a user owns and when the
// newest change happened.
func (s *PersonaService) VoiceModelStats(ctx context.Context, userID string) (int64, *time.Time, error) {
	ctx, span := s.start(ctx, "VoiceModelStats", attribute.String("user.id", userID))
	defer span.End()

	ctx, cancel := s.bound(ctx)
	defer cancel()
	n, latest, err := s.Store.VoiceModelsStats(ctx, s.DB, userID)
	if err != nil {
		return 0, nil, fail(span, storeErr(err))
	}
	return n, latest, nil
}

// GetVoiceModelForPersona returns the voice model linked to a persona.
func (s *PersonaService) GetVoiceModelForPersona(ctx context.Context, personaID string) (*domain.VoiceModel, bool, error) {
	ctx, span := s.start(ctx, "GetVoiceModelForPersona", attribute.String("persona.id", personaID))
	defer span.End()

	ctx, cancel := s.bound(ctx)
	defer cancel()
	vm, err := s.Store.FindVoiceModelByPersona(ctx, s.DB, personaID)
	return found(span, vm, err)
}

// GetVoiceModelByID fetches a voice model by provider model id.
func (s *PersonaService) GetVoiceModelByID(ctx context.Context, modelID string) (*domain.VoiceModel, bool, error) {
	ctx, span := s.start(ctx, "GetVoiceModelByID", attribute.String("voice_model.id", modelID))
	defer span.End()

	ctx, cancel := s.bound(ctx)
	defer cancel()
	vm, err := s.Store.FindVoiceModelByID(ctx, s.DB, modelID)
	return found(span, vm, err)
}

func (s *PersonaService) requireUser(ctx context.Context, userID string) error {
	if _, err := s.Store.GetUser(ctx, s.DB, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidReference
		}
		return storeErr(err)
	}
	return nil
}

func (s *PersonaService) requirePersona(ctx context.Context, personaID string) error {
	if _, err := s.Store.GetPersona(ctx, s.DB, personaID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidReference
		}
		return storeErr(err)
	}
	return nil
}

// found turns a repository lookup into the (value, found, err) shape.
func found[T any](span trace.Span, v *T, err error) (*T, bool, error) {
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, repo.ErrNotFound):
		return nil, false, nil
	default:
		return nil, false, fail(span, storeErr(err))
	}
}

// fail records err on span and returns it.
func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

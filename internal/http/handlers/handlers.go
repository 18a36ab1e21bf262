// Package handlers wires HTTP endpoints to the application services.
//
// This file declares the service contracts consumed by the handlers and the
// Handlers type that groups every endpoint. Handlers are transport-thin: they
// validate input, call application services, and translate results into
// HTTP responses (including conditional and replayed responses).
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/echo-voice-backend/internal/domain"
	"github.com/tbourn/echo-voice-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// UserService resolves accounts by their external identity.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type UserService interface {
	// GetOrCreateUser returns the user for externalID, creating it if absent.
	GetOrCreateUser(ctx context.Context, externalID, email string) (*domain.User, error)
	// GetUserByExternalID looks a user up without creating one.
	GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, bool, error)
}

// PersonaService defines persona lifecycle operations.
type PersonaService interface {
	CreatePersona(ctx context.Context, userID, name, behaviorPrompt, voiceModelRef string) (*domain.Persona, error)
	GetPersona(ctx context.Context, personaID string) (*domain.Persona, bool, error)
	// CurrentPersona returns the user's most recently created persona.
	CurrentPersona(ctx context.Context, userID string) (*domain.Persona, bool, error)
	ListPersonas(ctx context.Context, userID string) ([]domain.Persona, error)
}

// ConversationService appends to and reads a persona's message history.
type ConversationService interface {
	AppendMessage(ctx context.Context, personaID, role, content string) (*domain.Message, error)
	GetMessage(ctx context.Context, personaID, messageID string) (*domain.Message, bool, error)
	// GetHistory returns the last limit messages, oldest first.
	GetHistory(ctx context.Context, personaID string, limit int) ([]domain.Message, error)
	// HistoryStats returns the message count and latest timestamp, used for ETags.
	HistoryStats(ctx context.Context, personaID string) (int64, *time.Time, error)
}

// VoiceModelService reads and manages recorded voice models.
type VoiceModelService interface {
	GetVoiceModelsForUser(ctx context.Context, userID string) ([]domain.VoiceModel, error)
	// VoiceModelStats returns the model count and latest update, used for ETags.
	VoiceModelStats(ctx context.Context, userID string) (int64, *time.Time, error)
	GetVoiceModelForPersona(ctx context.Context, personaID string) (*domain.VoiceModel, bool, error)
	GetVoiceModelByID(ctx context.Context, modelID string) (*domain.VoiceModel, bool, error)
	LinkVoiceModelToPersona(ctx context.Context, modelID, personaID string) (bool, error)
	DeleteVoiceModel(ctx context.Context, modelID string) (bool, error)
}

// SpeechService synthesizes speech and clones voices through the provider.
type SpeechService interface {
	Synthesize(ctx context.Context, in services.SynthesizeInput) (*services.SynthesisResult, error)
	UploadReference(ctx context.Context, in services.UploadInput) (*services.UploadResult, error)
}

// IdempotencyStore records the resource produced by a keyed POST so that a
// retry with the same key can be answered without repeating side effects.
type IdempotencyStore interface {
	Lookup(ctx context.Context, callerID, scopeID, key string) (resourceID string, found bool, err error)
	Remember(ctx context.Context, callerID, scopeID, key, resourceID string, status int) error
}

//
// Handler wiring
//

// Services bundles the dependencies of Handlers. Idempotency may be nil, in
// which case Idempotency-Key headers are validated but never replayed.
type Services struct {
	Users        UserService
	Personas     PersonaService
	Conversation ConversationService
	VoiceModels  VoiceModelService
	Speech       SpeechService
	Idempotency  IdempotencyStore
}

// Handlers groups HTTP endpoints for users, personas, messages, voice models
// and speech. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	users   UserService
	persona PersonaService
	convo   ConversationService
	models  VoiceModelService
	speech  SpeechService
	idem    IdempotencyStore
}

// New constructs a Handlers instance bound to the given services.
func New(s Services) *Handlers {
	return &Handlers{
		users:   s.Users,
		persona: s.Personas,
		convo:   s.Conversation,
		models:  s.VoiceModels,
		speech:  s.Speech,
		idem:    s.Idempotency,
	}
}

// NewFromPersonaService wires every record-backed contract to one
// *services.PersonaService.
func NewFromPersonaService(ps *services.PersonaService, speech SpeechService, idem IdempotencyStore) *Handlers {
	return New(Services{
		Users:        ps,
		Personas:     ps,
		Conversation: ps,
		VoiceModels:  ps,
		Speech:       speech,
		Idempotency:  idem,
	})
}

// callerID identifies the client for idempotency scoping. An upstream auth
// layer may set "userID" in the Gin context; otherwise the X-User-ID header
// is used, and finally "anonymous".
func callerID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "anonymous"
}

package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/echo-voice-backend/internal/domain"
)

// Records adapts the package-level functions to a method set so services can
// depend on an interface and tests can substitute fakes.
type Records struct{}

func (Records) FindUserByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.User, error) {
	return FindUserByExternalID(ctx, db, externalID)
}

func (Records) GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return GetUser(ctx, db, id)
}

func (Records) InsertUser(ctx context.Context, db *gorm.DB, externalID, email string) (*domain.User, error) {
	return InsertUser(ctx, db, externalID, email)
}

func (Records) InsertPersona(ctx context.Context, db *gorm.DB, userID, name, behaviorPrompt, voiceModelRef string) (*domain.Persona, error) {
	return InsertPersona(ctx, db, userID, name, behaviorPrompt, voiceModelRef)
}

func (Records) GetPersona(ctx context.Context, db *gorm.DB, id string) (*domain.Persona, error) {
	return GetPersona(ctx, db, id)
}

func (Records) FindPersonaByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.Persona, error) {
	return FindPersonaByUser(ctx, db, userID)
}

func (Records) ListPersonasByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Persona, error) {
	return ListPersonasByUser(ctx, db, userID)
}

func (Records) AppendMessage(ctx context.Context, db *gorm.DB, personaID string, role domain.Role, content string) (*domain.Message, error) {
	return AppendMessage(ctx, db, personaID, role, content)
}

func (Records) GetMessage(ctx context.Context, db *gorm.DB, personaID, id string) (*domain.Message, error) {
	return GetMessage(ctx, db, personaID, id)
}

func (Records) FindMessages(ctx context.Context, db *gorm.DB, personaID string, limit int) ([]domain.Message, error) {
	return FindMessages(ctx, db, personaID, limit)
}

func (Records) MessagesStats(ctx context.Context, db *gorm.DB, personaID string) (int64, *time.Time, error) {
	return MessagesStats(ctx, db, personaID)
}

func (Records) InsertVoiceModel(ctx context.Context, db *gorm.DB, in NewVoiceModel) (*domain.VoiceModel, error) {
	return InsertVoiceModel(ctx, db, in)
}

func (Records) FindVoiceModelByID(ctx context.Context, db *gorm.DB, modelID string) (*domain.VoiceModel, error) {
	return FindVoiceModelByID(ctx, db, modelID)
}

func (Records) FindVoiceModelsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.VoiceModel, error) {
	return FindVoiceModelsByUser(ctx, db, userID)
}

func (Records) VoiceModelsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return VoiceModelsStats(ctx, db, userID)
}

func (Records) FindVoiceModelByPersona(ctx context.Context, db *gorm.DB, personaID string) (*domain.VoiceModel, error) {
	return FindVoiceModelByPersona(ctx, db, personaID)
}

func (Records) LinkVoiceModelToPersona(ctx context.Context, db *gorm.DB, modelID, personaID string) (bool, error) {
	return LinkVoiceModelToPersona(ctx, db, modelID, personaID)
}

func (Records) DeleteVoiceModel(ctx context.Context, db *gorm.DB, modelID string) (bool, error) {
	return DeleteVoiceModel(ctx, db, modelID)
}

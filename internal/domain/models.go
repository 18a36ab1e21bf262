// Package domain defines the persistence models for users, Echo personas,
// conversation messages, and voice models. These types are mapped with GORM
// and form the core data layer of the Echo backend.
package domain

import (
	"time"
)

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the enumerated message roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// FileKind classifies the reference material a voice model was cloned from.
type FileKind string

const (
	FileKindAudio FileKind = "audio"
	FileKindVideo FileKind = "video"
)

// Valid reports whether k is one of the enumerated file kinds.
func (k FileKind) Valid() bool {
	return k == FileKindAudio || k == FileKindVideo
}

// User is an account known by its external-auth identifier (e.g. "auth0|abc").
// Users are created on first reference and never deleted by this service.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ExternalID: identity-provider subject; unique across the store.
//   - Email: contact address supplied on creation.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	ExternalID string    `json:"external_id" gorm:"type:varchar(191);not null;uniqueIndex:ux_users_external_id"`
	Email      string    `json:"email"       gorm:"type:varchar(255);not null;default:''"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Persona is an AI "Echo" owned by a user. A user may own many personas;
// the most recently created one is treated as the user's current persona.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: owning user (indexed, FK users.id).
//   - Name: display name.
//   - BehaviorPrompt: free-text prompt describing how the Echo behaves.
//   - VoiceModelRef: provider voice identifier; may be a placeholder.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Persona struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	UserID         string    `json:"user_id"         gorm:"type:char(36);not null;index:idx_user_personas,priority:1"`
	Name           string    `json:"name"            gorm:"type:varchar(255);not null"`
	BehaviorPrompt string    `json:"behavior_prompt" gorm:"type:text;not null"`
	VoiceModelRef  string    `json:"voice_model_id"  gorm:"type:varchar(191);not null"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index:idx_user_personas,priority:2"`
	UpdatedAt      time.Time `json:"updated_at"`

	// User is the owner. Personas are cascade-deleted with their user.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Persona.
func (Persona) TableName() string { return "personas" }

// Message is a single append-only utterance in a persona's conversation.
// Messages are ordered by (CreatedAt, ID); IDs are time-ordered UUIDv7 so
// messages created within the same clock tick still sort chronologically.
type Message struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	PersonaID string    `json:"persona_id" gorm:"type:char(36);not null;index:idx_persona_msgs,priority:1"`
	Role      Role      `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_persona_msgs,priority:2"`

	Persona Persona `json:"-" gorm:"foreignKey:PersonaID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// VoiceModel records a voice cloned by the external provider from uploaded
// reference material. ProviderModelID is the provider's identifier and is
// unique across the store; all lookups, links and deletes use it.
//
// PersonaID is optional: it is nil until the model is linked to a persona
// and is omitted from JSON when absent.
type VoiceModel struct {
	ID              string    `json:"id"                   gorm:"type:char(36);primaryKey"`
	UserID          string    `json:"user_id"              gorm:"type:char(36);not null;index:idx_user_voice_models,priority:1"`
	ProviderModelID string    `json:"model_id"             gorm:"type:varchar(191);not null;uniqueIndex:ux_voice_models_provider_id"`
	Name            string    `json:"name"                 gorm:"type:varchar(255);not null"`
	SourceFile      string    `json:"source_file"          gorm:"type:varchar(1024);not null;default:''"`
	FileKind        FileKind  `json:"file_kind"            gorm:"type:varchar(16);not null;check:file_kind IN ('audio','video')"`
	PersonaID       *string   `json:"persona_id,omitempty" gorm:"type:char(36);index:idx_persona_voice_model"`
	CreatedAt       time.Time `json:"created_at"           gorm:"index:idx_user_voice_models,priority:2"`
	UpdatedAt       time.Time `json:"updated_at"`

	User    *User    `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Persona *Persona `json:"-" gorm:"foreignKey:PersonaID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for VoiceModel.
func (VoiceModel) TableName() string { return "voice_models" }

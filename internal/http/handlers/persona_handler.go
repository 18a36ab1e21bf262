// Persona HTTP handlers.
//
//   - POST /personas                     (create)
//   - GET  /personas/{id}                (fetch)
//   - GET  /personas/{id}/voice-model    (linked voice model)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreatePersonaRequest is the JSON payload for creating a persona.
type CreatePersonaRequest struct {
	// UserID is the owning user's internal id.
	UserID string `json:"user_id" binding:"required" example:"0b7f9f3e-2a43-4d4e-9d61-0e3a4bb4e9a1"`
	// Name is the display name, stored as given.
	Name string `json:"name" binding:"required" example:"Nova"`
	// BehaviorPrompt describes how the Echo speaks and behaves.
	BehaviorPrompt string `json:"behavior_prompt" binding:"required" example:"Warm, curious, answers briefly."`
	// VoiceModelID is the provider voice reference; may be a placeholder.
	VoiceModelID string `json:"voice_model_id" binding:"required" example:"placeholder"`
}

// CreatePersona godoc
// @ID          createPersona
// @Summary     Create a persona
// @Description Creates an Echo persona for an existing user. The newest persona becomes the user's current one.
// @Tags        Personas
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreatePersonaRequest  true  "Persona payload"
//
// @Success     201  {object}  domain.Persona
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or unknown user"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /personas [post]
func (h *Handlers) CreatePersona(c *gin.Context) {
	var req CreatePersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id, name, behavior_prompt and voice_model_id are required")
		return
	}
	p, err := h.persona.CreatePersona(c.Request.Context(), req.UserID, req.Name, req.BehaviorPrompt, req.VoiceModelID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// GetPersona godoc
// @ID          getPersona
// @Summary     Get a persona
// @Tags        Personas
// @Produce     json
//
// @Param       id  path  string  true  "Persona ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Persona
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Persona not found"
// @Router      /personas/{id} [get]
func (h *Handlers) GetPersona(c *gin.Context) {
	id, valid := personaIDParam(c)
	if !valid {
		return
	}
	p, found, err := h.persona.GetPersona(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "persona not found")
		return
	}
	ok(c, http.StatusOK, p)
}

// GetPersonaVoiceModel godoc
// @ID          getPersonaVoiceModel
// @Summary     Voice model linked to a persona
// @Tags        Personas
// @Produce     json
//
// @Param       id  path  string  true  "Persona ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.VoiceModel
// @Failure     404  {object}  handlers.ErrorResponse  "No linked voice model"
// @Router      /personas/{id}/voice-model [get]
func (h *Handlers) GetPersonaVoiceModel(c *gin.Context) {
	id, valid := personaIDParam(c)
	if !valid {
		return
	}
	vm, found, err := h.models.GetVoiceModelForPersona(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "persona has no voice model")
		return
	}
	ok(c, http.StatusOK, vm)
}

// personaIDParam reads and validates the :id path parameter.
func personaIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "persona id must be a UUID")
		return "", false
	}
	return id, true
}

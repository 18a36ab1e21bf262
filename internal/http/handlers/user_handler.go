// User HTTP handlers.
//
// This file exposes REST endpoints keyed by the external identity:
//   - POST /users                               (get-or-create)
//   - GET  /users/{externalId}                  (lookup)
//   - GET  /users/{externalId}/persona          (current persona)
//   - GET  /users/{externalId}/personas         (all personas)
//   - GET  /users/{externalId}/voice-models     (voice models, newest first)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/echo-voice-backend/internal/domain"
)

//
// DTOs
//

// CreateUserRequest is the JSON payload for get-or-create.
type CreateUserRequest struct {
	// ExternalID is the identity-provider subject.
	ExternalID string `json:"external_id" binding:"required,min=1,max=191" example:"auth0|abc123"`
	// Email is stored on first creation only.
	Email string `json:"email" binding:"required,email" example:"nova@example.com"`
}

// ListPersonasResponse wraps a user's personas.
type ListPersonasResponse struct {
	Personas []domain.Persona `json:"personas"`
}

// ListVoiceModelsResponse wraps a user's voice models.
type ListVoiceModelsResponse struct {
	VoiceModels []domain.VoiceModel `json:"voice_models"`
}

//
// Helpers
//

// resolveUser loads the user named by the :externalId path parameter. It
// writes the error response itself and reports whether the caller may proceed.
func (h *Handlers) resolveUser(c *gin.Context) (*domain.User, bool) {
	ext := strings.TrimSpace(c.Param("externalId"))
	if ext == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "external id required")
		return nil, false
	}
	u, found, err := h.users.GetUserByExternalID(c.Request.Context(), ext)
	if err != nil {
		failErr(c, err)
		return nil, false
	}
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return nil, false
	}
	return u, true
}

//
// Handlers
//

// CreateUser godoc
// @ID          createUser
// @Summary     Get or create a user
// @Description Returns the user for external_id, creating it on first use. Repeated and concurrent calls converge on one record.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateUserRequest  true  "User identity"
//
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "external_id and a valid email are required")
		return
	}
	u, err := h.users.GetOrCreateUser(c.Request.Context(), req.ExternalID, req.Email)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// GetUser godoc
// @ID          getUser
// @Summary     Look up a user
// @Tags        Users
// @Produce     json
//
// @Param       externalId  path  string  true  "External identity"  example(auth0|abc123)
//
// @Success     200  {object}  domain.User
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /users/{externalId} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	u, proceed := h.resolveUser(c)
	if !proceed {
		return
	}
	ok(c, http.StatusOK, u)
}

// GetCurrentPersona godoc
// @ID          getCurrentPersona
// @Summary     Current persona of a user
// @Description Returns the user's most recently created persona.
// @Tags        Users
// @Produce     json
//
// @Param       externalId  path  string  true  "External identity"
//
// @Success     200  {object}  domain.Persona
// @Failure     404  {object}  handlers.ErrorResponse  "User or persona not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /users/{externalId}/persona [get]
func (h *Handlers) GetCurrentPersona(c *gin.Context) {
	u, proceed := h.resolveUser(c)
	if !proceed {
		return
	}
	p, found, err := h.persona.CurrentPersona(c.Request.Context(), u.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user has no persona")
		return
	}
	ok(c, http.StatusOK, p)
}

// ListUserPersonas godoc
// @ID          listUserPersonas
// @Summary     List a user's personas
// @Tags        Users
// @Produce     json
//
// @Param       externalId  path  string  true  "External identity"
//
// @Success     200  {object}  handlers.ListPersonasResponse
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{externalId}/personas [get]
func (h *Handlers) ListUserPersonas(c *gin.Context) {
	u, proceed := h.resolveUser(c)
	if !proceed {
		return
	}
	items, err := h.persona.ListPersonas(c.Request.Context(), u.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListPersonasResponse{Personas: items})
}

// ListUserVoiceModels godoc
// @ID          listUserVoiceModels
// @Summary     List a user's voice models
// @Description Newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Users
// @Produce     json
//
// @Param       externalId  path  string  true  "External identity"
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.ListVoiceModelsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{externalId}/voice-models [get]
func (h *Handlers) ListUserVoiceModels(c *gin.Context) {
	u, proceed := h.resolveUser(c)
	if !proceed {
		return
	}
	ctx := c.Request.Context()
	if n, latest, err := h.models.VoiceModelStats(ctx, u.ID); err == nil {
		if notModified(c, weakETag("voice-models", u.ID, n, latest)) {
			return
		}
	}
	items, err := h.models.GetVoiceModelsForUser(ctx, u.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListVoiceModelsResponse{VoiceModels: items})
}

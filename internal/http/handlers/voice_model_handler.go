// Voice model HTTP handlers.
//
//   - GET    /voice-models/{modelId}           (fetch by provider id)
//   - DELETE /voice-models/{modelId}           (delete by provider id)
//   - PUT    /voice-models/{modelId}/persona   (link to a persona)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// LinkVoiceModelRequest names the persona a voice model should be linked to.
type LinkVoiceModelRequest struct {
	PersonaID string `json:"persona_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

func modelIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("modelId"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "model id required")
		return "", false
	}
	return id, true
}

// GetVoiceModel godoc
// @ID          getVoiceModel
// @Summary     Get a voice model
// @Tags        VoiceModels
// @Produce     json
//
// @Param       modelId  path  string  true  "Provider model id"
//
// @Success     200  {object}  domain.VoiceModel
// @Failure     404  {object}  handlers.ErrorResponse  "Voice model not found"
// @Router      /voice-models/{modelId} [get]
func (h *Handlers) GetVoiceModel(c *gin.Context) {
	id, valid := modelIDParam(c)
	if !valid {
		return
	}
	vm, found, err := h.models.GetVoiceModelByID(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "voice model not found")
		return
	}
	ok(c, http.StatusOK, vm)
}

// DeleteVoiceModel godoc
// @ID          deleteVoiceModel
// @Summary     Delete a voice model record
// @Description Removes the local record only; the provider's model is left untouched.
// @Tags        VoiceModels
//
// @Param       modelId  path  string  true  "Provider model id"
//
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Voice model not found"
// @Router      /voice-models/{modelId} [delete]
func (h *Handlers) DeleteVoiceModel(c *gin.Context) {
	id, valid := modelIDParam(c)
	if !valid {
		return
	}
	deleted, err := h.models.DeleteVoiceModel(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "voice model not found")
		return
	}
	noContent(c)
}

// LinkVoiceModel godoc
// @ID          linkVoiceModel
// @Summary     Link a voice model to a persona
// @Tags        VoiceModels
// @Accept      json
//
// @Param       modelId  path  string                          true  "Provider model id"
// @Param       body     body  handlers.LinkVoiceModelRequest  true  "Target persona"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or unknown persona"
// @Failure     404  {object}  handlers.ErrorResponse  "Voice model not found"
// @Router      /voice-models/{modelId}/persona [put]
func (h *Handlers) LinkVoiceModel(c *gin.Context) {
	id, valid := modelIDParam(c)
	if !valid {
		return
	}
	var req LinkVoiceModelRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PersonaID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "persona_id required")
		return
	}
	linked, err := h.models.LinkVoiceModelToPersona(c.Request.Context(), id, req.PersonaID)
	if err != nil {
		failErr(c, err)
		return
	}
	if !linked {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "voice model not found")
		return
	}
	noContent(c)
}

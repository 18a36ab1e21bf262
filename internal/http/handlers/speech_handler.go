// Speech HTTP handlers.
//
//   - POST /voice-models/upload   (clone a voice from reference audio/video)
//   - POST /synthesize            (text-to-speech)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/echo-voice-backend/internal/domain"
	"github.com/tbourn/echo-voice-backend/internal/services"
)

// uploadFormField is the multipart part carrying the reference media.
const uploadFormField = "audio"

// SynthesizeRequest is the JSON payload for text-to-speech.
type SynthesizeRequest struct {
	Text        string `json:"text" binding:"required" example:"Hello from your Echo."`
	ReferenceID string `json:"reference_id,omitempty" example:"7f92f8afb8ec43bf81429cc1c9199cb1"`
	VoiceID     string `json:"voice_id,omitempty"`
	// Format is one of wav, mp3, opus, pcm. Empty uses the server default.
	Format string `json:"format,omitempty" example:"wav" enums:"wav,mp3,opus,pcm"`
}

// SynthesizeResponse points at the generated audio.
type SynthesizeResponse struct {
	Success  bool   `json:"success" example:"true"`
	AudioURL string `json:"audio_url" example:"/audio/tts/0190f1c2-7a1b-7c3d-9e8f-0123456789ab.wav"`
	Format   string `json:"format" example:"wav"`
}

// UploadReferenceResponse carries the provider model id and, when a user was
// supplied, the persisted voice model.
type UploadReferenceResponse struct {
	Success    bool               `json:"success" example:"true"`
	ModelID    string             `json:"model_id" example:"7f92f8afb8ec43bf81429cc1c9199cb1"`
	Name       string             `json:"name" example:"Reference Audio"`
	FileKind   domain.FileKind    `json:"file_kind" example:"audio"`
	VoiceModel *domain.VoiceModel `json:"voice_model,omitempty"`
}

// Synthesize godoc
// @ID          synthesize
// @Summary     Synthesize speech
// @Description Sends text to the voice provider and stores the resulting audio. The response points at the stored file.
// @Tags        Speech
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SynthesizeRequest  true  "Synthesis payload"
//
// @Success     200  {object}  handlers.SynthesizeResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider error"
// @Failure     503  {object}  handlers.ErrorResponse  "Provider not configured"
// @Failure     504  {object}  handlers.ErrorResponse  "Provider timeout"
// @Router      /synthesize [post]
func (h *Handlers) Synthesize(c *gin.Context) {
	var req SynthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	}
	res, err := h.speech.Synthesize(c.Request.Context(), services.SynthesizeInput{
		Text:        req.Text,
		ReferenceID: req.ReferenceID,
		VoiceID:     req.VoiceID,
		Format:      req.Format,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SynthesizeResponse{Success: true, AudioURL: res.Location, Format: res.Format})
}

// UploadReference godoc
// @ID          uploadReference
// @Summary     Upload reference media to clone a voice
// @Description Streams the file to the voice provider. When user_id is supplied the resulting voice model is recorded for that user (and optionally linked to persona_id).
// @Tags        VoiceModels
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       audio       formData  file    true   "Reference audio or video"
// @Param       name        formData  string  false  "Display name (derived from the filename when empty)"
// @Param       user_id     formData  string  false  "Owning user id"
// @Param       persona_id  formData  string  false  "Persona to link"
// @Param       file_kind   formData  string  false  "audio or video (detected when empty)"
//
// @Success     201  {object}  handlers.UploadReferenceResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Voice model already recorded"
// @Failure     413  {object}  handlers.ErrorResponse  "Upload too large"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider error"
// @Router      /voice-models/upload [post]
func (h *Handlers) UploadReference(c *gin.Context) {
	fh, err := c.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "upload exceeds size limit")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart field \"audio\" required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable upload")
		return
	}
	defer f.Close()

	var personaID *string
	if p := strings.TrimSpace(c.PostForm("persona_id")); p != "" {
		personaID = &p
	}

	res, err := h.speech.UploadReference(c.Request.Context(), services.UploadInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
		Name:        c.PostForm("name"),
		UserID:      c.PostForm("user_id"),
		PersonaID:   personaID,
		FileKind:    c.PostForm("file_kind"),
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, UploadReferenceResponse{
		Success:    true,
		ModelID:    res.ModelID,
		Name:       res.Name,
		FileKind:   res.FileKind,
		VoiceModel: res.VoiceModel,
	})
}
